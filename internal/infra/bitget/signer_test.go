package bitget

import (
	"testing"
)

func TestSigner_SignedHeaders(t *testing.T) {
	signer := NewSigner("key", "secret", "pass")

	headers := signer.SignedHeaders("POST", "/api/mix/v1/order/placeOrder", `{"symbol":"BTCUSDT_UMCBL"}`)

	if headers["ACCESS-KEY"] != "key" {
		t.Errorf("Expected ACCESS-KEY to be 'key', got %s", headers["ACCESS-KEY"])
	}
	if headers["ACCESS-PASSPHRASE"] != "pass" {
		t.Errorf("Expected ACCESS-PASSPHRASE to be 'pass', got %s", headers["ACCESS-PASSPHRASE"])
	}
	if headers["ACCESS-SIGN"] == "" {
		t.Error("ACCESS-SIGN should not be empty")
	}
	if len(headers["ACCESS-TIMESTAMP"]) != 13 { // milliseconds
		t.Errorf("Expected timestamp len 13, got %s", headers["ACCESS-TIMESTAMP"])
	}
}

func TestComputeHmacSha256(t *testing.T) {
	// Standard HMAC-SHA256 test vector.
	key := "key"
	data := "The quick brown fox jumps over the lazy dog"
	expected := "97yD9DBThCSxMpjmqm+xQ+9NWaFJRhdZl0edvC0aPNg="

	signer := NewSigner("dummy_access", key, "dummy_pass")

	if result := signer.computeHmacSha256(data); result != expected {
		t.Errorf("HMAC mismatch. Expected %s, got %s", expected, result)
	}
}

func TestSigner_Wipe(t *testing.T) {
	signer := NewSigner("k", "s", "p")
	signer.Wipe()

	headers := signer.SignedHeaders("GET", "/api/mix/v1/market/time", "")
	if headers["ACCESS-KEY"] != "\x00" {
		t.Error("access key not wiped")
	}
}
