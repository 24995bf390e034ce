package bitget

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"
)

// Signer produces Bitget Mix API request signatures.
// Keys are stored as []byte so they can be wiped from memory.
type Signer struct {
	accessKey  []byte
	secretKey  []byte
	passphrase []byte
}

// NewSigner creates a new signer.
func NewSigner(accessKey, secretKey, passphrase string) *Signer {
	return &Signer{
		accessKey:  []byte(accessKey),
		secretKey:  []byte(secretKey),
		passphrase: []byte(passphrase),
	}
}

// Wipe clears the keys from memory.
func (s *Signer) Wipe() {
	if s == nil {
		return
	}
	wipeSlice(s.accessKey)
	wipeSlice(s.secretKey)
	wipeSlice(s.passphrase)
}

func wipeSlice(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// SignedHeaders returns the auth headers for one request.
// Pre-signature string: timestamp + METHOD + requestPath(+query) + body.
// Query strings are part of the signed path, so pathWithQuery must carry
// them exactly as sent on the wire.
func (s *Signer) SignedHeaders(method, pathWithQuery, body string) map[string]string {
	timestamp := fmt.Sprintf("%d", time.Now().UnixMilli())

	payload := timestamp + method + pathWithQuery + body
	signature := s.computeHmacSha256(payload)

	return map[string]string{
		"ACCESS-KEY":        string(s.accessKey),
		"ACCESS-SIGN":       signature,
		"ACCESS-TIMESTAMP":  timestamp,
		"ACCESS-PASSPHRASE": string(s.passphrase),
		"Content-Type":      "application/json",
		"locale":            "en-US",
	}
}

func (s *Signer) computeHmacSha256(payload string) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
