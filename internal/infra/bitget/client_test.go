package bitget

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/siwoo2013/siu-autotrade-gui/internal/domain"
	"github.com/siwoo2013/siu-autotrade-gui/internal/infra"
)

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	cfg := &infra.Config{}
	cfg.API.Bitget.RestURL = srv.URL
	cfg.API.Bitget.AccessKey = "k"
	cfg.API.Bitget.SecretKey = "s"
	cfg.API.Bitget.Passphrase = "p"
	cfg.Reconcile.GatewayRetries = 2
	cfg.Reconcile.HTTPTimeoutSec = 2

	c := NewClient(cfg)
	c.backoff = infra.BackoffPolicy{Initial: time.Millisecond, Factor: 1.5, Cap: 5 * time.Millisecond}
	return c
}

func envelope(data string) string {
	return `{"code":"00000","msg":"success","data":` + data + `}`
}

func TestClient_GetPosition_ListShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pathSinglePosition {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("symbol") != "BTCUSDT_UMCBL" {
			t.Errorf("unexpected symbol %s", r.URL.Query().Get("symbol"))
		}
		if r.Header.Get("ACCESS-KEY") != "k" {
			t.Error("missing auth headers")
		}
		w.Write([]byte(envelope(`[{"holdSide":"long","total":"0.02","averageOpenPrice":"61000"}]`)))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	pos, err := c.GetPosition(context.Background(), "BTCUSDT_UMCBL")
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if pos.Long.String() != "0.02" || !pos.Short.IsZero() {
		t.Errorf("snapshot = %+v, want long 0.02 short 0", pos)
	}
}

func TestClient_GetPosition_DictShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(envelope(`{"short":{"total":"0.5"}}`)))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	pos, err := c.GetPosition(context.Background(), "ETHUSDT_UMCBL")
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if pos.Short.String() != "0.5" || !pos.Long.IsZero() {
		t.Errorf("snapshot = %+v, want short 0.5 long 0", pos)
	}
}

func TestClient_PlaceOrder(t *testing.T) {
	var got placeOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != pathPlaceOrder {
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.Write([]byte(envelope(`{"orderId":"123","clientOid":"siu-abc"}`)))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	res, err := c.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol:     "BTCUSDT_UMCBL",
		Side:       domain.SideShort,
		Type:       domain.OrderTypeMarket,
		Size:       dec("0.02"),
		ReduceOnly: true,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if got.Side != "sell" {
		t.Errorf("wire side = %s, want sell", got.Side)
	}
	if got.OrderType != "market" {
		t.Errorf("wire orderType = %s, want market", got.OrderType)
	}
	if !got.ReduceOnly {
		t.Error("wire reduceOnly not set")
	}
	if got.Size != "0.02" {
		t.Errorf("wire size = %s, want 0.02", got.Size)
	}
	if got.ClientOid == "" {
		t.Error("clientOid must be generated when absent")
	}
	if res.OrderID != "123" {
		t.Errorf("orderId = %s, want 123", res.OrderID)
	}
}

func TestClient_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(envelope(`[]`)))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetPosition(context.Background(), "BTCUSDT_UMCBL")
	if err != nil {
		t.Fatalf("expected recovery after transient errors, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClient_BusinessErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"code":"40754","msg":"balance insufficient"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol: "BTCUSDT_UMCBL",
		Side:   domain.SideLong,
		Type:   domain.OrderTypeMarket,
		Size:   dec("1"),
	})
	if err == nil {
		t.Fatal("expected exchange error")
	}
	if domain.KindOf(err) != domain.KindExchange {
		t.Errorf("kind = %s, want %s", domain.KindOf(err), domain.KindExchange)
	}
	if calls.Load() != 1 {
		t.Errorf("business errors must not be retried; calls = %d", calls.Load())
	}
}

func TestClient_ExhaustionIsGatewayUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetPosition(context.Background(), "BTCUSDT_UMCBL")
	if err == nil {
		t.Fatal("expected error after retry exhaustion")
	}
	if domain.KindOf(err) != domain.KindGatewayUnavailable {
		t.Errorf("kind = %s, want %s", domain.KindOf(err), domain.KindGatewayUnavailable)
	}
}

func TestClient_LastPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(envelope(`{"symbol":"BTCUSDT_UMCBL","last":"62150.4"}`)))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	price, err := c.LastPrice(context.Background(), "BTCUSDT_UMCBL")
	if err != nil {
		t.Fatalf("LastPrice: %v", err)
	}
	if price.String() != "62150.4" {
		t.Errorf("price = %s, want 62150.4", price)
	}
}
