package bitget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/siwoo2013/siu-autotrade-gui/internal/domain"
	"github.com/siwoo2013/siu-autotrade-gui/internal/infra"
)

// Client is the Bitget Mix (UMCBL) REST gateway. It owns signing, transport
// retries, rate limiting and response normalization; callers see only
// domain types and classified errors.
//
// The client is stateless with respect to positions: every call reports what
// the exchange says right now.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *Signer

	retries int
	backoff infra.BackoffPolicy
	breaker *infra.CircuitBreaker

	// Bitget enforces per-endpoint budgets; exceeding them risks an IP ban.
	orderLimiter   *infra.RateLimiter
	accountLimiter *infra.RateLimiter
	marketLimiter  *infra.RateLimiter
}

// NewClient creates a gateway from config.
func NewClient(cfg *infra.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.API.Bitget.RestURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Reconcile.HTTPTimeoutSec) * time.Second,
		},
		signer:         NewSigner(cfg.API.Bitget.AccessKey, cfg.API.Bitget.SecretKey, cfg.API.Bitget.Passphrase),
		retries:        cfg.Reconcile.GatewayRetries,
		backoff:        infra.GatewayBackoff,
		breaker:        infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("bitget-rest")),
		orderLimiter:   infra.NewRateLimiter(5, 10),
		accountLimiter: infra.NewRateLimiter(5, 10),
		marketLimiter:  infra.NewRateLimiter(10, 20),
	}
}

// GetPosition returns the live {long, short} exposure for a canonical symbol.
func (c *Client) GetPosition(ctx context.Context, symbol string) (domain.PositionSnapshot, error) {
	c.accountLimiter.Wait()

	params := map[string]string{"symbol": symbol, "marginCoin": marginCoin}
	data, err := c.request(ctx, http.MethodGet, pathSinglePosition, params, nil)
	if err != nil {
		return domain.PositionSnapshot{}, fmt.Errorf("getPosition %s: %w", symbol, err)
	}

	legs, err := parsePositionData(data)
	if err != nil {
		return domain.PositionSnapshot{}, domain.NewError(domain.KindExchange, fmt.Errorf("getPosition %s: %w", symbol, err))
	}

	return domain.PositionSnapshot{
		Symbol: symbol,
		Long:   legs.Long,
		Short:  legs.Short,
	}, nil
}

// PositionDetail is GetPosition plus average entry prices, for the
// take-profit monitor. The reconciler never needs entry prices.
func (c *Client) PositionDetail(ctx context.Context, symbol string) (domain.PositionSnapshot, decimal.Decimal, decimal.Decimal, error) {
	c.accountLimiter.Wait()

	params := map[string]string{"symbol": symbol, "marginCoin": marginCoin}
	data, err := c.request(ctx, http.MethodGet, pathSinglePosition, params, nil)
	if err != nil {
		return domain.PositionSnapshot{}, decimal.Zero, decimal.Zero, err
	}

	legs, err := parsePositionData(data)
	if err != nil {
		return domain.PositionSnapshot{}, decimal.Zero, decimal.Zero, domain.NewError(domain.KindExchange, err)
	}

	snap := domain.PositionSnapshot{Symbol: symbol, Long: legs.Long, Short: legs.Short}
	return snap, legs.LongEntry, legs.ShortEntry, nil
}

// PlaceOrder submits a market order and returns the acknowledgement.
func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	c.orderLimiter.Wait()

	clientOID := req.ClientOID
	if clientOID == "" {
		clientOID = "siu-" + uuid.NewString()
	}

	body := placeOrderRequest{
		Symbol:           req.Symbol,
		MarginCoin:       marginCoin,
		Size:             req.Size.String(),
		Side:             req.Side.OrderSide(),
		OrderType:        strings.ToLower(req.Type),
		ReduceOnly:       req.ReduceOnly,
		TimeInForceValue: "normal",
		ClientOid:        clientOID,
	}

	data, err := c.request(ctx, http.MethodPost, pathPlaceOrder, nil, body)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("placeOrder %s %s %s: %w", req.Symbol, req.Side, req.Size, err)
	}

	var ack placeOrderData
	if err := json.Unmarshal(data, &ack); err != nil {
		return domain.OrderResult{}, domain.NewError(domain.KindExchange, fmt.Errorf("placeOrder ack: %w", err))
	}

	res := domain.OrderResult{
		OrderID:    ack.OrderID,
		ClientOID:  ack.ClientOid,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Size:       req.Size,
		ReduceOnly: req.ReduceOnly,
		PlacedAt:   time.Now().UTC(),
	}
	if res.ClientOID == "" {
		res.ClientOID = clientOID
	}

	slog.Info("order placed",
		slog.String("symbol", req.Symbol),
		slog.String("side", req.Side.String()),
		slog.String("size", req.Size.String()),
		slog.Bool("reduceOnly", req.ReduceOnly),
		slog.String("orderId", res.OrderID))

	return res, nil
}

// LastPrice returns the latest traded price for a canonical symbol.
func (c *Client) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	c.marketLimiter.Wait()

	params := map[string]string{"symbol": symbol}
	data, err := c.request(ctx, http.MethodGet, pathTicker, params, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("lastPrice %s: %w", symbol, err)
	}

	var tick tickerData
	if err := json.Unmarshal(data, &tick); err != nil {
		return decimal.Zero, domain.NewError(domain.KindExchange, fmt.Errorf("ticker payload: %w", err))
	}

	price, err := decimal.NewFromString(tick.Last)
	if err != nil {
		return decimal.Zero, domain.NewError(domain.KindExchange, fmt.Errorf("ticker price %q: %w", tick.Last, err))
	}
	return price, nil
}

// PositionMode probes the account's position accounting mode. Called once at
// startup; the side mapping is fixed from the result rather than guessed
// from error strings mid-flight.
func (c *Client) PositionMode(ctx context.Context) (string, error) {
	params := map[string]string{"productType": productType}
	data, err := c.request(ctx, http.MethodGet, pathPositionMode, params, nil)
	if err != nil {
		return "", err
	}

	var mode positionModeData
	if err := json.Unmarshal(data, &mode); err != nil {
		return "unknown", nil
	}
	return mode.mode(), nil
}

// EnsureOneWayMode switches the account to one-way (single hold) accounting.
// Best-effort: some API revisions reject it when positions are open.
func (c *Client) EnsureOneWayMode(ctx context.Context) error {
	body := map[string]string{"productType": productType, "holdMode": "single_hold"}
	_, err := c.request(ctx, http.MethodPost, pathSetPositionMode, nil, body)
	return err
}

// Close wipes credentials.
func (c *Client) Close() error {
	c.signer.Wipe()
	return nil
}

// request performs one signed REST call with bounded retries.
//
// Retry policy: transport failures (no response received) and 429/5xx are
// retried with capped exponential backoff. Any response carrying an explicit
// exchange error code is surfaced verbatim and never retried; blindly
// replaying a rejected order is how positions get doubled.
func (c *Client) request(ctx context.Context, method, path string, params map[string]string, body any) (json.RawMessage, error) {
	query := encodeQuery(params)
	pathWithQuery := path + query

	payload := ""
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, domain.NewError(domain.KindBadDirective, fmt.Errorf("marshal request body: %w", err))
		}
		payload = string(b)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := c.backoff.SleepBackoff(ctx, attempt-1); err != nil {
				return nil, domain.NewError(domain.KindGatewayUnavailable, err)
			}
		}

		if !c.breaker.Allow() {
			lastErr = fmt.Errorf("circuit breaker open for bitget-rest")
			continue
		}

		data, retryable, err := c.doOnce(ctx, method, path, pathWithQuery, payload)
		if err == nil {
			c.breaker.RecordSuccess()
			return data, nil
		}
		if !retryable {
			// A definite exchange answer, good or bad, means the endpoint
			// itself is healthy.
			c.breaker.RecordSuccess()
			return nil, err
		}

		c.breaker.RecordFailure()
		lastErr = err
		slog.Warn("bitget transient error, retrying",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))
	}

	return nil, domain.NewError(domain.KindGatewayUnavailable, fmt.Errorf("%s %s: retries exhausted: %w", method, path, lastErr))
}

// doOnce performs a single HTTP round trip. The second return value reports
// whether the failure is safe to retry (transport-level: no response, or an
// explicit 429/5xx).
func (c *Client) doOnce(ctx context.Context, method, path, pathWithQuery, payload string) (json.RawMessage, bool, error) {
	var reqBody io.Reader
	signedBody := ""
	if method != http.MethodGet && payload != "" {
		reqBody = bytes.NewBufferString(payload)
		signedBody = payload
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+pathWithQuery, reqBody)
	if err != nil {
		return nil, false, domain.NewError(domain.KindGatewayUnavailable, err)
	}

	for k, v := range c.signer.SignedHeaders(method, pathWithQuery, signedBody) {
		req.Header.Set(k, v)
	}
	// Keep-alive reuse has been observed to cause connection resets against
	// this endpoint; one connection per call is the stable configuration.
	req.Header.Set("Connection", "close")
	req.Close = true

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// No response received: retrying cannot double-execute.
		return nil, true, fmt.Errorf("transport: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("http %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}
	if resp.StatusCode >= 400 {
		return nil, false, domain.NewError(domain.KindExchange,
			fmt.Errorf("http %d: %s", resp.StatusCode, truncate(string(respBody), 200)))
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, false, domain.NewError(domain.KindExchange, fmt.Errorf("decode envelope: %w", err))
	}
	if !envelope.ok() {
		return nil, false, domain.NewError(domain.KindExchange,
			fmt.Errorf("bitget code=%s msg=%s", envelope.Code, envelope.Msg))
	}

	return envelope.Data, false, nil
}

// encodeQuery builds a deterministic query string; Bitget includes it in the
// signature, so key order must match what goes on the wire.
func encodeQuery(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
	}
	return sb.String()
}
