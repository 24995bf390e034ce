package server

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/siwoo2013/siu-autotrade-gui/internal/domain"
	"github.com/siwoo2013/siu-autotrade-gui/internal/exchange"
	"github.com/siwoo2013/siu-autotrade-gui/internal/infra"
	"github.com/siwoo2013/siu-autotrade-gui/internal/reconcile"
	"github.com/siwoo2013/siu-autotrade-gui/internal/storage"
	"github.com/siwoo2013/siu-autotrade-gui/internal/symbol"
)

// reconcileTimeout bounds a detached reconciliation. It comfortably covers
// the full close-confirm-reopen cycle with retries and backoff.
const reconcileTimeout = 2 * time.Minute

// Handler is the webhook router plus the operator read endpoints.
type Handler struct {
	cfg       *infra.Config
	log       *slog.Logger
	rec       *reconcile.Reconciler
	gw        exchange.Gateway
	journal   *storage.Journal
	startedAt time.Time
}

func NewHandler(cfg *infra.Config, log *slog.Logger, rec *reconcile.Reconciler, gw exchange.Gateway, journal *storage.Journal) *Handler {
	return &Handler{
		cfg:       cfg,
		log:       log,
		rec:       rec,
		gw:        gw,
		journal:   journal,
		startedAt: time.Now(),
	}
}

// Routes wires all endpoints onto a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tv", h.handleWebhook)
	mux.HandleFunc("GET /", h.handleRoot)
	mux.HandleFunc("GET /status", h.handleStatus)
	mux.HandleFunc("GET /positions", h.handlePositions)
	mux.HandleFunc("GET /orders/history", h.handleOrderHistory)
	return mux
}

// webhookPayload is the inbound TradingView alert body.
type webhookPayload struct {
	Secret     string      `json:"secret"`
	Route      string      `json:"route"`
	Exchange   string      `json:"exchange"`
	Symbol     string      `json:"symbol"`
	TargetSide string      `json:"target_side"`
	Type       string      `json:"type"`
	Size       json.Number `json:"size"`
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		h.writeError(w, domain.NewError(domain.KindInvalidJSON, err))
		return
	}

	if !secretMatches(payload.Secret, h.cfg.Webhook.Secret) {
		h.writeError(w, domain.NewError(domain.KindUnauthorized, fmt.Errorf("bad secret")))
		return
	}

	directive, err := h.toDirective(payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := directive.Validate(); err != nil {
		h.writeError(w, err)
		return
	}

	canonical := symbol.Normalize(directive.RawSymbol)
	h.log.Info("directive accepted",
		slog.String("route", string(directive.Route)),
		slog.String("symbol", canonical),
		slog.String("side", directive.Side.String()),
		slog.String("size", directive.Size.String()))

	// Once the close leg fires the reconciliation must run to completion;
	// a caller hanging up (TradingView times alerts out aggressively) must
	// not strand a flattened position with no reopen. Detach from the
	// request context but keep an overall deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), reconcileTimeout)
	defer cancel()

	var result domain.ReconcileResult
	switch directive.Route {
	case domain.RouteReverse:
		result, err = h.rec.Reverse(ctx, canonical, directive.Side, directive.Size)
	case domain.RouteOpen:
		result, err = h.rec.Open(ctx, canonical, directive.Side, directive.Size)
	}
	if err != nil {
		h.log.Error("reconciliation failed",
			slog.String("symbol", canonical),
			slog.String("kind", string(domain.KindOf(err))),
			slog.Any("error", err))
		h.writeError(w, err)
		return
	}

	if h.journal != nil {
		if jerr := h.journal.RecordResult(ctx, result); jerr != nil {
			h.log.Warn("order journal write failed", slog.Any("error", jerr))
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"state":  result.State,
		"closed": result.Closed,
		"opened": result.Opened,
	})
}

// toDirective validates field spellings and maps them onto the internal
// types. Errors are classified for the status mapping.
func (h *Handler) toDirective(p webhookPayload) (domain.Directive, error) {
	if p.Exchange != "" && !strings.EqualFold(p.Exchange, h.cfg.Trading.Exchange) {
		return domain.Directive{}, domain.NewError(domain.KindBadDirective,
			fmt.Errorf("exchange %q not served (configured: %s)", p.Exchange, h.cfg.Trading.Exchange))
	}

	side, err := domain.ParseSide(p.TargetSide)
	if err != nil {
		return domain.Directive{}, domain.NewError(domain.KindBadDirective, err)
	}

	size, err := decimal.NewFromString(p.Size.String())
	if err != nil {
		return domain.Directive{}, domain.NewError(domain.KindBadDirective,
			fmt.Errorf("size %q is not a number", p.Size.String()))
	}

	return domain.Directive{
		Route:     domain.Route(p.Route),
		Exchange:  p.Exchange,
		RawSymbol: p.Symbol,
		Side:      side,
		OrderType: strings.ToUpper(p.Type),
		Size:      size,
	}, nil
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": "tv->bitget",
		"mode":    h.cfg.Trading.Mode,
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"mode":   h.cfg.Trading.Mode,
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

func (h *Handler) handlePositions(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("symbol")
	if raw == "" {
		h.writeError(w, domain.NewError(domain.KindBadDirective, fmt.Errorf("symbol query parameter is required")))
		return
	}
	canonical := symbol.Normalize(raw)

	pos, err := h.gw.GetPosition(r.Context(), canonical)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"data": map[string]any{
			"symbol": pos.Symbol,
			"long":   pos.Long,
			"short":  pos.Short,
		},
	})
}

func (h *Handler) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		h.writeError(w, domain.NewError(domain.KindUnsupported, fmt.Errorf("order journal disabled")))
		return
	}

	var canonical string
	if raw := r.URL.Query().Get("symbol"); raw != "" {
		canonical = symbol.Normalize(raw)
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, domain.NewError(domain.KindBadDirective, fmt.Errorf("limit must be a positive integer")))
			return
		}
		limit = n
	}

	records, err := h.journal.Recent(r.Context(), canonical, limit)
	if err != nil {
		h.writeError(w, domain.NewError(domain.KindExchange, err))
		return
	}
	if records == nil {
		records = []storage.OrderRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": records})
}

// secretMatches compares in constant time over fixed-size digests so neither
// content nor length leaks through timing.
func secretMatches(got, want string) bool {
	g := sha256.Sum256([]byte(got))
	x := sha256.Sum256([]byte(want))
	return subtle.ConstantTimeCompare(g[:], x[:]) == 1
}

// kindStatus maps an error classification to an HTTP status. Caller mistakes
// are 4xx; upstream trouble is 5xx.
func kindStatus(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidJSON, domain.KindUnsupported, domain.KindBadDirective:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindExchange:
		return http.StatusBadGateway
	case domain.KindGatewayUnavailable:
		return http.StatusServiceUnavailable
	case domain.KindCloseNotFlat:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	writeJSON(w, kindStatus(kind), map[string]any{
		"ok":    false,
		"error": string(kind),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
