package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/siwoo2013/siu-autotrade-gui/internal/domain"
	"github.com/siwoo2013/siu-autotrade-gui/internal/exchange"
	"github.com/siwoo2013/siu-autotrade-gui/internal/reconcile"
)

// PriceSource yields the most recent traded price for a canonical symbol.
// The websocket ticker feed implements it; ok is false until the first tick.
type PriceSource interface {
	Price(canonical string) (decimal.Decimal, bool)
}

// PositionReader exposes exposure plus average entry prices per leg.
type PositionReader interface {
	PositionDetail(ctx context.Context, symbol string) (pos domain.PositionSnapshot, longEntry, shortEntry decimal.Decimal, err error)
}

// TakeProfit polls watched symbols and closes a leg once its unrealized gain
// crosses the configured threshold. It shares the reconciler's per-symbol
// locks so a triggered close never races an in-flight reversal.
type TakeProfit struct {
	gw       exchange.Gateway
	detail   PositionReader
	prices   PriceSource
	locks    *reconcile.SymbolLocks
	symbols  []string
	trigger  decimal.Decimal // percent
	interval time.Duration
	log      *slog.Logger
}

func NewTakeProfit(gw exchange.Gateway, detail PositionReader, prices PriceSource, locks *reconcile.SymbolLocks, symbols []string, triggerPct float64, log *slog.Logger) *TakeProfit {
	return &TakeProfit{
		gw:       gw,
		detail:   detail,
		prices:   prices,
		locks:    locks,
		symbols:  symbols,
		trigger:  decimal.NewFromFloat(triggerPct),
		interval: 5 * time.Second,
		log:      log,
	}
}

// Run polls until ctx is cancelled. Errors are logged and the loop carries
// on; a missed poll is harmless, the next one sees the same position.
func (t *TakeProfit) Run(ctx context.Context) {
	t.log.Info("take-profit monitor started",
		slog.Any("symbols", t.symbols),
		slog.String("trigger_pct", t.trigger.String()))

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.log.Info("take-profit monitor stopped")
			return
		case <-ticker.C:
			for _, sym := range t.symbols {
				t.check(ctx, sym)
			}
		}
	}
}

func (t *TakeProfit) check(ctx context.Context, sym string) {
	price, ok := t.lastPrice(ctx, sym)
	if !ok {
		return
	}

	pos, longEntry, shortEntry, err := t.detail.PositionDetail(ctx, sym)
	if err != nil {
		t.log.Warn("take-profit position read failed", slog.String("symbol", sym), slog.Any("error", err))
		return
	}

	if pos.HasExposure(domain.SideLong) && gainPct(longEntry, price, domain.SideLong).GreaterThanOrEqual(t.trigger) {
		t.closeLeg(ctx, sym, domain.SideLong, price)
	}
	if pos.HasExposure(domain.SideShort) && gainPct(shortEntry, price, domain.SideShort).GreaterThanOrEqual(t.trigger) {
		t.closeLeg(ctx, sym, domain.SideShort, price)
	}
}

func (t *TakeProfit) lastPrice(ctx context.Context, sym string) (decimal.Decimal, bool) {
	if t.prices != nil {
		if p, ok := t.prices.Price(sym); ok {
			return p, true
		}
	}
	// Feed not warmed up yet; fall back to a REST quote.
	p, err := t.gw.LastPrice(ctx, sym)
	if err != nil {
		t.log.Warn("take-profit price read failed", slog.String("symbol", sym), slog.Any("error", err))
		return decimal.Zero, false
	}
	return p, true
}

// closeLeg re-reads the position under the symbol lock before closing: the
// exposure seen during the poll may already be gone.
func (t *TakeProfit) closeLeg(ctx context.Context, sym string, leg domain.Side, price decimal.Decimal) {
	mu := t.locks.Get(sym)
	mu.Lock()
	defer mu.Unlock()

	pos, err := t.gw.GetPosition(ctx, sym)
	if err != nil {
		t.log.Warn("take-profit re-read failed", slog.String("symbol", sym), slog.Any("error", err))
		return
	}
	if !pos.HasExposure(leg) {
		return
	}

	res, err := t.gw.PlaceOrder(ctx, domain.OrderRequest{
		Symbol:     sym,
		Side:       leg.Opposite(),
		Type:       domain.OrderTypeMarket,
		Size:       pos.Held(leg),
		ReduceOnly: true,
	})
	if err != nil {
		t.log.Error("take-profit close failed", slog.String("symbol", sym), slog.Any("error", err))
		return
	}

	t.log.Info("take-profit close filled",
		slog.String("symbol", sym),
		slog.String("leg", leg.String()),
		slog.String("size", res.Size.String()),
		slog.String("price", price.String()))
}

// gainPct is the unrealized gain of a leg in percent. Zero or missing entry
// prices yield zero so a half-populated response can never trigger a close.
func gainPct(entry, price decimal.Decimal, leg domain.Side) decimal.Decimal {
	if !entry.IsPositive() {
		return decimal.Zero
	}
	diff := price.Sub(entry)
	if leg == domain.SideShort {
		diff = entry.Sub(price)
	}
	return diff.Div(entry).Mul(decimal.NewFromInt(100))
}
