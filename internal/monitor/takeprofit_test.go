package monitor

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/siwoo2013/siu-autotrade-gui/internal/domain"
	"github.com/siwoo2013/siu-autotrade-gui/internal/exchange"
	"github.com/siwoo2013/siu-autotrade-gui/internal/reconcile"
)

const sym = "BTCUSDT_UMCBL"

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

type staticPrices map[string]decimal.Decimal

func (p staticPrices) Price(canonical string) (decimal.Decimal, bool) {
	v, ok := p[canonical]
	return v, ok
}

func newTestMonitor(sim *exchange.Simulator, prices PriceSource, trigger float64) *TakeProfit {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTakeProfit(sim, sim, prices, reconcile.NewSymbolLocks(), []string{sym}, trigger, log)
}

func TestGainPct(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		price string
		leg   domain.Side
		want  string
	}{
		{"long up 5 percent", "100", "105", domain.SideLong, "5"},
		{"long down", "100", "95", domain.SideLong, "-5"},
		{"short up 5 percent", "100", "95", domain.SideShort, "5"},
		{"short down", "100", "105", domain.SideShort, "-5"},
		{"zero entry never triggers", "0", "105", domain.SideLong, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gainPct(d(tt.entry), d(tt.price), tt.leg)
			if !got.Equal(d(tt.want)) {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCheckClosesLongAboveTrigger(t *testing.T) {
	sim := exchange.NewSimulator()
	ctx := context.Background()

	sim.SetPrice(sym, d("100"))
	if _, err := sim.PlaceOrder(ctx, domain.OrderRequest{
		Symbol: sym, Side: domain.SideLong, Type: domain.OrderTypeMarket, Size: d("0.02"),
	}); err != nil {
		t.Fatal(err)
	}

	// Price moved +5% against a 3% trigger.
	tp := newTestMonitor(sim, staticPrices{sym: d("105")}, 3.0)
	tp.check(ctx, sym)

	pos, err := sim.GetPosition(ctx, sym)
	if err != nil {
		t.Fatal(err)
	}
	if !pos.IsFlat() {
		t.Fatalf("expected flat after take-profit close, got long=%s", pos.Long)
	}
}

func TestCheckLeavesPositionBelowTrigger(t *testing.T) {
	sim := exchange.NewSimulator()
	ctx := context.Background()

	sim.SetPrice(sym, d("100"))
	if _, err := sim.PlaceOrder(ctx, domain.OrderRequest{
		Symbol: sym, Side: domain.SideLong, Type: domain.OrderTypeMarket, Size: d("0.02"),
	}); err != nil {
		t.Fatal(err)
	}

	tp := newTestMonitor(sim, staticPrices{sym: d("101")}, 3.0)
	tp.check(ctx, sym)

	pos, _ := sim.GetPosition(ctx, sym)
	if !pos.Long.Equal(d("0.02")) {
		t.Fatalf("position should be untouched below trigger, got long=%s", pos.Long)
	}
}

func TestCheckClosesShortLeg(t *testing.T) {
	sim := exchange.NewSimulator()
	ctx := context.Background()

	sim.SetPrice(sym, d("100"))
	if _, err := sim.PlaceOrder(ctx, domain.OrderRequest{
		Symbol: sym, Side: domain.SideShort, Type: domain.OrderTypeMarket, Size: d("1"),
	}); err != nil {
		t.Fatal(err)
	}

	// Shorts profit when price falls.
	tp := newTestMonitor(sim, staticPrices{sym: d("90")}, 5.0)
	tp.check(ctx, sym)

	pos, _ := sim.GetPosition(ctx, sym)
	if !pos.IsFlat() {
		t.Fatalf("expected flat after short take-profit, got short=%s", pos.Short)
	}
}

func TestCheckFallsBackToRESTPrice(t *testing.T) {
	sim := exchange.NewSimulator()
	ctx := context.Background()

	sim.SetPrice(sym, d("100"))
	if _, err := sim.PlaceOrder(ctx, domain.OrderRequest{
		Symbol: sym, Side: domain.SideLong, Type: domain.OrderTypeMarket, Size: d("0.02"),
	}); err != nil {
		t.Fatal(err)
	}
	// The feed has no tick yet, but the gateway quote moved to +10%.
	sim.SetPrice(sym, d("110"))

	tp := newTestMonitor(sim, staticPrices{}, 3.0)
	tp.check(ctx, sym)

	pos, _ := sim.GetPosition(ctx, sym)
	if !pos.IsFlat() {
		t.Fatalf("expected close via fallback price, got long=%s", pos.Long)
	}
}
