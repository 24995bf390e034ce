package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/siwoo2013/siu-autotrade-gui/internal/domain"
)

// simLeg is one side of a simulated one-way position.
type simLeg struct {
	qty   decimal.Decimal
	entry decimal.Decimal
}

// Simulator is the demo-mode gateway: it fills market orders instantly
// against in-memory one-way positions and never touches the network.
type Simulator struct {
	mu        sync.Mutex
	positions map[string]map[domain.Side]*simLeg
	prices    map[string]decimal.Decimal
}

// NewSimulator creates an empty simulated exchange.
func NewSimulator() *Simulator {
	return &Simulator{
		positions: make(map[string]map[domain.Side]*simLeg),
		prices:    make(map[string]decimal.Decimal),
	}
}

// SetPrice seeds the simulated last price for a symbol.
func (s *Simulator) SetPrice(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

// GetPosition reports the simulated exposure.
func (s *Simulator) GetPosition(ctx context.Context, symbol string) (domain.PositionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.PositionSnapshot{Symbol: symbol, Long: decimal.Zero, Short: decimal.Zero}
	if legs, ok := s.positions[symbol]; ok {
		if l := legs[domain.SideLong]; l != nil {
			snap.Long = l.qty
		}
		if sh := legs[domain.SideShort]; sh != nil {
			snap.Short = sh.qty
		}
	}
	return snap, nil
}

// PlaceOrder fills a market order immediately.
//
// One-way semantics: a reduce-only buy shrinks the short leg, a reduce-only
// sell shrinks the long leg. Oversized reduce-only orders are rejected the
// way the real exchange rejects them.
func (s *Simulator) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if !req.Size.IsPositive() {
		return domain.OrderResult{}, domain.NewError(domain.KindExchange, fmt.Errorf("sim: size must be positive"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	legs, ok := s.positions[req.Symbol]
	if !ok {
		legs = map[domain.Side]*simLeg{
			domain.SideLong:  {qty: decimal.Zero},
			domain.SideShort: {qty: decimal.Zero},
		}
		s.positions[req.Symbol] = legs
	}

	if req.ReduceOnly {
		target := legs[req.Side.Opposite()]
		if req.Size.GreaterThan(target.qty.Add(domain.QtyEpsilon)) {
			return domain.OrderResult{}, domain.NewError(domain.KindExchange,
				fmt.Errorf("sim: reduce-only size %s exceeds held %s", req.Size, target.qty))
		}
		target.qty = target.qty.Sub(req.Size)
		if target.qty.LessThan(decimal.Zero) {
			target.qty = decimal.Zero
		}
	} else {
		leg := legs[req.Side]
		leg.qty = leg.qty.Add(req.Size)
		if price, ok := s.prices[req.Symbol]; ok {
			leg.entry = price
		}
	}

	clientOID := req.ClientOID
	if clientOID == "" {
		clientOID = "sim-" + uuid.NewString()
	}

	res := domain.OrderResult{
		OrderID:    "sim-" + uuid.NewString(),
		ClientOID:  clientOID,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Size:       req.Size,
		ReduceOnly: req.ReduceOnly,
		PlacedAt:   time.Now().UTC(),
	}

	slog.Info("SIMULATED fill",
		slog.String("symbol", req.Symbol),
		slog.String("side", req.Side.String()),
		slog.String("size", req.Size.String()),
		slog.Bool("reduceOnly", req.ReduceOnly))

	return res, nil
}

// LastPrice returns the seeded price.
func (s *Simulator) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.prices[symbol]
	if !ok {
		return decimal.Zero, domain.NewError(domain.KindExchange, fmt.Errorf("sim: no price seeded for %s", symbol))
	}
	return price, nil
}

// PositionDetail reports exposure plus average entry prices.
func (s *Simulator) PositionDetail(ctx context.Context, symbol string) (domain.PositionSnapshot, decimal.Decimal, decimal.Decimal, error) {
	snap, err := s.GetPosition(ctx, symbol)
	if err != nil {
		return snap, decimal.Zero, decimal.Zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	longEntry, shortEntry := decimal.Zero, decimal.Zero
	if legs, ok := s.positions[symbol]; ok {
		if l := legs[domain.SideLong]; l != nil {
			longEntry = l.entry
		}
		if sh := legs[domain.SideShort]; sh != nil {
			shortEntry = sh.entry
		}
	}
	return snap, longEntry, shortEntry, nil
}
