// Package exchange defines the narrow contract the relay has with the
// derivatives exchange, and selects a live or simulated implementation.
package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/siwoo2013/siu-autotrade-gui/internal/domain"
)

// Gateway is the exchange collaborator contract. Implementations are
// stateless with respect to positions: every GetPosition reports live
// exchange truth, never a client-side cache.
type Gateway interface {
	// GetPosition returns the current {long, short} exposure for a
	// canonical symbol.
	GetPosition(ctx context.Context, symbol string) (domain.PositionSnapshot, error)

	// PlaceOrder submits an order. Safe to retry only at transport level;
	// the implementation handles that internally.
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error)

	// LastPrice returns the latest traded price for a canonical symbol.
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}
