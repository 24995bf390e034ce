package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Route selects the execution path for an inbound directive.
type Route string

const (
	// RouteOpen places an open order unconditionally; the caller is
	// responsible for avoiding unwanted stacking.
	RouteOpen Route = "order.open"
	// RouteReverse reconciles the exchange position toward the target side,
	// closing any opposite exposure first.
	RouteReverse Route = "order.reverse"
)

// OrderTypeMarket is the only supported order type. Limit-order lifecycle
// (price, time-in-force, cancellation) is out of scope for the relay.
const OrderTypeMarket = "MARKET"

// Directive is one inbound webhook instruction. It is immutable and
// discarded after processing; nothing is persisted.
type Directive struct {
	Route     Route
	Exchange  string
	RawSymbol string // external spelling, e.g. "BTCUSDT.P"
	Side      Side
	OrderType string
	Size      decimal.Decimal
}

// Validate rejects caller mistakes before any gateway call is made.
func (d Directive) Validate() error {
	switch d.Route {
	case RouteOpen, RouteReverse:
	default:
		return NewError(KindUnsupported, fmt.Errorf("route must be %s or %s, got %q", RouteOpen, RouteReverse, d.Route))
	}
	if d.OrderType != OrderTypeMarket {
		return NewError(KindUnsupported, fmt.Errorf("order type %q not supported (MARKET only)", d.OrderType))
	}
	if d.RawSymbol == "" {
		return NewError(KindBadDirective, fmt.Errorf("symbol is required"))
	}
	if !d.Size.IsPositive() {
		return NewError(KindBadDirective, fmt.Errorf("size must be > 0, got %s", d.Size))
	}
	return nil
}
