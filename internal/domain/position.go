package domain

import "github.com/shopspring/decimal"

// QtyEpsilon absorbs exchange float noise when deciding whether an exposure
// is zero. It sits well below any Bitget contract size step.
var QtyEpsilon = decimal.New(1, -9) // 1e-9

// PositionSnapshot is the exchange-reported exposure for one symbol at one
// instant. It is read fresh from the gateway for every reconciliation
// decision and never cached: a stale snapshot directly causes
// wrong-direction orders.
//
// In one-way accounting at most one leg is non-zero at steady state, but the
// exchange can transiently report both; callers must not assume a mode.
type PositionSnapshot struct {
	Symbol string
	Long   decimal.Decimal
	Short  decimal.Decimal
}

// Held returns the exposure on the given side.
func (p PositionSnapshot) Held(side Side) decimal.Decimal {
	if side == SideLong {
		return p.Long
	}
	return p.Short
}

// HasExposure reports whether the given side's quantity is meaningfully
// non-zero.
func (p PositionSnapshot) HasExposure(side Side) bool {
	return p.Held(side).GreaterThan(QtyEpsilon)
}

// IsFlat reports whether both legs are (effectively) zero.
func (p PositionSnapshot) IsFlat() bool {
	return !p.HasExposure(SideLong) && !p.HasExposure(SideShort)
}
