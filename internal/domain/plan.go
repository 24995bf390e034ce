package domain

import "github.com/shopspring/decimal"

// ReconcileState names the shape of a finished reconciliation, echoed to the
// webhook caller.
type ReconcileState string

const (
	// StateSameDirectionSkip: target side already held; no orders issued.
	StateSameDirectionSkip ReconcileState = "same-direction-skip"
	// StateFlatOpen: no prior exposure; a single open order was issued.
	StateFlatOpen ReconcileState = "flat->open"
	// StateReverse: opposite exposure was closed, then the target side opened.
	StateReverse ReconcileState = "reverse"
)

// OrderIntent is one planned order: a side, a quantity and whether the order
// may only reduce existing exposure.
type OrderIntent struct {
	Side       Side
	Qty        decimal.Decimal
	ReduceOnly bool
}

// ActionPlan is the reconciler's planning output. Close, when present, must
// exactly cancel the reported opposite exposure before Open is issued; its
// quantity always comes from the live snapshot, never from the directive.
type ActionPlan struct {
	State ReconcileState
	Close *OrderIntent
	Open  *OrderIntent
}

// Empty reports whether the plan issues no orders (same-direction skip).
func (p ActionPlan) Empty() bool {
	return p.Close == nil && p.Open == nil
}

// ReconcileResult is what a finished reconciliation returns to the router.
type ReconcileResult struct {
	State  ReconcileState `json:"state"`
	Closed *OrderResult   `json:"closed"`
	Opened *OrderResult   `json:"opened"`
}

// PlanReversal computes the minimal close+open plan for a reverse directive
// against a live snapshot.
func PlanReversal(target Side, size decimal.Decimal, pos PositionSnapshot) ActionPlan {
	if pos.HasExposure(target) {
		return ActionPlan{State: StateSameDirectionSkip}
	}
	opposite := target.Opposite()
	if pos.HasExposure(opposite) {
		// In one-way accounting the order that reduces the opposite leg is
		// placed on the target side with reduceOnly set. The close quantity
		// is the reported exposure, never the directive's size.
		return ActionPlan{
			State: StateReverse,
			Close: &OrderIntent{Side: target, Qty: pos.Held(opposite), ReduceOnly: true},
			Open:  &OrderIntent{Side: target, Qty: size},
		}
	}
	return ActionPlan{
		State: StateFlatOpen,
		Open:  &OrderIntent{Side: target, Qty: size},
	}
}
