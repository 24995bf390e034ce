package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/siwoo2013/siu-autotrade-gui/internal/domain"
	"github.com/siwoo2013/siu-autotrade-gui/internal/exchange"
	"github.com/siwoo2013/siu-autotrade-gui/internal/infra"
)

// Reconciler drives the close/open sequence that moves the exchange-side
// position toward a directive's target side. It holds no position state of
// its own; the exchange is always queried fresh.
type Reconciler struct {
	gw             exchange.Gateway
	locks          *SymbolLocks
	confirmRetries int
	backoff        infra.BackoffPolicy
	log            *slog.Logger
}

func NewReconciler(gw exchange.Gateway, cfg *infra.Config, log *slog.Logger) *Reconciler {
	return &Reconciler{
		gw:             gw,
		locks:          NewSymbolLocks(),
		confirmRetries: cfg.Reconcile.CloseConfirmRetries,
		backoff:        infra.GatewayBackoff,
		log:            log,
	}
}

// Locks exposes the per-symbol locks so peripheral pollers can coordinate
// with in-flight reconciliations before issuing their own closing orders.
func (r *Reconciler) Locks() *SymbolLocks { return r.locks }

// Open places an open order unconditionally. The caller accepts the risk of
// stacking onto an existing position; no position query is made.
func (r *Reconciler) Open(ctx context.Context, symbol string, side domain.Side, size decimal.Decimal) (domain.ReconcileResult, error) {
	mu := r.locks.Get(symbol)
	mu.Lock()
	defer mu.Unlock()

	opened, err := r.gw.PlaceOrder(ctx, domain.OrderRequest{
		Symbol: symbol,
		Side:   side,
		Type:   domain.OrderTypeMarket,
		Size:   size,
	})
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	return domain.ReconcileResult{State: domain.StateFlatOpen, Opened: &opened}, nil
}

// Reverse reconciles the position toward side: query, plan, close any
// opposite exposure, confirm the close converged to flat, then open.
//
// The close quantity always comes from the live snapshot, never from the
// directive. If the close never converges the open is aborted; opening on
// top of unclosed opposite exposure is the one failure this must never
// allow.
func (r *Reconciler) Reverse(ctx context.Context, symbol string, side domain.Side, size decimal.Decimal) (domain.ReconcileResult, error) {
	mu := r.locks.Get(symbol)
	mu.Lock()
	defer mu.Unlock()

	// QUERYING. The gateway retries transient failures internally; an error
	// here means retry exhaustion, so fail closed without issuing orders.
	pos, err := r.gw.GetPosition(ctx, symbol)
	if err != nil {
		return domain.ReconcileResult{}, err
	}

	// PLANNING.
	plan := domain.PlanReversal(side, size, pos)
	r.log.Info("reconcile plan",
		slog.String("symbol", symbol),
		slog.String("target", side.String()),
		slog.String("state", string(plan.State)),
		slog.String("long", pos.Long.String()),
		slog.String("short", pos.Short.String()))

	if plan.Empty() {
		return domain.ReconcileResult{State: domain.StateSameDirectionSkip}, nil
	}

	var closed *domain.OrderResult
	if plan.Close != nil {
		c, err := r.closeAndConfirm(ctx, symbol, side, *plan.Close)
		if err != nil {
			return domain.ReconcileResult{}, err
		}
		closed = c
	}

	// OPENING.
	opened, err := r.gw.PlaceOrder(ctx, domain.OrderRequest{
		Symbol: symbol,
		Side:   plan.Open.Side,
		Type:   domain.OrderTypeMarket,
		Size:   plan.Open.Qty,
	})
	if err != nil {
		return domain.ReconcileResult{}, err
	}

	return domain.ReconcileResult{State: plan.State, Closed: closed, Opened: &opened}, nil
}

// closeAndConfirm issues the reduce-only close and polls until the opposite
// exposure reads zero. Residual exposure triggers a re-close sized to the
// residual, up to confirmRetries times with backoff between attempts.
func (r *Reconciler) closeAndConfirm(ctx context.Context, symbol string, target domain.Side, intent domain.OrderIntent) (*domain.OrderResult, error) {
	// CLOSING.
	closed, err := r.gw.PlaceOrder(ctx, domain.OrderRequest{
		Symbol:     symbol,
		Side:       intent.Side,
		Type:       domain.OrderTypeMarket,
		Size:       intent.Qty,
		ReduceOnly: true,
	})
	if err != nil {
		return nil, err
	}

	// CONFIRMING_CLOSE.
	opposite := target.Opposite()
	for attempt := 0; ; attempt++ {
		cur, err := r.gw.GetPosition(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if !cur.HasExposure(opposite) {
			return &closed, nil
		}
		if attempt >= r.confirmRetries {
			return nil, domain.NewError(domain.KindCloseNotFlat,
				fmt.Errorf("residual %s exposure %s on %s after %d close attempts",
					opposite, cur.Held(opposite), symbol, attempt+1))
		}

		residual := cur.Held(opposite)
		r.log.Warn("close not yet flat, retrying",
			slog.String("symbol", symbol),
			slog.String("residual", residual.String()),
			slog.Int("attempt", attempt+1))

		if err := r.backoff.SleepBackoff(ctx, attempt); err != nil {
			return nil, err
		}
		reclose, err := r.gw.PlaceOrder(ctx, domain.OrderRequest{
			Symbol:     symbol,
			Side:       intent.Side,
			Type:       domain.OrderTypeMarket,
			Size:       residual,
			ReduceOnly: true,
		})
		if err != nil {
			return nil, err
		}
		closed = reclose
	}
}
