package exchange

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/siwoo2013/siu-autotrade-gui/internal/infra"
	"github.com/siwoo2013/siu-autotrade-gui/internal/infra/bitget"
)

// NewGateway selects the gateway for the configured trade mode.
//
// Live mode carries a safety latch: the process refuses to start unless
// CONFIRM_REAL_MONEY=true is set, so a stray config edit cannot put real
// funds at risk.
func NewGateway(cfg *infra.Config) (Gateway, error) {
	switch cfg.Trading.Mode {
	case infra.ModeDemo:
		slog.Info("🔒 demo mode: using simulated exchange, no real orders")
		return NewSimulator(), nil

	case infra.ModeLive:
		if os.Getenv("CONFIRM_REAL_MONEY") != "true" {
			return nil, fmt.Errorf("SAFETY_GUARD: live trading requires CONFIRM_REAL_MONEY=true in the environment")
		}
		slog.Info("🚨 live mode: connecting to Bitget mainnet 🚨")
		return bitget.NewClient(cfg), nil

	default:
		return nil, fmt.Errorf("unknown trade mode %q", cfg.Trading.Mode)
	}
}
