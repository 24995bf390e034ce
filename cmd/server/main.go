package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/siwoo2013/siu-autotrade-gui/internal/app"
	"github.com/siwoo2013/siu-autotrade-gui/internal/infra/bitget"
	"github.com/siwoo2013/siu-autotrade-gui/internal/monitor"
	"github.com/siwoo2013/siu-autotrade-gui/internal/reconcile"
	"github.com/siwoo2013/siu-autotrade-gui/internal/server"
	"github.com/siwoo2013/siu-autotrade-gui/internal/symbol"
)

func main() {
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := bootstrap.Config
	bootstrap.ProbePositionMode(ctx)

	rec := reconcile.NewReconciler(bootstrap.Gateway, cfg, bootstrap.Logger)

	// Optional take-profit watcher over the public ticker feed.
	if cfg.TakeProfit.Enabled && len(cfg.TakeProfit.Symbols) > 0 {
		canonical := make([]string, 0, len(cfg.TakeProfit.Symbols))
		for _, s := range cfg.TakeProfit.Symbols {
			canonical = append(canonical, symbol.Normalize(s))
		}

		var prices monitor.PriceSource
		if cfg.API.Bitget.WSURL != "" {
			feed := bitget.NewTickerFeed(cfg.API.Bitget.WSURL, canonical)
			feed.Start(ctx)
			defer feed.Stop()
			prices = feed
		}

		detail, ok := bootstrap.Gateway.(monitor.PositionReader)
		if !ok {
			slog.Error("gateway cannot report entry prices, take-profit disabled")
		} else {
			tp := monitor.NewTakeProfit(bootstrap.Gateway, detail, prices, rec.Locks(),
				canonical, cfg.TakeProfit.TriggerPct, bootstrap.Logger)
			go tp.Run(ctx)
		}
	}

	handler := server.NewHandler(cfg, bootstrap.Logger, rec, bootstrap.Gateway, bootstrap.Journal)
	srv := server.New(cfg.Server.Addr, handler.Routes(), bootstrap.Logger)

	if err := srv.Run(ctx); err != nil {
		slog.Error("❌ http server failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("👋 shut down cleanly")
}
