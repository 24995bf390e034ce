package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/siwoo2013/siu-autotrade-gui/internal/exchange"
	"github.com/siwoo2013/siu-autotrade-gui/internal/infra"
	"github.com/siwoo2013/siu-autotrade-gui/internal/infra/bitget"
	"github.com/siwoo2013/siu-autotrade-gui/internal/storage"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config  *infra.Config
	Logger  *slog.Logger
	Journal *storage.Journal
	Gateway exchange.Gateway
}

func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config, wires logging, opens the order journal and
// selects the trade gateway for the configured mode.
func (b *Bootstrap) Initialize() error {
	// Secrets may come from a .env file during development; a missing file
	// is not an error.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	b.Logger = infra.NewLogger(cfg)
	slog.SetDefault(b.Logger)

	infra.PrintBanner(cfg)

	// Data isolation per mode: live and demo never share a journal.
	mode := strings.ToLower(cfg.Trading.Mode)
	dataDir := filepath.Join(infra.GetWorkspaceDir(), "data", mode)
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "orders.db")
	journal, err := storage.NewJournal(dbPath)
	if err != nil {
		return err
	}
	b.Journal = journal
	slog.Info("✅ order journal ready (WAL mode)", slog.String("path", dbPath), slog.String("mode", mode))

	gw, err := exchange.NewGateway(cfg)
	if err != nil {
		return err
	}
	b.Gateway = gw

	return nil
}

// ProbePositionMode checks the account's position mode once at startup so
// order sides carry a fixed mapping afterwards. Best effort: an unreachable
// exchange logs a warning and one-way mode is assumed.
func (b *Bootstrap) ProbePositionMode(ctx context.Context) {
	client, ok := b.Gateway.(*bitget.Client)
	if !ok {
		return // simulator is always one-way
	}
	if err := client.EnsureOneWayMode(ctx); err != nil {
		slog.Warn("position mode probe failed, assuming one-way mode", slog.Any("error", err))
	}
}

// Shutdown releases held resources.
func (b *Bootstrap) Shutdown() {
	if b.Journal != nil {
		if err := b.Journal.Close(); err != nil {
			slog.Warn("journal close failed", slog.Any("error", err))
		}
	}
	if client, ok := b.Gateway.(*bitget.Client); ok {
		_ = client.Close()
	}
}
