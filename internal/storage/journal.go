package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/siwoo2013/siu-autotrade-gui/internal/domain"

	_ "github.com/glebarez/go-sqlite"
)

// Journal persists every placed order to SQLite so an operator can audit
// what the relay actually did. It is write-behind bookkeeping only; the
// reconciler never reads it back to make decisions.
type Journal struct {
	db *sql.DB
}

// NewJournal opens (or creates) the journal database with WAL mode enabled.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id TEXT NOT NULL,
			client_oid TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			size TEXT NOT NULL,
			reduce_only INTEGER NOT NULL,
			state TEXT NOT NULL,
			placed_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create orders table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol, placed_at);`)
	if err != nil {
		return nil, fmt.Errorf("failed to create orders index: %w", err)
	}

	return &Journal{db: db}, nil
}

// OrderRecord is one journaled order as read back for the operator API.
type OrderRecord struct {
	OrderID    string          `json:"order_id"`
	ClientOID  string          `json:"client_oid,omitempty"`
	Symbol     string          `json:"symbol"`
	Side       domain.Side     `json:"side"`
	Size       decimal.Decimal `json:"size"`
	ReduceOnly bool            `json:"reduce_only"`
	State      string          `json:"state"`
	PlacedAt   time.Time       `json:"placed_at"`
}

// Append records one placed order with the reconciliation state it belonged
// to ("reverse", "flat->open", ...).
func (j *Journal) Append(ctx context.Context, state domain.ReconcileState, res domain.OrderResult) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO orders (order_id, client_oid, symbol, side, size, reduce_only, state, placed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		res.OrderID, res.ClientOID, res.Symbol, string(res.Side), res.Size.String(),
		boolToInt(res.ReduceOnly), string(state), res.PlacedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// RecordResult journals both legs of a finished reconciliation.
func (j *Journal) RecordResult(ctx context.Context, res domain.ReconcileResult) error {
	if res.Closed != nil {
		if err := j.Append(ctx, res.State, *res.Closed); err != nil {
			return err
		}
	}
	if res.Opened != nil {
		if err := j.Append(ctx, res.State, *res.Opened); err != nil {
			return err
		}
	}
	return nil
}

// Recent returns the newest orders, newest first. An empty symbol matches
// all symbols. Limit is clamped to [1, 500].
func (j *Journal) Recent(ctx context.Context, symbol string, limit int) ([]OrderRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := "SELECT order_id, client_oid, symbol, side, size, reduce_only, state, placed_at FROM orders"
	args := []any{}
	if symbol != "" {
		query += " WHERE symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY placed_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var records []OrderRecord
	for rows.Next() {
		var (
			rec        OrderRecord
			side, size string
			reduceOnly int
			placedAt   int64
		)
		if err := rows.Scan(&rec.OrderID, &rec.ClientOID, &rec.Symbol, &side, &size, &reduceOnly, &rec.State, &placedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		rec.Side = domain.Side(side)
		rec.Size, err = decimal.NewFromString(size)
		if err != nil {
			return nil, fmt.Errorf("corrupt size in journal: %w", err)
		}
		rec.ReduceOnly = reduceOnly != 0
		rec.PlacedAt = time.UnixMilli(placedAt).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
