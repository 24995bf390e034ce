package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderRequest is one gateway order call.
type OrderRequest struct {
	Symbol     string // canonical instrument id
	Side       Side
	Type       string // MARKET
	Size       decimal.Decimal
	ReduceOnly bool
	ClientOID  string
}

// OrderResult is the exchange acknowledgement for a placed order.
// It is ephemeral: logged, journaled and echoed in the webhook response.
type OrderResult struct {
	OrderID    string          `json:"order_id"`
	ClientOID  string          `json:"client_oid,omitempty"`
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Size       decimal.Decimal `json:"size"`
	ReduceOnly bool            `json:"reduce_only"`
	PlacedAt   time.Time       `json:"placed_at"`
}
