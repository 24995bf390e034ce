package bitget

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// REST endpoint paths (Mix v1, USDT-M perpetual).
const (
	pathPlaceOrder      = "/api/mix/v1/order/placeOrder"
	pathSinglePosition  = "/api/mix/v1/position/singlePosition"
	pathTicker          = "/api/mix/v1/market/ticker"
	pathPositionMode    = "/api/mix/v1/account/positionMode"
	pathSetPositionMode = "/api/mix/v1/account/setPositionMode"

	marginCoin  = "USDT"
	productType = "umcbl"

	codeOK = "00000"
)

// apiResponse is the Bitget envelope: {"code":"00000","msg":"success","data":...}.
type apiResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (r apiResponse) ok() bool {
	return r.Code == codeOK || r.Code == "0" || r.Code == ""
}

// placeOrderRequest is the placeOrder body.
type placeOrderRequest struct {
	Symbol           string `json:"symbol"`
	MarginCoin       string `json:"marginCoin"`
	Size             string `json:"size"`
	Side             string `json:"side"`      // buy | sell (one-way mode)
	OrderType        string `json:"orderType"` // market
	ReduceOnly       bool   `json:"reduceOnly"`
	TimeInForceValue string `json:"timeInForceValue"`
	ClientOid        string `json:"clientOid,omitempty"`
}

// placeOrderData is the placeOrder acknowledgement payload.
type placeOrderData struct {
	OrderID   string `json:"orderId"`
	ClientOid string `json:"clientOid"`
}

// tickerData carries the fields we read from the market ticker payload.
type tickerData struct {
	Symbol string `json:"symbol"`
	Last   string `json:"last"`
}

// positionModeData is the account position-mode payload.
// {"holdMode":"single_hold"} or {"posMode":"one_way_mode"} depending on the
// API revision.
type positionModeData struct {
	HoldMode string `json:"holdMode"`
	PosMode  string `json:"posMode"`
}

func (p positionModeData) mode() string {
	if p.HoldMode != "" {
		return p.HoldMode
	}
	if p.PosMode != "" {
		return p.PosMode
	}
	return "unknown"
}

// positionLegs is the normalized form of the singlePosition payload.
type positionLegs struct {
	Long       decimal.Decimal
	Short      decimal.Decimal
	LongEntry  decimal.Decimal
	ShortEntry decimal.Decimal
}

// positionEntry is one leg as reported in the list-shaped payload.
type positionEntry struct {
	HoldSide         string `json:"holdSide"`
	Total            string `json:"total"`
	Available        string `json:"available"`
	AverageOpenPrice string `json:"averageOpenPrice"`
}

// legObject is one leg in the dict-shaped payload: {"long":{"total":...}}.
type legObject struct {
	Total            string `json:"total"`
	AverageOpenPrice string `json:"averageOpenPrice"`
}

// parsePositionData normalizes the two payload shapes the singlePosition
// endpoint has been observed to return:
//
//	dict: {"long":{"total":"0.02",...},"short":{"total":"0",...}}
//	list: [{"holdSide":"long","total":"0.02",...},{"holdSide":"short",...}]
//
// Missing legs parse as zero. This is the single place the shape ambiguity
// lives; callers only ever see positionLegs.
func parsePositionData(raw json.RawMessage) (positionLegs, error) {
	var legs positionLegs
	if len(raw) == 0 || string(raw) == "null" {
		return legs, nil
	}

	switch raw[0] {
	case '[':
		var entries []positionEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return legs, fmt.Errorf("list-shaped position payload: %w", err)
		}
		for _, e := range entries {
			qty := parseQty(e.Total)
			entry := parseQty(e.AverageOpenPrice)
			switch e.HoldSide {
			case "long":
				legs.Long = qty
				legs.LongEntry = entry
			case "short":
				legs.Short = qty
				legs.ShortEntry = entry
			}
		}
		return legs, nil

	case '{':
		var obj struct {
			Long  *legObject `json:"long"`
			Short *legObject `json:"short"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return legs, fmt.Errorf("dict-shaped position payload: %w", err)
		}
		if obj.Long != nil {
			legs.Long = parseQty(obj.Long.Total)
			legs.LongEntry = parseQty(obj.Long.AverageOpenPrice)
		}
		if obj.Short != nil {
			legs.Short = parseQty(obj.Short.Total)
			legs.ShortEntry = parseQty(obj.Short.AverageOpenPrice)
		}
		return legs, nil

	default:
		return legs, fmt.Errorf("unrecognized position payload shape: %s", truncate(string(raw), 80))
	}
}

// parseQty parses an exchange-reported quantity string. Empty or malformed
// values parse as zero: a leg the exchange cannot report a number for is a
// leg we must treat as absent, not a reason to fail the whole snapshot.
func parseQty(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
