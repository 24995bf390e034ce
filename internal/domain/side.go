package domain

import (
	"fmt"
	"strings"
)

// Side is the directional target of a directive or order.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// ParseSide maps external side spellings onto the internal enum.
// TradingView alerts say BUY/SELL; we also accept long/short directly.
func ParseSide(raw string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY", "LONG":
		return SideLong, nil
	case "SELL", "SHORT":
		return SideShort, nil
	default:
		return "", fmt.Errorf("unknown side %q (want BUY|SELL)", raw)
	}
}

// Opposite returns the other direction.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// OrderSide returns the Bitget one-way order side vocabulary.
// The account mode is probed once at startup, so this mapping is fixed.
func (s Side) OrderSide() string {
	if s == SideLong {
		return "buy"
	}
	return "sell"
}

func (s Side) String() string { return string(s) }
