// Package symbol maps external ticker spellings onto Bitget's canonical
// instrument identifiers.
package symbol

import "strings"

// CanonicalSuffix is Bitget's USDT-M perpetual product suffix.
const CanonicalSuffix = "_UMCBL"

// perpSuffixes are spellings that signal sources append to mark a perpetual
// contract. They carry no information once the canonical suffix is applied.
var perpSuffixes = []string{".PERP", ".P", "PERP"}

// Normalize converts an external ticker spelling into the canonical Bitget
// instrument id: "BTCUSDT.P" -> "BTCUSDT_UMCBL".
//
// It is a total function: any input yields some canonical symbol. A garbage
// input fails later at the gateway with the exchange's unknown-instrument
// error, which is far easier to diagnose than a silent drop here.
func Normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))

	// TradingView prefixes the venue, e.g. "BITGET:BTCUSDT.P".
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}

	if strings.HasSuffix(s, CanonicalSuffix) {
		return s
	}

	for _, suf := range perpSuffixes {
		if strings.HasSuffix(s, suf) {
			s = strings.TrimSuffix(s, suf)
			break
		}
	}

	return s + CanonicalSuffix
}
