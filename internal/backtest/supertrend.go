package backtest

import "time"

// Candle is one OHLCV bar.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Point is the supertrend overlay for one bar.
type Point struct {
	Line float64 // trailing supertrend line
	Up   bool    // close at or above the line
	Flip bool    // direction changed on this bar
	ATR  float64
}

// ATR computes the average true range as a Wilder EMA (alpha = 1/period).
// The first bar's true range is simply high-low; there is no prior close.
func ATR(candles []Candle, period int) []float64 {
	n := len(candles)
	if n == 0 {
		return nil
	}

	tr := make([]float64, n)
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < n; i++ {
		hl := candles[i].High - candles[i].Low
		hc := abs(candles[i].High - candles[i-1].Close)
		lc := abs(candles[i].Low - candles[i-1].Close)
		tr[i] = max3(hl, hc, lc)
	}

	alpha := 1.0 / float64(period)
	atr := make([]float64, n)
	atr[0] = tr[0]
	for i := 1; i < n; i++ {
		atr[i] = atr[i-1] + alpha*(tr[i]-atr[i-1])
	}
	return atr
}

// Supertrend computes the classic trailing-band supertrend overlay. The band
// carry-over compares against the raw previous bands, matching the reference
// line the live signals were tuned on.
func Supertrend(candles []Candle, period int, multiplier float64) []Point {
	n := len(candles)
	if n == 0 {
		return nil
	}

	atr := ATR(candles, period)
	upper := make([]float64, n)
	lower := make([]float64, n)
	for i := 0; i < n; i++ {
		hl2 := (candles[i].High + candles[i].Low) / 2.0
		upper[i] = hl2 + multiplier*atr[i]
		lower[i] = hl2 - multiplier*atr[i]
	}

	points := make([]Point, n)
	points[0] = Point{Line: upper[0], Up: candles[0].Close >= upper[0], ATR: atr[0]}

	for i := 1; i < n; i++ {
		prevClose := candles[i-1].Close

		upperI := upper[i]
		if !(upper[i] < upper[i-1] || prevClose > upper[i-1]) {
			upperI = upper[i-1]
		}
		lowerI := lower[i]
		if !(lower[i] > lower[i-1] || prevClose < lower[i-1]) {
			lowerI = lower[i-1]
		}

		var line float64
		if points[i-1].Line == upper[i-1] {
			if candles[i].Close <= upperI {
				line = upperI
			} else {
				line = lowerI
			}
		} else {
			if candles[i].Close >= lowerI {
				line = lowerI
			} else {
				line = upperI
			}
		}

		up := candles[i].Close >= line
		points[i] = Point{Line: line, Up: up, Flip: up != points[i-1].Up, ATR: atr[i]}
	}
	return points
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
