package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/siwoo2013/siu-autotrade-gui/internal/domain"
)

// Params configures a backtest run. TP/SL are expressed as ATR multiples of
// the entry bar's ATR; zero disables the respective exit.
type Params struct {
	NotionalUSDT float64 // fixed notional per trade
	FeeRate      float64 // taker fee one way, e.g. 0.0006
	Period       int     // supertrend ATR period
	Multiplier   float64 // supertrend band multiplier

	TPATRMult float64
	SLATRMult float64
	// When a bar hits both TP and SL, assume the stop filled first.
	ConservativeStopFirst bool
}

// DefaultParams mirror the live strategy's tuning.
var DefaultParams = Params{
	NotionalUSDT:          100.0,
	FeeRate:               0.0006,
	Period:                10,
	Multiplier:            3.0,
	ConservativeStopFirst: true,
}

// Trade is one closed round trip.
type Trade struct {
	Side       domain.Side
	EntryIdx   int
	EntryTime  time.Time
	EntryPrice float64
	ExitIdx    int
	ExitTime   time.Time
	ExitPrice  float64
	PnLAbs     float64 // USDT, fees included
	PnLPct     float64 // of notional
}

// MonthlyPnL is the realized PnL of all trades exiting in one month.
type MonthlyPnL struct {
	Month string // "2025-06"
	PnL   float64
}

// Summary aggregates a finished run.
type Summary struct {
	TotalPnL       float64
	WinRate        float64 // percent
	NumTrades      int
	MaxDrawdown    float64 // most negative equity excursion, <= 0
	SharpePerTrade float64
	Equity         []float64 // starts at the initial balance
}

// Result is everything a run produces.
type Result struct {
	Trades  []Trade
	Monthly []MonthlyPnL
	Summary Summary
}

const startingBalance = 1000.0

// Run simulates the always-in flip strategy over the candles: every
// supertrend flip closes the running position at the bar's open and opens
// the other direction, with optional intra-bar TP/SL exits in between.
// Pure and single-pass; no exchange, no concurrency.
func Run(candles []Candle, p Params) Result {
	points := Supertrend(candles, p.Period, p.Multiplier)

	var trades []Trade
	var pos *Trade

	closeAt := func(i int, price float64) {
		var gross float64
		if pos.Side == domain.SideLong {
			gross = (price - pos.EntryPrice) / pos.EntryPrice
		} else {
			gross = (pos.EntryPrice - price) / pos.EntryPrice
		}
		fees := p.NotionalUSDT * p.FeeRate * 2
		pnl := p.NotionalUSDT*gross - fees

		pos.ExitIdx = i
		pos.ExitTime = candles[i].Time
		pos.ExitPrice = price
		pos.PnLAbs = pnl
		pos.PnLPct = pnl / p.NotionalUSDT * 100.0
		trades = append(trades, *pos)
		pos = nil
	}

	for i := 1; i < len(candles); i++ {
		flippedUp := !points[i-1].Up && points[i].Up
		flippedDown := points[i-1].Up && !points[i].Up
		openPrice := candles[i].Open

		var openSide domain.Side
		doOpen := false
		if flippedUp || flippedDown {
			if pos != nil {
				closeAt(i, openPrice)
			}
			doOpen = true
			if flippedUp {
				openSide = domain.SideLong
			} else {
				openSide = domain.SideShort
			}
		}

		if pos != nil && (p.TPATRMult > 0 || p.SLATRMult > 0) {
			entryATR := points[pos.EntryIdx].ATR
			if price, hit := checkTPSL(candles[i], pos, entryATR, p); hit {
				closeAt(i, price)
			}
		}

		if doOpen && pos == nil {
			pos = &Trade{
				Side:       openSide,
				EntryIdx:   i,
				EntryTime:  candles[i].Time,
				EntryPrice: openPrice,
			}
		}
	}

	// Force-close whatever is still running at the final close.
	if pos != nil {
		closeAt(len(candles)-1, candles[len(candles)-1].Close)
	}

	return Result{
		Trades:  trades,
		Monthly: monthlyPnL(trades),
		Summary: summarize(trades),
	}
}

// checkTPSL evaluates intra-bar TP/SL levels against the bar's extremes and
// returns the exit price if one fired.
func checkTPSL(bar Candle, pos *Trade, entryATR float64, p Params) (float64, bool) {
	var tp, sl float64
	var hasTP, hasSL, hitTP, hitSL bool

	if pos.Side == domain.SideLong {
		if p.TPATRMult > 0 {
			tp, hasTP = pos.EntryPrice+entryATR*p.TPATRMult, true
		}
		if p.SLATRMult > 0 {
			sl, hasSL = pos.EntryPrice-entryATR*p.SLATRMult, true
		}
		hitTP = hasTP && bar.High >= tp
		hitSL = hasSL && bar.Low <= sl
	} else {
		if p.TPATRMult > 0 {
			tp, hasTP = pos.EntryPrice-entryATR*p.TPATRMult, true
		}
		if p.SLATRMult > 0 {
			sl, hasSL = pos.EntryPrice+entryATR*p.SLATRMult, true
		}
		hitTP = hasTP && bar.Low <= tp
		hitSL = hasSL && bar.High >= sl
	}

	switch {
	case hitTP && hitSL:
		if p.ConservativeStopFirst {
			return sl, true
		}
		return tp, true
	case hitTP:
		return tp, true
	case hitSL:
		return sl, true
	}
	return 0, false
}

func summarize(trades []Trade) Summary {
	equity := make([]float64, 0, len(trades)+1)
	equity = append(equity, startingBalance)
	total := 0.0
	wins := 0
	for _, t := range trades {
		total += t.PnLAbs
		if t.PnLAbs > 0 {
			wins++
		}
		equity = append(equity, equity[len(equity)-1]+t.PnLAbs)
	}

	maxDD := 0.0
	peak := equity[0]
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if dd := e - peak; dd < maxDD {
			maxDD = dd
		}
	}

	s := Summary{
		TotalPnL:    total,
		NumTrades:   len(trades),
		MaxDrawdown: maxDD,
		Equity:      equity,
	}
	if len(trades) > 0 {
		s.WinRate = float64(wins) / float64(len(trades)) * 100.0
	}
	if len(trades) > 1 {
		rets := make([]float64, len(trades))
		for i, t := range trades {
			rets[i] = t.PnLPct / 100.0
		}
		s.SharpePerTrade = mean(rets) / (stddev(rets) + 1e-12)
	}
	return s
}

func monthlyPnL(trades []Trade) []MonthlyPnL {
	byMonth := make(map[string]float64)
	for _, t := range trades {
		byMonth[t.ExitTime.Format("2006-01")] += t.PnLAbs
	}
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	out := make([]MonthlyPnL, 0, len(months))
	for _, m := range months {
		out = append(out, MonthlyPnL{Month: m, PnL: byMonth[m]})
	}
	return out
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the sample standard deviation (n-1 denominator).
func stddev(xs []float64) float64 {
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
