package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/siwoo2013/siu-autotrade-gui/internal/backtest"
)

func main() {
	var (
		input        = flag.String("in", "", "OHLCV csv file (timestamp,open,high,low,close,volume)")
		tradesOut    = flag.String("trades", "", "write the trade list csv here (optional)")
		notional     = flag.Float64("notional", 100.0, "notional USDT per trade")
		feeRate      = flag.Float64("fee", 0.0006, "taker fee rate, one way")
		period       = flag.Int("period", 10, "supertrend ATR period")
		multiplier   = flag.Float64("mult", 3.0, "supertrend band multiplier")
		tpMult       = flag.Float64("tp", 0.0, "take-profit ATR multiple (0 disables)")
		slMult       = flag.Float64("sl", 0.0, "stop-loss ATR multiple (0 disables)")
		optimisticTP = flag.Bool("optimistic-tp", false, "when TP and SL hit the same bar, assume TP filled first")
	)
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: backtest -in candles.csv [-trades out.csv] [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	f, err := os.Open(*input)
	if err != nil {
		fatal(err)
	}
	defer f.Close()

	candles, err := backtest.LoadCSV(f)
	if err != nil {
		fatal(err)
	}

	res := backtest.Run(candles, backtest.Params{
		NotionalUSDT:          *notional,
		FeeRate:               *feeRate,
		Period:                *period,
		Multiplier:            *multiplier,
		TPATRMult:             *tpMult,
		SLATRMult:             *slMult,
		ConservativeStopFirst: !*optimisticTP,
	})

	s := res.Summary
	fmt.Printf("bars:            %d\n", len(candles))
	fmt.Printf("trades:          %d\n", s.NumTrades)
	fmt.Printf("total pnl:       %.6f USDT\n", s.TotalPnL)
	fmt.Printf("win rate:        %.2f%%\n", s.WinRate)
	fmt.Printf("max drawdown:    %.6f USDT\n", s.MaxDrawdown)
	fmt.Printf("sharpe/trade:    %.4f\n", s.SharpePerTrade)
	fmt.Printf("final equity:    %.6f\n", s.Equity[len(s.Equity)-1])

	if len(res.Monthly) > 0 {
		fmt.Println("\nmonthly pnl:")
		for _, m := range res.Monthly {
			fmt.Printf("  %s  %+.6f\n", m.Month, m.PnL)
		}
	}

	if *tradesOut != "" {
		out, err := os.Create(*tradesOut)
		if err != nil {
			fatal(err)
		}
		defer out.Close()
		if err := backtest.WriteTradesCSV(out, res.Trades); err != nil {
			fatal(err)
		}
		fmt.Printf("\ntrade list written to %s\n", *tradesOut)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "backtest:", err)
	os.Exit(1)
}
