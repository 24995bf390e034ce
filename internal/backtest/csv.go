package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// LoadCSV reads OHLCV bars from csv with a
// timestamp,open,high,low,close,volume header. Timestamps may be RFC3339,
// "2006-01-02 15:04:05", unix seconds or unix milliseconds.
func LoadCSV(r io.Reader) ([]Candle, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, want := range []string{"timestamp", "open", "high", "low", "close", "volume"} {
		if _, ok := col[want]; !ok {
			return nil, fmt.Errorf("csv is missing column %q", want)
		}
	}

	var candles []Candle
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		ts, err := parseTimestamp(record[col["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		c := Candle{Time: ts}
		for _, f := range []struct {
			name string
			dst  *float64
		}{
			{"open", &c.Open}, {"high", &c.High}, {"low", &c.Low},
			{"close", &c.Close}, {"volume", &c.Volume},
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[col[f.name]]), 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: bad %s %q", line, f.name, record[col[f.name]])
			}
			*f.dst = v
		}
		candles = append(candles, c)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("csv contains no data rows")
	}
	return candles, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		// Heuristic: anything past the year 33658 in seconds is milliseconds.
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

// WriteTradesCSV exports the trade list in the shape operators expect.
func WriteTradesCSV(w io.Writer, trades []Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"side", "entry_time", "entry_price", "exit_time", "exit_price", "pnl_abs_usdt", "pnl_pct"}); err != nil {
		return err
	}
	for _, t := range trades {
		record := []string{
			t.Side.String(),
			t.EntryTime.UTC().Format(time.RFC3339),
			strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
			t.ExitTime.UTC().Format(time.RFC3339),
			strconv.FormatFloat(t.ExitPrice, 'f', -1, 64),
			strconv.FormatFloat(t.PnLAbs, 'f', 6, 64),
			strconv.FormatFloat(t.PnLPct, 'f', 6, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
