package models

import "sort"

// Candle is one OHLC bar. Time is the bar open in epoch seconds.
type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// NormalizeCandles returns a chronological copy of cs (oldest first) with
// duplicate timestamps collapsed to the last occurrence. Every producer
// passes its output through here so consumers never re-order.
func NormalizeCandles(cs []Candle) []Candle {
	if len(cs) == 0 {
		return nil
	}
	out := make([]Candle, len(cs))
	copy(out, cs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })

	n := 0
	for i := range out {
		if n > 0 && out[n-1].Time == out[i].Time {
			out[n-1] = out[i]
			continue
		}
		out[n] = out[i]
		n++
	}
	return out[:n]
}

// Closes extracts close prices in slice order.
func Closes(cs []Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}

// LastClose returns the most recent close of a chronological slice.
func LastClose(cs []Candle) (float64, bool) {
	if len(cs) == 0 {
		return 0, false
	}
	return cs[len(cs)-1].Close, true
}

// Tail returns the last n candles (or all of them when fewer exist).
func Tail(cs []Candle, n int) []Candle {
	if n <= 0 {
		return nil
	}
	if len(cs) <= n {
		return cs
	}
	return cs[len(cs)-n:]
}
