package features

import "SignalEngine/internal/domain/models"

// Resample folds chronological candles of width barSeconds into buckets of
// factor bars aligned on multiples of factor*barSeconds. An incomplete leading
// bucket is dropped; the trailing bucket is kept even if still forming.
func Resample(cs []models.Candle, factor int, barSeconds int64) []models.Candle {
	if factor <= 1 || barSeconds <= 0 {
		return cs
	}
	if len(cs) == 0 {
		return nil
	}
	width := int64(factor) * barSeconds

	out := make([]models.Candle, 0, len(cs)/factor+1)
	counts := make([]int, 0, cap(out))
	for _, c := range cs {
		start := c.Time - mod(c.Time, width)
		n := len(out)
		if n > 0 && out[n-1].Time == start {
			cur := &out[n-1]
			cur.Close = c.Close
			if c.High > cur.High {
				cur.High = c.High
			}
			if c.Low < cur.Low {
				cur.Low = c.Low
			}
			counts[n-1]++
			continue
		}
		out = append(out, models.Candle{Time: start, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close})
		counts = append(counts, 1)
	}

	if len(out) > 0 && counts[0] < factor {
		out = out[1:]
	}
	return out
}

func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
