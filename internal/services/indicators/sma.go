package indicators

import (
	"math"

	"SignalEngine/internal/domain/models"
)

// SMA averages the last period closes of a chronological slice.
// ok is false when fewer than period candles exist.
func SMA(cs []models.Candle, period int) (value float64, ok bool) {
	if period < 1 || len(cs) < period {
		return 0, false
	}
	sum := 0.0
	for _, c := range cs[len(cs)-period:] {
		sum += c.Close
	}
	return sum / float64(period), true
}

// Clamp bounds v to [lo, hi]. NaN collapses to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
