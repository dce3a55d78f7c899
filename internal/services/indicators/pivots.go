package indicators

import (
	"math"

	"SignalEngine/internal/domain/models"
)

// PivotBars is the number of confirming neighbours on each side of a fractal.
const PivotBars = 2

// FindStructuralPivots scans for fractal highs and lows and returns the highest
// pivot high and the lowest pivot low. Missing sides are reported as -Inf and +Inf.
func FindStructuralPivots(cs []models.Candle) (swingHigh, swingLow float64) {
	swingHigh, swingLow = math.Inf(-1), math.Inf(1)
	for i := PivotBars; i < len(cs)-PivotBars; i++ {
		if isPivotHigh(cs, i) && cs[i].High > swingHigh {
			swingHigh = cs[i].High
		}
		if isPivotLow(cs, i) && cs[i].Low < swingLow {
			swingLow = cs[i].Low
		}
	}
	return swingHigh, swingLow
}

func isPivotHigh(cs []models.Candle, i int) bool {
	for k := 1; k <= PivotBars; k++ {
		if cs[i].High <= cs[i-k].High || cs[i].High <= cs[i+k].High {
			return false
		}
	}
	return true
}

func isPivotLow(cs []models.Candle, i int) bool {
	for k := 1; k <= PivotBars; k++ {
		if cs[i].Low >= cs[i-k].Low || cs[i].Low >= cs[i+k].Low {
			return false
		}
	}
	return true
}

// Extremes returns the max high and min low of cs.
func Extremes(cs []models.Candle) (high, low float64) {
	high, low = math.Inf(-1), math.Inf(1)
	for _, c := range cs {
		high = math.Max(high, c.High)
		low = math.Min(low, c.Low)
	}
	return high, low
}
