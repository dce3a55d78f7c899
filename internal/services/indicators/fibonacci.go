package indicators

import (
	"math"

	"SignalEngine/internal/domain/models"
)

// Retracement ratios.
const (
	FibExtension = 0.272
	FibShallow   = 0.382
	FibDeep      = 0.618
	// StopBuffer places the stop below the swing low.
	StopBuffer = 0.02
)

// Static plan offsets from the current price.
const (
	StaticTPPct   = 0.02
	StaticDCA1Pct = 0.02
	StaticDCA2Pct = 0.05
	StaticSLPct   = 0.08
)

// Clamps keeping dynamic levels on the right side of the price.
const (
	MinTPPct   = 0.01
	MinSLPct   = 0.05
	MinDCA1Pct = 0.01
	MinDCA2Pct = 0.03
)

const (
	minDynamicCandles = 20
	fibWindow         = 50
)

// StaticPlan is the fixed-percentage fallback.
func StaticPlan(price float64) models.FibonacciPlan {
	return models.FibonacciPlan{
		TP:   price * (1 + StaticTPPct),
		DCA1: price * (1 - StaticDCA1Pct),
		DCA2: price * (1 - StaticDCA2Pct),
		SL:   price * (1 - StaticSLPct),
	}
}

// FibonacciPlan derives risk levels for price from the swings of the most
// recent candles. Price is expected to be positive.
func FibonacciPlan(price float64, cs []models.Candle) models.FibonacciPlan {
	if len(cs) < minDynamicCandles {
		return StaticPlan(price)
	}
	window := models.Tail(cs, fibWindow)

	high, low := FindStructuralPivots(window)
	if math.IsInf(high, -1) || math.IsInf(low, 1) {
		maxHigh, minLow := Extremes(window)
		if math.IsInf(high, -1) {
			high = maxHigh
		}
		if math.IsInf(low, 1) {
			low = minLow
		}
	}
	return PlanFromSwings(price, high, low)
}

// PlanFromSwings projects the retracement levels of [low, high] onto price.
// Only a zero or non-finite range yields the static plan; an inverted range
// (high below low) is still dynamic and relies on the clamps.
func PlanFromSwings(price, high, low float64) models.FibonacciPlan {
	rng := high - low
	if rng == 0 || math.IsNaN(rng) || math.IsInf(rng, 0) {
		return StaticPlan(price)
	}

	return models.FibonacciPlan{
		TP:        math.Max(high+rng*FibExtension, price*(1+MinTPPct)),
		SL:        math.Min(low-low*StopBuffer, price*(1-MinSLPct)),
		DCA1:      math.Min(high-rng*FibShallow, price*(1-MinDCA1Pct)),
		DCA2:      math.Min(high-rng*FibDeep, price*(1-MinDCA2Pct)),
		IsDynamic: true,
		SwingHigh: high,
		SwingLow:  low,
	}
}
