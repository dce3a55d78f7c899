// Package structure rates how constructive a single timeframe looks.
package structure

import (
	"SignalEngine/internal/domain/models"
	"SignalEngine/internal/services/indicators"
)

const (
	DefaultPeriod    = 20
	MomentumLookback = 5

	SMAWeight      = 0.40
	RSIWeight      = 0.30
	MomentumWeight = 0.30

	smaGain      = 5.0
	momentumGain = 10.0

	Neutral  = 50.0
	MinScore = 5.0
	MaxScore = 95.0
)

// Score blends price-vs-SMA position, inverted RSI and short momentum into
// [5, 95]. Histories shorter than period+MomentumLookback score Neutral.
func Score(cs []models.Candle, period int) float64 {
	if period < 1 || len(cs) < period+MomentumLookback {
		return Neutral
	}
	price := cs[len(cs)-1].Close

	smaScore := Neutral
	if sma, ok := indicators.SMA(cs, period); ok && sma != 0 {
		pct := (price - sma) / sma * 100
		smaScore = indicators.Clamp(Neutral+pct*smaGain, MinScore, MaxScore)
	}

	rsiScore := 100 - indicators.RSI(cs, indicators.DefaultRSIPeriod)

	momScore := Neutral
	if prev := cs[len(cs)-1-MomentumLookback].Close; prev != 0 {
		pct := (price - prev) / prev * 100
		momScore = indicators.Clamp(Neutral+pct*momentumGain, MinScore, MaxScore)
	}

	return indicators.Clamp(smaScore*SMAWeight+rsiScore*RSIWeight+momScore*MomentumWeight, MinScore, MaxScore)
}
