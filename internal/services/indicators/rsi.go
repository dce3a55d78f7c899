package indicators

import "SignalEngine/internal/domain/models"

const (
	DefaultRSIPeriod = 14
	// NeutralRSI is returned when there is not enough data, or when the
	// window has no movement at all. It is a fallback, not a measurement.
	NeutralRSI = 50.0
)

// RSI computes Wilder's smoothed relative strength index over a chronological slice.
func RSI(cs []models.Candle, period int) float64 {
	if period < 1 || len(cs) < period+1 {
		return NeutralRSI
	}
	p := float64(period)

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := cs[i].Close - cs[i-1].Close
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain, avgLoss := gain/p, loss/p

	for i := period + 1; i < len(cs); i++ {
		d := cs[i].Close - cs[i-1].Close
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return NeutralRSI
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
