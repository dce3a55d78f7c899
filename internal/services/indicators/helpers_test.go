package indicators

import "SignalEngine/internal/domain/models"

func candlesFromCloses(closes ...float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{Time: int64(i) * 60, Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func series(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
