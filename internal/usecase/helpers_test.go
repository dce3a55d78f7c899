package usecase

import (
	"context"
	"sync"

	"SignalEngine/internal/domain/models"
)

type stubScorer struct {
	cls   models.ClassificationResult
	err   error
	score float64
	panic bool
}

func (s stubScorer) Classify(context.Context, models.TokenSequence) (models.ClassificationResult, error) {
	return s.cls, s.err
}

func (s stubScorer) Score(context.Context, []models.Candle) float64 {
	if s.panic {
		panic("scorer contract violated")
	}
	return s.score
}

func flatCandles(n int, price float64, barSeconds int64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{Time: int64(i) * barSeconds, Open: price, High: price, Low: price, Close: price}
	}
	return out
}

func trendCandles(n int, start, step float64, barSeconds int64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		v := start + float64(i)*step
		out[i] = models.Candle{Time: int64(i) * barSeconds, Open: v, High: v, Low: v, Close: v}
	}
	return out
}

type recordingListener struct {
	mu   sync.Mutex
	sigs []models.AggregateSignal
}

func (r *recordingListener) OnSignal(_ context.Context, sig models.AggregateSignal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sigs = append(r.sigs, sig)
}

func (r *recordingListener) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sigs)
}
