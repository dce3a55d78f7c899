package repository

import (
	"context"

	"SignalEngine/internal/domain/models"
)

// CandleSource returns candles in chronological order. Implementations
// tolerate short or empty upstream results.
type CandleSource interface {
	FetchCandles(ctx context.Context, symbol string, interval Interval, limit int) ([]models.Candle, error)
}

// SignalStore is the shared per-symbol signal cache.
type SignalStore interface {
	Put(sig models.AggregateSignal) models.AggregateSignal
	Get(symbol string) (models.AggregateSignal, bool)
	All() []models.AggregateSignal
	ApplyReasoning(patch models.ReasoningPatch) bool
}

// SignalPublisher pushes fresh signals to downstream consumers.
type SignalPublisher interface {
	Publish(ctx context.Context, sig models.AggregateSignal) error
	Close() error
}

type Metrics interface {
	RecordSignal(symbol string, action models.Action)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordScore(symbol string, score float64)
	RecordLatency(op string, seconds float64)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) RecordSignal(string, models.Action) {}
func (NopMetrics) RecordError(string)                 {}
func (NopMetrics) RecordLastPrice(string, float64)    {}
func (NopMetrics) RecordScore(string, float64)        {}
func (NopMetrics) RecordLatency(string, float64)      {}
