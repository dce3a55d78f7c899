package service

import (
	"context"

	"SignalEngine/internal/domain/models"
)

// InferenceBackend is the opaque sequence classifier. One logit row per input row.
type InferenceBackend interface {
	Run(ctx context.Context, batch [][]int64) ([][]float64, error)
}

// NeuralScorer turns candles into classifier verdicts.
type NeuralScorer interface {
	Classify(ctx context.Context, tokens models.TokenSequence) (models.ClassificationResult, error)
	Score(ctx context.Context, candles []models.Candle) float64
}

// Reasoner produces an explanation for a signal.
type Reasoner interface {
	Generate(ctx context.Context, req models.ReasoningRequest) (models.Reasoning, error)
}
