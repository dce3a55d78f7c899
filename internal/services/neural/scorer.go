package neural

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	domsvc "SignalEngine/internal/domain/service"
	"SignalEngine/internal/services/features"
	"SignalEngine/internal/services/indicators"
	applogger "SignalEngine/pkg/logger"
)

var (
	// ErrInvalidTokenSequence signals a tokenizer bug, never an environmental failure.
	ErrInvalidTokenSequence = errors.New("neural: invalid token sequence")
	ErrBackendUnavailable   = errors.New("neural: inference backend unavailable")
)

const (
	MinScoreCandles = 10
	NeutralScore    = 50.0
	MinScore        = 5.0
	MaxScore        = 95.0
)

// ClassWeights maps each class to its position on the 0-100 bullish scale.
var ClassWeights = [models.NumClasses]float64{0, 25, 50, 75, 100}

// Scorer wraps an inference backend. All backend failures degrade to neutral values.
type Scorer struct {
	backend domsvc.InferenceBackend
	l       *applogger.Logger
	metrics domrepo.Metrics
}

func NewScorer(backend domsvc.InferenceBackend, l *applogger.Logger, metrics domrepo.Metrics) *Scorer {
	if backend == nil {
		backend = UnavailableBackend{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	return &Scorer{backend: backend, l: l, metrics: metrics}
}

// Classify returns the argmax class and its softmax probability. The error is
// reserved for malformed input; backend trouble yields NeutralClassification.
func (s *Scorer) Classify(ctx context.Context, tokens models.TokenSequence) (models.ClassificationResult, error) {
	probs, ok, err := s.infer(ctx, tokens)
	if err != nil {
		return models.NeutralClassification(), err
	}
	if !ok {
		return models.NeutralClassification(), nil
	}

	best := 0
	for i := 1; i < models.NumClasses; i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return models.ClassificationResult{
		Label:         models.Class(best),
		Confidence:    probs[best],
		Probabilities: probs,
	}, nil
}

// Score maps the class distribution of the most recent candles onto [5, 95].
// It always returns a number; fewer than MinScoreCandles yields NeutralScore.
func (s *Scorer) Score(ctx context.Context, candles []models.Candle) float64 {
	if len(candles) < MinScoreCandles {
		return NeutralScore
	}
	probs, ok, err := s.infer(ctx, features.TokenizeCandles(candles))
	if err != nil {
		panic(fmt.Sprintf("neural score: %v", err))
	}
	if !ok {
		return NeutralScore
	}

	score := 0.0
	for i, p := range probs {
		score += p * ClassWeights[i]
	}
	return indicators.Clamp(score, MinScore, MaxScore)
}

func (s *Scorer) infer(ctx context.Context, tokens models.TokenSequence) ([models.NumClasses]float64, bool, error) {
	var probs [models.NumClasses]float64
	if !features.ValidTokens(tokens) {
		return probs, false, ErrInvalidTokenSequence
	}

	row := make([]int64, models.SequenceLength)
	copy(row, tokens[:])

	start := time.Now()
	out, err := s.backend.Run(ctx, [][]int64{row})
	s.metrics.RecordLatency("inference", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError("inference")
		s.l.Warn("inference failed, using neutral output", applogger.Error(err))
		return probs, false, nil
	}
	if len(out) != 1 || len(out[0]) != models.NumClasses {
		s.metrics.RecordError("inference_shape")
		s.l.Warn("inference returned malformed logits", applogger.Int("rows", len(out)))
		return probs, false, nil
	}

	p, ok := Softmax(out[0])
	if !ok {
		s.metrics.RecordError("inference_shape")
		s.l.Warn("inference returned non-finite logits")
		return probs, false, nil
	}
	copy(probs[:], p)
	return probs, true, nil
}

// Softmax normalizes logits after subtracting the maximum. ok is false for
// empty or non-finite input.
func Softmax(logits []float64) ([]float64, bool) {
	if len(logits) == 0 {
		return nil, false
	}
	hi := math.Inf(-1)
	for _, v := range logits {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		hi = math.Max(hi, v)
	}
	out := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		out[i] = math.Exp(v - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out, true
}

// UnavailableBackend stands in when no model is configured.
type UnavailableBackend struct{}

func (UnavailableBackend) Run(context.Context, [][]int64) ([][]float64, error) {
	return nil, ErrBackendUnavailable
}

var _ domsvc.NeuralScorer = (*Scorer)(nil)
