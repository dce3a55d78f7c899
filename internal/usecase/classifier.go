package usecase

import (
	"context"
	"errors"
	"fmt"

	"SignalEngine/internal/domain/models"
	domsvc "SignalEngine/internal/domain/service"
	"SignalEngine/internal/services/features"
)

var ErrInsufficientPrices = fmt.Errorf("classify: need at least %d prices", features.WindowCloses)

// Classifier scores ad hoc price series outside the watchlist.
type Classifier struct {
	scorer domsvc.NeuralScorer
}

func NewClassifier(scorer domsvc.NeuralScorer) *Classifier {
	return &Classifier{scorer: scorer}
}

// ClassifyPrices classifies the last WindowCloses prices (most recent last).
func (c *Classifier) ClassifyPrices(ctx context.Context, prices []float64) (models.ClassifyResponse, error) {
	if len(prices) < features.WindowCloses {
		return models.ClassifyResponse{}, ErrInsufficientPrices
	}
	window := prices[len(prices)-features.WindowCloses:]
	for _, p := range window {
		if !(p > 0) {
			return models.ClassifyResponse{}, errors.New("classify: prices must be positive")
		}
	}

	res, err := c.scorer.Classify(ctx, features.Tokenize(window))
	if err != nil {
		return models.ClassifyResponse{}, fmt.Errorf("classify: %w", err)
	}
	return models.ClassifyResponse{
		Label:         res.Label,
		TokenIndex:    int(res.Label),
		Confidence:    res.Confidence,
		Probabilities: res.Probabilities,
	}, nil
}
