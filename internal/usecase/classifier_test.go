package usecase

import (
	"context"
	"errors"
	"testing"

	"SignalEngine/internal/domain/models"
)

type capturingScorer struct {
	stubScorer
	seen *models.TokenSequence
}

func (c capturingScorer) Classify(ctx context.Context, seq models.TokenSequence) (models.ClassificationResult, error) {
	*c.seen = seq
	return c.stubScorer.Classify(ctx, seq)
}

func rising(n int) []float64 {
	out := make([]float64, n)
	v := 100.0
	for i := range out {
		out[i] = v
		v *= 1.01
	}
	return out
}

func TestClassifyPrices(t *testing.T) {
	var seen models.TokenSequence
	res := models.ClassificationResult{Label: models.Pump, Confidence: 0.7}
	c := NewClassifier(capturingScorer{stubScorer: stubScorer{cls: res}, seen: &seen})

	got, err := c.ClassifyPrices(context.Background(), rising(80))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Label != models.Pump || got.TokenIndex != 3 || got.Confidence != 0.7 {
		t.Fatalf("response = %+v", got)
	}
	for i, tok := range seen {
		if tok != int64(models.Pump) {
			t.Fatalf("token %d = %d, want PUMP", i, tok)
		}
	}
}

func TestClassifyPricesValidation(t *testing.T) {
	c := NewClassifier(stubScorer{cls: models.NeutralClassification()})
	if _, err := c.ClassifyPrices(context.Background(), rising(64)); !errors.Is(err, ErrInsufficientPrices) {
		t.Fatalf("err = %v, want ErrInsufficientPrices", err)
	}
	prices := rising(65)
	prices[10] = 0
	if _, err := c.ClassifyPrices(context.Background(), prices); err == nil {
		t.Fatalf("expected error for non-positive price")
	}
}

func TestClassifyPricesPropagatesScorerError(t *testing.T) {
	boom := errors.New("bad tokens")
	c := NewClassifier(stubScorer{err: boom})
	if _, err := c.ClassifyPrices(context.Background(), rising(65)); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
