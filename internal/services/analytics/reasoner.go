package analytics

import (
	"context"
	"errors"
	"time"

	"SignalEngine/internal/domain/models"
	domsvc "SignalEngine/internal/domain/service"
)

// HTTPReasoner asks the text-generation sidecar to explain a signal.
type HTTPReasoner struct {
	base *HTTPServiceBase
	now  func() time.Time
}

func NewHTTPReasoner(url string, timeout time.Duration) *HTTPReasoner {
	return &HTTPReasoner{base: NewHTTPServiceBase("reasoning", url, timeout), now: time.Now}
}

type reasoningRequest struct {
	Symbol     string     `json:"symbol"`
	Score      float64    `json:"score"`
	RSI        float64    `json:"rsi"`
	Price      float64    `json:"price"`
	FibTargets fibTargets `json:"fib_targets"`
}

type fibTargets struct {
	TP   float64 `json:"tp"`
	SL   float64 `json:"sl"`
	DCA1 float64 `json:"dca1"`
	DCA2 float64 `json:"dca2"`
}

type reasoningResponse struct {
	Opinion   string `json:"opinion"`
	Reasoning string `json:"reasoning"`
}

func (r *HTTPReasoner) Generate(ctx context.Context, req models.ReasoningRequest) (models.Reasoning, error) {
	var resp reasoningResponse
	err := r.base.PostJSON(ctx, "/reasoning", reasoningRequest{
		Symbol: req.Symbol,
		Score:  req.Score,
		RSI:    req.RSI,
		Price:  req.Price,
		FibTargets: fibTargets{
			TP:   req.Plan.TP,
			SL:   req.Plan.SL,
			DCA1: req.Plan.DCA1,
			DCA2: req.Plan.DCA2,
		},
	}, &resp)
	if err != nil {
		return models.Reasoning{}, err
	}
	if resp.Reasoning == "" {
		return models.Reasoning{}, errors.New("reasoning: empty response")
	}
	return models.Reasoning{Opinion: resp.Opinion, Text: resp.Reasoning, GeneratedAt: r.now().UTC()}, nil
}

var _ domsvc.Reasoner = (*HTTPReasoner)(nil)
