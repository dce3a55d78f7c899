package analytics

import (
	"context"
	"time"

	domsvc "SignalEngine/internal/domain/service"
)

// HTTPInferenceBackend runs the sequence classifier behind POST /predict.
//
//	request:  {"inputs": [[int64 x 64], ...]}
//	response: {"logits": [[float x 5], ...]}
type HTTPInferenceBackend struct {
	base    *HTTPServiceBase
	retries int
}

func NewHTTPInferenceBackend(url string, timeout time.Duration, retries int) *HTTPInferenceBackend {
	return &HTTPInferenceBackend{base: NewHTTPServiceBase("inference", url, timeout), retries: retries}
}

type predictRequest struct {
	Inputs [][]int64 `json:"inputs"`
}

type predictResponse struct {
	Logits [][]float64 `json:"logits"`
}

func (b *HTTPInferenceBackend) Run(ctx context.Context, batch [][]int64) ([][]float64, error) {
	var resp predictResponse
	if err := b.base.PostJSONWithRetry(ctx, "/predict", predictRequest{Inputs: batch}, &resp, b.retries+1); err != nil {
		return nil, err
	}
	return resp.Logits, nil
}

var _ domsvc.InferenceBackend = (*HTTPInferenceBackend)(nil)
