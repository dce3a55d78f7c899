package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"SignalEngine/internal/domain/models"
)

func TestInferenceBackendRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(req.Inputs) != 1 || len(req.Inputs[0]) != models.SequenceLength {
			t.Errorf("inputs shape = %d", len(req.Inputs))
		}
		_ = json.NewEncoder(w).Encode(predictResponse{Logits: [][]float64{{0, 0, 1, 2, 0}}})
	}))
	defer srv.Close()

	b := NewHTTPInferenceBackend(srv.URL+"/", time.Second, 0)
	out, err := b.Run(context.Background(), [][]int64{make([]int64, models.SequenceLength)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(out) != 1 || out[0][3] != 2 {
		t.Fatalf("logits = %v", out)
	}
}

func TestInferenceBackendRetries(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{"server error retried", http.StatusServiceUnavailable, 3},
		{"rate limit retried", http.StatusTooManyRequests, 3},
		{"client error not retried", http.StatusBadRequest, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			b := NewHTTPInferenceBackend(srv.URL, time.Second, 2)
			if _, err := b.Run(context.Background(), [][]int64{{0}}); err == nil {
				t.Fatalf("expected error")
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestNotConfigured(t *testing.T) {
	b := NewHTTPInferenceBackend("", time.Second, 3)
	if _, err := b.Run(context.Background(), nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}

func TestReasonerGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req reasoningRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Symbol != "BTCUSDT" || req.FibTargets.TP != 110 {
			t.Errorf("request = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(reasoningResponse{Opinion: "PUMP", Reasoning: "higher lows"})
	}))
	defer srv.Close()

	r := NewHTTPReasoner(srv.URL, time.Second)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	got, err := r.Generate(context.Background(), models.ReasoningRequest{
		Symbol: "BTCUSDT",
		Price:  100,
		Plan:   models.FibonacciPlan{TP: 110, SL: 92},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got.Opinion != "PUMP" || got.Text != "higher lows" || !got.GeneratedAt.Equal(fixed) {
		t.Fatalf("reasoning = %+v", got)
	}
}

func TestReasonerEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"opinion":"FLAT"}`))
	}))
	defer srv.Close()

	if _, err := NewHTTPReasoner(srv.URL, time.Second).Generate(context.Background(), models.ReasoningRequest{}); err == nil {
		t.Fatalf("expected error for empty reasoning")
	}
}
