package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"SignalEngine/internal/domain/models"
	"SignalEngine/internal/service/ratelimit"
	"SignalEngine/internal/usecase"
)

type fakeReader struct {
	views  map[string]models.SignalView
	maxAge time.Duration
}

func (f *fakeReader) List(maxAge time.Duration) []models.SignalView {
	f.maxAge = maxAge
	out := make([]models.SignalView, 0, len(f.views))
	for _, v := range f.views {
		out = append(out, v)
	}
	return out
}

func (f *fakeReader) Get(symbol string, maxAge time.Duration) (models.SignalView, error) {
	f.maxAge = maxAge
	v, ok := f.views[strings.ToUpper(symbol)]
	if !ok {
		return models.SignalView{}, usecase.ErrSignalNotFound
	}
	return v, nil
}

func (f *fakeReader) Plan(symbol string, price float64) (models.FibonacciPlan, error) {
	if _, ok := f.views[strings.ToUpper(symbol)]; !ok {
		return models.FibonacciPlan{}, usecase.ErrSignalNotFound
	}
	return models.FibonacciPlan{TP: price * 1.1, SL: price * 0.9}, nil
}

type fakeClassifier struct{}

func (fakeClassifier) ClassifyPrices(_ context.Context, prices []float64) (models.ClassifyResponse, error) {
	if len(prices) < 65 {
		return models.ClassifyResponse{}, usecase.ErrInsufficientPrices
	}
	return models.ClassifyResponse{Label: models.Pump, TokenIndex: 3, Confidence: 0.7}, nil
}

func newTestEcho(rl *ratelimit.Limiter) (*echo.Echo, *fakeReader) {
	reader := &fakeReader{views: map[string]models.SignalView{
		"BTCUSDT": {AggregateSignal: models.AggregateSignal{Symbol: "BTCUSDT", Price: 100, Score: 72}},
	}}
	e := echo.New()
	NewSignalsHandler(reader, fakeClassifier{}, rl, nil).RegisterRoutes(e)
	return e, reader
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func pricesJSON(n int) string {
	ps := make([]float64, n)
	for i := range ps {
		ps[i] = 100 + float64(i)
	}
	b, _ := json.Marshal(map[string]interface{}{"prices": ps})
	return string(b)
}

func TestSignalsRoutes(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"health", http.MethodGet, "/healthz", "", http.StatusOK},
		{"list", http.MethodGet, "/api/signals", "", http.StatusOK},
		{"list max age", http.MethodGet, "/api/signals?max_age=5m", "", http.StatusOK},
		{"list bad max age", http.MethodGet, "/api/signals?max_age=later", "", http.StatusBadRequest},
		{"get", http.MethodGet, "/api/signals/btcusdt", "", http.StatusOK},
		{"get missing", http.MethodGet, "/api/signals/ETHUSDT", "", http.StatusNotFound},
		{"plan", http.MethodGet, "/api/plan?symbol=BTCUSDT&price=105", "", http.StatusOK},
		{"plan missing symbol", http.MethodGet, "/api/plan?price=105", "", http.StatusBadRequest},
		{"plan unknown", http.MethodGet, "/api/plan?symbol=DOGEUSDT&price=1", "", http.StatusNotFound},
		{"classify", http.MethodPost, "/api/classify", pricesJSON(65), http.StatusOK},
		{"classify short", http.MethodPost, "/api/classify", pricesJSON(10), http.StatusBadRequest},
		{"classify negative", http.MethodPost, "/api/classify", `{"prices":[-1]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEcho(nil)
			rec := do(e, tt.method, tt.target, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestListPassesMaxAge(t *testing.T) {
	e, reader := newTestEcho(nil)
	do(e, http.MethodGet, "/api/signals?max_age=300", "")
	if reader.maxAge != 5*time.Minute {
		t.Fatalf("maxAge = %v", reader.maxAge)
	}
}

func TestClassifyResponseBody(t *testing.T) {
	e, _ := newTestEcho(nil)
	rec := do(e, http.MethodPost, "/api/classify", pricesJSON(70))

	var body struct {
		Data models.ClassifyResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Label != models.Pump || body.Data.TokenIndex != 3 {
		t.Fatalf("unexpected body %+v", body.Data)
	}
}

func TestClassifyRateLimited(t *testing.T) {
	e, _ := newTestEcho(ratelimit.New(1, 0.001))
	if rec := do(e, http.MethodPost, "/api/classify", pricesJSON(65)); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/api/classify", pricesJSON(65)); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", rec.Code)
	}
}
