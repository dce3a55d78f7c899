package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const klinesBody = `[
  [1700003600000, "101.50", "103.00", "100.10", "102.25", "12.5", 1700007199999, "0", 10, "0", "0", "0"],
  [1700000000000, "100.00", "102.00", "99.50", "101.50", "10.0", 1700003599999, "0", 8, "0", "0", "0"]
]`

func TestFetchCandles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/api/v3/klines" || q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "1h" || q.Get("limit") != "2" {
			t.Errorf("unexpected request %s", r.URL)
		}
		_, _ = w.Write([]byte(klinesBody))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, nil)
	cs, err := c.FetchCandles(context.Background(), "btcusdt", "1h", 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(cs) != 2 {
		t.Fatalf("candles = %d", len(cs))
	}
	if cs[0].Time != 1700000000 || cs[1].Time != 1700003600 {
		t.Fatalf("not chronological: %+v", cs)
	}
	if cs[1].Close != 102.25 || cs[0].Low != 99.5 {
		t.Fatalf("prices = %+v", cs)
	}
}

func TestFetchCandlesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"code":-1003}`},
		{"bad price", http.StatusOK, `[[1700000000000, "x", "1", "1", "1"]]`},
		{"short row", http.StatusOK, `[[1700000000000, "1"]]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			if _, err := New(srv.URL, time.Second, nil).FetchCandles(context.Background(), "BTCUSDT", "5m", 10); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestFetchCandlesRejectsUnknownInterval(t *testing.T) {
	if _, err := New("http://unused", time.Second, nil).FetchCandles(context.Background(), "BTCUSDT", "7m", 10); err == nil {
		t.Fatalf("expected error")
	}
}
