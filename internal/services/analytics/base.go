// Package analytics holds HTTP clients for the model-serving sidecars.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	svcmetrics "SignalEngine/internal/service/metrics"
	xhttp "SignalEngine/pkg/http"
)

var ErrNotConfigured = errors.New("analytics: service url not configured")

// HTTPServiceBase centralizes client construction and JSON POSTs for one service.
type HTTPServiceBase struct {
	service string
	baseURL string
	client  *xhttp.Client
}

func NewHTTPServiceBase(service, baseURL string, timeout time.Duration) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPServiceBase{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// PostJSON posts payload to path under baseURL and decodes the JSON reply into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload, dest interface{}) error {
	if b.baseURL == "" {
		return ErrNotConfigured
	}
	start := time.Now()
	err := b.client.DoJSON(ctx, xhttp.Request{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Body:   payload,
	}, dest)
	svcmetrics.ObserveUpstream(b.service, path, start, err)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// PostJSONWithRetry retries transient failures up to attempts times with a
// linear backoff. Client errors (4xx other than 429) are not retried.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload, dest interface{}, attempts int) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.PostJSON(ctx, path, payload, dest)
		if err == nil || !retryable(err) || i == attempts {
			return err
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, ErrNotConfigured) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
