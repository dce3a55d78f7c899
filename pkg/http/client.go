package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	MethodGet  = http.MethodGet
	MethodPost = http.MethodPost

	errBodyLimit = 4 << 10
)

// Request is one outbound call. Body may be nil, []byte, string, io.Reader
// or any JSON-encodable value.
type Request struct {
	Method  string
	URL     string
	Query   url.Values
	Headers map[string]string
	Body    interface{}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Temporary reports whether the call may succeed later (429 and 5xx).
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client is a JSON HTTP client for upstream APIs.
type Client struct {
	hc        *http.Client
	timeout   time.Duration
	userAgent string
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{timeout: 30 * time.Second, userAgent: "signal-engine"}
	for _, opt := range opts {
		opt(c)
	}
	c.hc = &http.Client{Timeout: c.timeout}
	return c
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// Do sends r and returns the raw response. The caller closes the body.
func (c *Client) Do(ctx context.Context, r Request) (*http.Response, error) {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.Method, req.URL.Path, err)
	}
	return resp, nil
}

// DoJSON sends r and decodes a 2xx JSON body into dest, which may be nil.
// Non-2xx responses yield *StatusError.
func (c *Client) DoJSON(ctx context.Context, r Request, dest interface{}) error {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		return &StatusError{
			Code:       resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s: %w", resp.Request.URL.Path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	body, isJSON, err := requestBody(r.Body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if len(r.Query) > 0 {
		q := req.URL.Query()
		for k, vs := range r.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	req.Header.Set("Accept", "application/json")
	if isJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func requestBody(b interface{}) (io.Reader, bool, error) {
	switch v := b.(type) {
	case nil:
		return nil, false, nil
	case io.Reader:
		return v, false, nil
	case []byte:
		return bytes.NewReader(v), false, nil
	case string:
		return strings.NewReader(v), false, nil
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, false, fmt.Errorf("encode body: %w", err)
	}
	return bytes.NewReader(raw), true, nil
}

// retryAfter parses the delay-seconds form of Retry-After.
func retryAfter(v string) time.Duration {
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return 0
}
