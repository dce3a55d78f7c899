// Package binance reads klines from the Binance spot REST API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	svcmetrics "SignalEngine/internal/service/metrics"
	xhttp "SignalEngine/pkg/http"
	applogger "SignalEngine/pkg/logger"
)

// MaxLimit is the largest page the klines endpoint serves.
const MaxLimit = 1000

const (
	klinesPath = "/api/v3/klines"
	userAgent  = "signal-engine/binance"
)

// Client implements CandleSource against GET /api/v3/klines.
type Client struct {
	baseURL string
	http    *xhttp.Client
	l       *applogger.Logger
}

func New(baseURL string, timeout time.Duration, l *applogger.Logger) *Client {
	if l == nil {
		l = applogger.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithUserAgent(userAgent)),
		l:       l,
	}
}

// FetchCandles returns up to limit chronological candles. The last one may
// still be open.
func (c *Client) FetchCandles(ctx context.Context, symbol string, interval domrepo.Interval, limit int) ([]models.Candle, error) {
	if !domrepo.IsValidInterval(interval) {
		return nil, fmt.Errorf("binance: unsupported interval %q", interval)
	}
	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}

	start := time.Now()
	var rows []kline
	err := c.http.DoJSON(ctx, xhttp.Request{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + klinesPath,
		Query: url.Values{
			"symbol":   {strings.ToUpper(symbol)},
			"interval": {string(interval)},
			"limit":    {strconv.Itoa(limit)},
		},
	}, &rows)
	svcmetrics.ObserveUpstream("binance", klinesPath, start, err)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, err)
	}

	out := make([]models.Candle, 0, len(rows))
	for _, k := range rows {
		out = append(out, k.candle)
	}
	out = models.NormalizeCandles(out)
	c.l.Debug("binance klines ok",
		applogger.String("symbol", symbol),
		applogger.String("interval", string(interval)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// kline decodes one row: [openTimeMs, "open", "high", "low", "close", "volume", closeTimeMs, ...].
type kline struct {
	candle models.Candle
}

func (k *kline) UnmarshalJSON(b []byte) error {
	var row []json.RawMessage
	if err := json.Unmarshal(b, &row); err != nil {
		return err
	}
	if len(row) < 5 {
		return fmt.Errorf("kline: %d fields, want at least 5", len(row))
	}

	var openMs int64
	if err := json.Unmarshal(row[0], &openMs); err != nil {
		return fmt.Errorf("kline open time: %w", err)
	}
	prices := make([]float64, 4)
	for i := range prices {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return fmt.Errorf("kline field %d: %w", i+1, err)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("kline field %d: %w", i+1, err)
		}
		prices[i] = d.InexactFloat64()
	}

	k.candle = models.Candle{
		Time:  openMs / 1000,
		Open:  prices[0],
		High:  prices[1],
		Low:   prices[2],
		Close: prices[3],
	}
	return nil
}

var _ domrepo.CandleSource = (*Client)(nil)
