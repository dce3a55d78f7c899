package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	pkgch "SignalEngine/pkg/clickhouse"
	applogger "SignalEngine/pkg/logger"
)

var errNoClickHouse = errors.New("clickhouse client not configured")

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// CandleSchema returns the DDL for the candle table read by CHCandleSource.
func CandleSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            symbol   LowCardinality(String),
            interval LowCardinality(String),
            bucket   DateTime,
            open     Float64,
            high     Float64,
            low      Float64,
            close    Float64
        ) ENGINE = ReplacingMergeTree ORDER BY (symbol, interval, bucket)`, table),
	}
}

// CHCandleSource serves candles from a ClickHouse table keyed by
// (symbol, interval, bucket).
type CHCandleSource struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHCandleSource(ch *pkgch.Client, table string, l *applogger.Logger) (*CHCandleSource, error) {
	if ch == nil {
		return nil, errNoClickHouse
	}
	if err := validTableName(table); err != nil {
		return nil, err
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &CHCandleSource{db: ch.DB(), table: table, l: l}, nil
}

func validTableName(table string) error {
	if !tableNameRe.MatchString(table) {
		return fmt.Errorf("invalid clickhouse table name %q", table)
	}
	return nil
}

func (s *CHCandleSource) FetchCandles(ctx context.Context, symbol string, interval domrepo.Interval, limit int) ([]models.Candle, error) {
	if !domrepo.IsValidInterval(interval) {
		return nil, fmt.Errorf("unsupported interval: %s", interval)
	}
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT toUnixTimestamp(bucket), open, high, low, close
        FROM %s FINAL
        WHERE symbol = ? AND interval = ?
        ORDER BY bucket DESC
        LIMIT ?
    `, s.table)

	rows, err := s.db.QueryContext(ctx, q, symbol, string(interval), limit)
	if err != nil {
		s.l.Error("clickhouse candles query error",
			applogger.String("symbol", symbol),
			applogger.String("interval", string(interval)),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, limit)
	for rows.Next() {
		var (
			c  models.Candle
			ts uint32
		)
		if err := rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.Time = int64(ts)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	out = models.NormalizeCandles(out)
	s.l.Debug("clickhouse candles ok",
		applogger.String("symbol", symbol),
		applogger.String("interval", string(interval)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

var _ domrepo.CandleSource = (*CHCandleSource)(nil)
