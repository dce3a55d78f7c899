package repository

import (
	"context"
	"database/sql"
	"fmt"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	pkgch "SignalEngine/pkg/clickhouse"
)

// SignalArchiveSchema returns the DDL for the append-only signal history.
func SignalArchiveSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            symbol     LowCardinality(String),
            version    UInt64,
            updated_at DateTime64(3),
            price      Float64,
            score      Float64,
            action     LowCardinality(String),
            opinion    LowCardinality(String),
            confidence Float64,
            rsi        Float64,
            trend      LowCardinality(String),
            macro      LowCardinality(String),
            tp         Float64,
            sl         Float64,
            dca1       Float64,
            dca2       Float64,
            dynamic    UInt8
        ) ENGINE = MergeTree ORDER BY (symbol, updated_at)`, table),
	}
}

// CHSignalArchive appends every published signal to a ClickHouse table.
type CHSignalArchive struct {
	db    *sql.DB
	table string
}

func NewCHSignalArchive(ch *pkgch.Client, table string) (*CHSignalArchive, error) {
	if ch == nil {
		return nil, errNoClickHouse
	}
	if err := validTableName(table); err != nil {
		return nil, err
	}
	return &CHSignalArchive{db: ch.DB(), table: table}, nil
}

func (a *CHSignalArchive) Publish(ctx context.Context, sig models.AggregateSignal) error {
	q := fmt.Sprintf(`INSERT INTO %s
        (symbol, version, updated_at, price, score, action, opinion, confidence, rsi, trend, macro, tp, sl, dca1, dca2, dynamic)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, a.table)

	var dynamic uint8
	if sig.Plan.IsDynamic {
		dynamic = 1
	}
	_, err := a.db.ExecContext(ctx, q,
		sig.Symbol, sig.Version, sig.UpdatedAt, sig.Price, sig.Score,
		string(sig.Action), sig.Opinion.String(), sig.Confidence,
		sig.Details.RSI, string(sig.Details.Trend), string(sig.Details.Macro),
		sig.Plan.TP, sig.Plan.SL, sig.Plan.DCA1, sig.Plan.DCA2, dynamic,
	)
	if err != nil {
		return fmt.Errorf("archive signal %s: %w", sig.Symbol, err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the clickhouse client.
func (a *CHSignalArchive) Close() error { return nil }

var _ domrepo.SignalPublisher = (*CHSignalArchive)(nil)
