// Package postgres is the optional SQL audit sink (C15): an opt-in
// mirror of every day-file signal append into a durable table, for
// cross-restart audit trails. The day-file store (C8) remains
// authoritative; this repo is best-effort and never blocks or retries on
// failure, per spec §7's "never fails the scan" policy extended to
// persistence. Grounded on the teacher's
// internal/persistence/postgres/trades_repo.go (sqlx + lib/pq, prepared
// INSERT, unique-violation handling).
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sawpanic/marketscanner/internal/adapter"
	"github.com/sawpanic/marketscanner/internal/continuous"
)

// SignalRow is the signals table's column shape.
type SignalRow struct {
	ID             int64     `db:"id"`
	Timestamp      time.Time `db:"ts"`
	Exchange       string    `db:"exchange"`
	Symbol         string    `db:"symbol"`
	Timeframe      string    `db:"timeframe"`
	CombinedScore  float64   `db:"combined_score"`
	MomentumScore  float64   `db:"momentum_score"`
	ReversionScore float64   `db:"reversion_score"`
	Signal         string    `db:"signal"`
	Attributes     []byte    `db:"attributes"`
	CreatedAt      time.Time `db:"created_at"`
}

// SignalRepo mirrors continuous.SignalEntry rows into Postgres.
type SignalRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSignalRepo builds a repo over an already-connected sqlx.DB.
func NewSignalRepo(db *sqlx.DB, timeout time.Duration) *SignalRepo {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SignalRepo{db: db, timeout: timeout}
}

// Schema is the DDL this repo expects; callers run migrations separately
// (this package never issues DDL itself).
const Schema = `
CREATE TABLE IF NOT EXISTS signals (
	id SERIAL PRIMARY KEY,
	ts TIMESTAMPTZ NOT NULL,
	exchange TEXT NOT NULL,
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	combined_score DOUBLE PRECISION NOT NULL,
	momentum_score DOUBLE PRECISION NOT NULL,
	reversion_score DOUBLE PRECISION NOT NULL,
	signal TEXT NOT NULL,
	attributes JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Insert mirrors one signal entry. Failures are returned to the caller
// (the continuous pipeline logs-and-continues per its own policy -- this
// repo does not retry internally).
func (r *SignalRepo) Insert(ctx context.Context, exchange string, tf adapter.Timeframe, entry continuous.SignalEntry) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	attrs, err := json.Marshal(entry.Cluster)
	if err != nil {
		return fmt.Errorf("postgres: marshal attributes: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO signals (ts, exchange, symbol, timeframe, combined_score, momentum_score, reversion_score, signal, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.Timestamp, exchange, entry.Symbol, string(tf),
		entry.CombinedScore, entry.MomentumScore, entry.ReversionScore, string(entry.Signal), attrs)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return fmt.Errorf("postgres: insert signal (%s): %w", pqErr.Code, err)
		}
		return fmt.Errorf("postgres: insert signal: %w", err)
	}
	return nil
}
