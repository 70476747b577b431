package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"freeco-signals/internal/domain"
)

const (
	DefaultSignalLimit = 20
	MaxSignalLimit     = 100
)

type SignalRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSignalRepository(pool PgxPool, tracer trace.Tracer) *SignalRepository {
	return &SignalRepository{pool: pool, tracer: tracer}
}

func (r *SignalRepository) RunMigrations(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ai_signals (
			id            BIGSERIAL PRIMARY KEY,
			pair          TEXT NOT NULL,
			topic         TEXT NOT NULL,
			provider      TEXT NOT NULL,
			action        TEXT NOT NULL,
			confidence    DOUBLE PRECISION NOT NULL,
			prob_short    DOUBLE PRECISION NOT NULL,
			prob_neutral  DOUBLE PRECISION NOT NULL,
			prob_long     DOUBLE PRECISION NOT NULL,
			target_pct    DOUBLE PRECISION NOT NULL,
			price         DOUBLE PRECISION NOT NULL,
			volume        DOUBLE PRECISION NOT NULL,
			price_change  DOUBLE PRECISION NOT NULL,
			reasoning     TEXT NOT NULL DEFAULT '',
			signal_ts     BIGINT NOT NULL,
			published     BOOLEAN NOT NULL,
			publish_error TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_ai_signals_created_at ON ai_signals (created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_ai_signals_action_created_at ON ai_signals (action, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("migrate ai_signals: %w", err)
	}
	return nil
}

func (r *SignalRepository) InsertSignal(ctx context.Context, rec domain.SignalRecord) (domain.SignalRecord, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.insert-signal")
	defer span.End()

	s := rec.Signal
	var createdAt time.Time
	err := r.pool.QueryRow(ctx,
		`INSERT INTO ai_signals (pair, topic, provider, action, confidence, prob_short, prob_neutral, prob_long,
		                         target_pct, price, volume, price_change, reasoning, signal_ts, published, publish_error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING id, created_at`,
		rec.Pair,
		rec.Topic,
		rec.Provider,
		string(s.Features.Action),
		s.Features.Confidence,
		s.Probabilities[0],
		s.Probabilities[1],
		s.Probabilities[2],
		s.TargetPct,
		s.Features.Price,
		s.Features.Volume,
		s.Features.Change,
		s.Features.Reasoning,
		s.Timestamp,
		rec.Published,
		rec.PublishError,
	).Scan(&rec.ID, &createdAt)
	if err != nil {
		return domain.SignalRecord{}, fmt.Errorf("insert ai_signal: %w", err)
	}
	rec.CreatedAt = createdAt.UTC()
	return rec, nil
}

// ListSignals returns newest first. Limit defaults to 20 and is capped at 100.
func (r *SignalRepository) ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.SignalRecord, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.list-signals")
	defer span.End()

	args := make([]any, 0, 2)
	var sb strings.Builder
	sb.WriteString(`SELECT id, pair, topic, provider, action, confidence, prob_short, prob_neutral, prob_long,
	                       target_pct, price, volume, price_change, reasoning, signal_ts, published, publish_error, created_at
		FROM ai_signals
		WHERE 1=1`)

	if filter.Action != "" {
		args = append(args, string(filter.Action))
		sb.WriteString(fmt.Sprintf(" AND action = $%d", len(args)))
	}

	limit := clampLimit(filter.Limit, DefaultSignalLimit, MaxSignalLimit)
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args)))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.SignalRecord, 0, limit)
	for rows.Next() {
		var rec domain.SignalRecord
		var action string
		var createdAt time.Time
		s := &rec.Signal

		if err := rows.Scan(
			&rec.ID,
			&rec.Pair,
			&rec.Topic,
			&rec.Provider,
			&action,
			&s.Features.Confidence,
			&s.Probabilities[0],
			&s.Probabilities[1],
			&s.Probabilities[2],
			&s.TargetPct,
			&s.Features.Price,
			&s.Features.Volume,
			&s.Features.Change,
			&s.Features.Reasoning,
			&s.Timestamp,
			&rec.Published,
			&rec.PublishError,
			&createdAt,
		); err != nil {
			return nil, err
		}
		s.Features.Action = domain.Action(action)
		rec.CreatedAt = createdAt.UTC()
		out = append(out, rec)
	}

	return out, rows.Err()
}

// LatestSignal reports false when the table is empty.
func (r *SignalRepository) LatestSignal(ctx context.Context) (domain.SignalRecord, bool, error) {
	recs, err := r.ListSignals(ctx, domain.SignalFilter{Limit: 1})
	if err != nil {
		return domain.SignalRecord{}, false, err
	}
	if len(recs) == 0 {
		return domain.SignalRecord{}, false, nil
	}
	return recs[0], true, nil
}

// DeleteSignalsBefore removes history rows created before cutoff.
func (r *SignalRepository) DeleteSignalsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.delete-signals-before")
	defer span.End()

	tag, err := r.pool.Exec(ctx, `DELETE FROM ai_signals WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired ai_signals: %w", err)
	}
	return tag.RowsAffected(), nil
}
