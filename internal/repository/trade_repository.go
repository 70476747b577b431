package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"

	"freeco-signals/internal/domain"
)

type TradeRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewTradeRepository(pool PgxPool, tracer trace.Tracer) *TradeRepository {
	return &TradeRepository{pool: pool, tracer: tracer}
}

func (r *TradeRepository) RunMigrations(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS trades (
			id           BIGSERIAL PRIMARY KEY,
			input_mint   TEXT NOT NULL,
			output_mint  TEXT NOT NULL,
			amount       NUMERIC(20, 0) NOT NULL,
			out_amount   TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL,
			transaction  TEXT NOT NULL DEFAULT '',
			error        TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_trades_created_at ON trades (created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("migrate trades: %w", err)
	}
	return nil
}

func (r *TradeRepository) InsertTrade(ctx context.Context, t domain.Trade) (domain.Trade, error) {
	_, span := r.tracer.Start(ctx, "trade-repo.insert-trade")
	defer span.End()

	var createdAt time.Time
	err := r.pool.QueryRow(ctx,
		`INSERT INTO trades (input_mint, output_mint, amount, out_amount, status, transaction, error)
		 VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		t.InputMint,
		t.OutputMint,
		strconv.FormatUint(t.Amount, 10),
		t.OutAmount,
		string(t.Status),
		t.Transaction,
		t.Error,
	).Scan(&t.ID, &createdAt)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("insert trade: %w", err)
	}
	t.CreatedAt = createdAt.UTC()
	return t, nil
}

func (r *TradeRepository) ListTrades(ctx context.Context, limit int) ([]domain.Trade, error) {
	_, span := r.tracer.Start(ctx, "trade-repo.list-trades")
	defer span.End()

	limit = clampLimit(limit, DefaultSignalLimit, MaxSignalLimit)
	rows, err := r.pool.Query(ctx,
		`SELECT id, input_mint, output_mint, amount::text, out_amount, status, transaction, error, created_at
		 FROM trades
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Trade, 0, limit)
	for rows.Next() {
		var t domain.Trade
		var amount, status string
		var createdAt time.Time
		if err := rows.Scan(&t.ID, &t.InputMint, &t.OutputMint, &amount, &t.OutAmount, &status, &t.Transaction, &t.Error, &createdAt); err != nil {
			return nil, err
		}
		if t.Amount, err = strconv.ParseUint(amount, 10, 64); err != nil {
			return nil, fmt.Errorf("parse trade amount %q: %w", amount, err)
		}
		t.Status = domain.TradeStatus(status)
		t.CreatedAt = createdAt.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}
