package mcp

import (
	"context"

	"freeco-signals/internal/domain"
	"freeco-signals/internal/service"
)

// SignalPipeline exposes signal history, market data and on-demand cycles.
type SignalPipeline interface {
	ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.SignalRecord, error)
	LatestSignal(ctx context.Context) (domain.SignalRecord, bool, error)
	Snapshot(ctx context.Context) domain.MarketSnapshot
	RunCycle(ctx context.Context) (domain.SignalRecord, error)
	Status() service.Status
}
