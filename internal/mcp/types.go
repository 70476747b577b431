package mcp

import (
	"fmt"
	"strings"

	"freeco-signals/internal/domain"
	"freeco-signals/internal/repository"
	"freeco-signals/internal/service"
)

type signalsListInput struct {
	Action string `json:"action,omitempty" jsonschema:"optional action filter: BUY, SELL or HOLD"`
	Limit  int    `json:"limit,omitempty" jsonschema:"number of signals to return, max 100"`
}

type signalsListOutput struct {
	Signals []domain.SignalRecord `json:"signals"`
	Count   int                   `json:"count"`
}

type signalsLatestInput struct{}

type signalsLatestOutput struct {
	Found  bool                 `json:"found"`
	Signal *domain.SignalRecord `json:"signal,omitempty"`
}

type marketSnapshotInput struct{}

type marketSnapshotOutput struct {
	Snapshot domain.MarketSnapshot `json:"snapshot"`
}

type signalsGenerateInput struct{}

type signalsGenerateOutput struct {
	Signal domain.SignalRecord `json:"signal"`
}

type pipelineStatusInput struct{}

type pipelineStatusOutput struct {
	Status service.Status `json:"status"`
}

func normalizeSignalLimit(limit int) int {
	if limit <= 0 {
		return repository.DefaultSignalLimit
	}
	if limit > repository.MaxSignalLimit {
		return repository.MaxSignalLimit
	}
	return limit
}

func normalizeAction(raw string) (domain.Action, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	action, ok := domain.ParseAction(raw)
	if !ok {
		return "", fmt.Errorf("unsupported action: %s", raw)
	}
	return action, nil
}

func normalizeSignalFilter(in signalsListInput) (domain.SignalFilter, error) {
	action, err := normalizeAction(in.Action)
	if err != nil {
		return domain.SignalFilter{}, err
	}
	return domain.SignalFilter{Action: action, Limit: normalizeSignalLimit(in.Limit)}, nil
}
