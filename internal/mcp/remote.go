package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"freeco-signals/internal/domain"
	"freeco-signals/internal/service"
)

const generatePath = "/api/signals/generate"

// CycleRunner runs one analysis cycle and returns the recorded signal.
type CycleRunner interface {
	RunCycle(ctx context.Context) (domain.SignalRecord, error)
}

// RemoteCycles triggers cycles on the signal server, so the server's cycle
// guard covers publishes requested over MCP as well as its own poller.
type RemoteCycles struct {
	httpClient *http.Client
	endpoint   string
	tracer     trace.Tracer
}

func NewRemoteCycles(tracer trace.Tracer, baseURL string, httpClient *http.Client) *RemoteCycles {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &RemoteCycles{
		httpClient: httpClient,
		endpoint:   strings.TrimRight(baseURL, "/") + generatePath,
		tracer:     tracer,
	}
}

// RunCycle maps the server's 409 to service.ErrCycleInProgress.
func (r *RemoteCycles) RunCycle(ctx context.Context) (domain.SignalRecord, error) {
	ctx, span := r.tracer.Start(ctx, "mcp.remote-cycle")
	defer span.End()
	span.SetAttributes(attribute.String("http.url", r.endpoint))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, nil)
	if err != nil {
		return domain.SignalRecord{}, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return domain.SignalRecord{}, fmt.Errorf("trigger cycle: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.SignalRecord{}, fmt.Errorf("read cycle response: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusConflict:
		return domain.SignalRecord{}, service.ErrCycleInProgress
	case resp.StatusCode != http.StatusOK:
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		span.SetStatus(codes.Error, msg)
		return domain.SignalRecord{}, fmt.Errorf("signal server returned %d: %s", resp.StatusCode, msg)
	}

	var rec domain.SignalRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return domain.SignalRecord{}, fmt.Errorf("decode cycle response: %w", err)
	}
	return rec, nil
}

// WithCycles returns p with RunCycle delegated to cycles. Reads still go to p.
func WithCycles(p SignalPipeline, cycles CycleRunner) SignalPipeline {
	return delegatedPipeline{SignalPipeline: p, cycles: cycles}
}

type delegatedPipeline struct {
	SignalPipeline
	cycles CycleRunner
}

func (p delegatedPipeline) RunCycle(ctx context.Context) (domain.SignalRecord, error) {
	return p.cycles.RunCycle(ctx)
}
