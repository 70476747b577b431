package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"freeco-signals/internal/domain"
	"freeco-signals/internal/service"
)

type stubPipeline struct {
	listed    []domain.SignalRecord
	generated domain.SignalRecord
	runErr    error

	runCalls   int
	lastFilter domain.SignalFilter
}

func (s *stubPipeline) ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.SignalRecord, error) {
	s.lastFilter = filter
	return append([]domain.SignalRecord(nil), s.listed...), nil
}

func (s *stubPipeline) LatestSignal(ctx context.Context) (domain.SignalRecord, bool, error) {
	if len(s.listed) == 0 {
		return domain.SignalRecord{}, false, nil
	}
	return s.listed[0], true, nil
}

func (s *stubPipeline) Snapshot(ctx context.Context) domain.MarketSnapshot {
	return domain.MarketSnapshot{Pair: "FREECO/CHF", Price: 1.003, Volume24h: 11000, Change24h: 0.8, Source: domain.SnapshotSourceLive}
}

func (s *stubPipeline) RunCycle(ctx context.Context) (domain.SignalRecord, error) {
	s.runCalls++
	if s.runErr != nil {
		return domain.SignalRecord{}, s.runErr
	}
	return s.generated, nil
}

func (s *stubPipeline) Status() service.Status {
	return service.Status{Pair: "FREECO/CHF", Topic: "hbot/predictions/freeco_chf/ML_SIGNALS", CyclesCompleted: int64(s.runCalls)}
}

func testServer() (*sdkmcp.Server, *stubPipeline) {
	pipeline := &stubPipeline{
		listed: []domain.SignalRecord{{
			ID: 1, Pair: "FREECO/CHF", Provider: "deepseek", Published: true,
			Signal: domain.Signal{
				Timestamp:     time.Unix(0, 0).UnixMilli(),
				Probabilities: [3]float64{0.2, 0.3, 0.5},
				TargetPct:     0.005,
				Features:      domain.SignalFeatures{Action: domain.ActionBuy, Confidence: 0.7},
			},
		}},
		generated: domain.SignalRecord{
			ID: 2, Pair: "FREECO/CHF", Provider: "fallback", Published: true,
			Signal: domain.Signal{
				Probabilities: [3]float64{0.33, 0.34, 0.33},
				Features:      domain.SignalFeatures{Action: domain.ActionHold, Confidence: 0.5},
			},
		},
	}

	srv := NewServer(nil, pipeline, ServerConfig{RequestTimeout: time.Second})
	return srv, pipeline
}

func connectInMemory(ctx context.Context, srv *sdkmcp.Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

type authRoundTripper struct {
	token string
	base  http.RoundTripper
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.token != "" {
		clone.Header.Set("Authorization", "Bearer "+t.token)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

func decodeResourceJSON(result *sdkmcp.ReadResourceResult, out any) error {
	if len(result.Contents) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(result.Contents[0].Text), out)
}
