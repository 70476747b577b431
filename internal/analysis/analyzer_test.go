package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"freeco-signals/internal/domain"
	"freeco-signals/internal/llm"
	"freeco-signals/internal/metrics"
)

type stubCompleter struct {
	name  string
	reply string
	err   error
	calls int
	last  []llm.Message
}

func (s *stubCompleter) Name() string { return s.name }

func (s *stubCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	s.calls++
	s.last = messages
	return s.reply, s.err
}

func testTracer() trace.Tracer {
	return trace.NewNoopTracerProvider().Tracer("test")
}

func testSnapshot() domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Pair:      "FREECO/CHF",
		Price:     1.023456,
		Volume24h: 12345.678,
		Change24h: -2.5,
		Timestamp: time.Unix(1700000000, 0),
		Source:    domain.SnapshotSourceSynthetic,
	}
}

func TestAnalyzePrimarySuccess(t *testing.T) {
	primary := &stubCompleter{name: "deepseek", reply: noisyReply}
	secondary := &stubCompleter{name: "minimax", reply: noisyReply}
	a := NewAnalyzer(testTracer(), metrics.New(prometheus.NewRegistry()), primary, secondary)

	got, source := a.Analyze(context.Background(), testSnapshot())
	if source != "deepseek" {
		t.Fatalf("expected deepseek source, got %s", source)
	}
	if got.Action != domain.ActionBuy || got.Confidence != 0.8 || got.Reasoning != "x" {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.Probabilities != (domain.Probabilities{Short: 0.1, Neutral: 0.1, Long: 0.8}) {
		t.Fatalf("unexpected probabilities %+v", got.Probabilities)
	}
	if secondary.calls != 0 {
		t.Fatalf("secondary should not be called, got %d calls", secondary.calls)
	}
}

func TestAnalyzeFallsBackToSecondary(t *testing.T) {
	secondaryReply := `{"action":"SELL","confidence":0.65,"reasoning":"downtrend","probabilities":{"short":0.6,"neutral":0.3,"long":0.1}}`
	want, err := Validate(secondaryReply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		primary *stubCompleter
	}{
		{"timeout", &stubCompleter{name: "deepseek", err: context.DeadlineExceeded}},
		{"missing credential", &stubCompleter{name: "deepseek", err: fmt.Errorf("deepseek: %w", llm.ErrMissingCredential)}},
		{"no json", &stubCompleter{name: "deepseek", reply: "I cannot help with that"}},
		{"invalid schema", &stubCompleter{name: "deepseek", reply: `{"action":"MAYBE"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secondary := &stubCompleter{name: "minimax", reply: secondaryReply}
			a := NewAnalyzer(testTracer(), nil, tt.primary, secondary)

			got, source := a.Analyze(context.Background(), testSnapshot())
			if source != "minimax" {
				t.Fatalf("expected minimax source, got %s", source)
			}
			if got != want {
				t.Fatalf("expected %+v, got %+v", want, got)
			}
			if tt.primary.calls != 1 || secondary.calls != 1 {
				t.Fatalf("expected one call each, got %d/%d", tt.primary.calls, secondary.calls)
			}
		})
	}
}

func TestAnalyzeBothFailReturnsFallback(t *testing.T) {
	primary := &stubCompleter{name: "deepseek", err: errors.New("connection refused")}
	secondary := &stubCompleter{name: "minimax", reply: "garbage"}
	a := NewAnalyzer(testTracer(), nil, primary, secondary)

	got, source := a.Analyze(context.Background(), testSnapshot())
	if source != SourceFallback {
		t.Fatalf("expected fallback source, got %s", source)
	}
	if got != domain.FallbackAnalysis() {
		t.Fatalf("expected fallback result, got %+v", got)
	}
	if got.Probabilities.Sum() != 1.0 {
		t.Fatalf("fallback probabilities must sum to 1, got %v", got.Probabilities.Sum())
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Fatalf("expected exactly two upstream calls, got %d/%d", primary.calls, secondary.calls)
	}
}

func TestAnalyzeStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := &cancellingCompleter{cancel: cancel}
	secondary := &stubCompleter{name: "minimax", reply: noisyReply}
	a := NewAnalyzer(testTracer(), nil, primary, secondary)

	_, source := a.Analyze(ctx, testSnapshot())
	if source != SourceFallback {
		t.Fatalf("expected fallback source, got %s", source)
	}
	if secondary.calls != 0 {
		t.Fatalf("secondary must not be called after cancellation, got %d calls", secondary.calls)
	}
}

// cancellingCompleter cancels the caller's context mid-request.
type cancellingCompleter struct {
	cancel context.CancelFunc
}

func (c *cancellingCompleter) Name() string { return "deepseek" }

func (c *cancellingCompleter) Complete(ctx context.Context, _ []llm.Message) (string, error) {
	c.cancel()
	return "", fmt.Errorf("deepseek completion: %w", ctx.Err())
}

func TestAnalyzeWithoutProviders(t *testing.T) {
	a := NewAnalyzer(testTracer(), nil, nil, nil)
	got, source := a.Analyze(context.Background(), testSnapshot())
	if source != SourceFallback || got.Action != domain.ActionHold {
		t.Fatalf("expected HOLD fallback, got %s %+v", source, got)
	}
}

func TestAnalyzeSendsSnapshotPrompt(t *testing.T) {
	primary := &stubCompleter{name: "deepseek", reply: noisyReply}
	a := NewAnalyzer(testTracer(), nil, primary, nil)
	a.Analyze(context.Background(), testSnapshot())

	if len(primary.last) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(primary.last))
	}
	if primary.last[0].Role != llm.RoleSystem || primary.last[0].Content != systemPrompt {
		t.Fatalf("unexpected system message %+v", primary.last[0])
	}
	user := primary.last[1].Content
	for _, want := range []string{"FREECO/CHF", "Price: $1.023456", "24h Volume: $12345.68", "24h Change: -2.50%", "must sum to 1.0"} {
		if !strings.Contains(user, want) {
			t.Fatalf("expected prompt to contain %q, got %s", want, user)
		}
	}
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	a := BuildPrompt(testSnapshot())
	b := BuildPrompt(testSnapshot())
	if a[1].Content != b[1].Content {
		t.Fatal("expected identical prompts for identical snapshots")
	}
}
