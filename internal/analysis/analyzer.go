package analysis

import (
	"context"
	"errors"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"freeco-signals/internal/domain"
	"freeco-signals/internal/llm"
	"freeco-signals/internal/metrics"
)

// SourceFallback names results produced without any provider.
const SourceFallback = "fallback"

// Analyzer asks the primary provider, then the secondary, then returns the
// neutral fallback. At most one call is made per provider.
type Analyzer struct {
	tracer    trace.Tracer
	metrics   *metrics.Recorder
	providers []llm.Completer
}

func NewAnalyzer(tracer trace.Tracer, recorder *metrics.Recorder, primary, secondary llm.Completer) *Analyzer {
	providers := make([]llm.Completer, 0, 2)
	for _, p := range []llm.Completer{primary, secondary} {
		if p != nil {
			providers = append(providers, p)
		}
	}
	return &Analyzer{tracer: tracer, metrics: recorder, providers: providers}
}

// Analyze never returns an error. The second value is the provider name that
// produced the result, or SourceFallback. Once ctx is done no further provider
// is tried; the fallback it returns then is not a verdict and callers must
// check ctx.Err() before publishing it.
func (a *Analyzer) Analyze(ctx context.Context, snap domain.MarketSnapshot) (domain.AnalysisResult, string) {
	ctx, span := a.tracer.Start(ctx, "analyzer.analyze")
	defer span.End()

	messages := BuildPrompt(snap)
	for _, p := range a.providers {
		if ctx.Err() != nil {
			break
		}
		result, err := a.try(ctx, p, messages)
		if err != nil {
			log.Printf("analysis via %s failed: %v", p.Name(), err)
			continue
		}
		span.SetAttributes(
			attribute.String("analysis.source", p.Name()),
			attribute.String("analysis.action", string(result.Action)),
		)
		a.metrics.RecordAnalysis(p.Name(), string(result.Action))
		return result, p.Name()
	}

	if err := ctx.Err(); err != nil {
		log.Printf("analysis abandoned: %v", err)
		span.RecordError(err)
		return domain.FallbackAnalysis(), SourceFallback
	}

	log.Println("all AI providers failed, defaulting to HOLD")
	result := domain.FallbackAnalysis()
	span.SetAttributes(attribute.String("analysis.source", SourceFallback))
	a.metrics.RecordAnalysis(SourceFallback, string(result.Action))
	return result, SourceFallback
}

func (a *Analyzer) try(ctx context.Context, p llm.Completer, messages []llm.Message) (domain.AnalysisResult, error) {
	start := time.Now()
	reply, err := p.Complete(ctx, messages)
	if err != nil {
		outcome := "error"
		if errors.Is(err, llm.ErrMissingCredential) {
			outcome = "unconfigured"
		}
		a.metrics.RecordProviderCall(p.Name(), outcome, time.Since(start))
		return domain.AnalysisResult{}, err
	}

	result, err := Validate(reply)
	if err != nil {
		a.metrics.RecordProviderCall(p.Name(), "invalid", time.Since(start))
		return domain.AnalysisResult{}, err
	}
	a.metrics.RecordProviderCall(p.Name(), "ok", time.Since(start))
	return result, nil
}
