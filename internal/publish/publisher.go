package publish

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"freeco-signals/internal/domain"
	"freeco-signals/internal/metrics"
)

// Sink is one outbound transport for encoded signals.
type Sink interface {
	Name() string
	Publish(ctx context.Context, key string, payload []byte) error
	Close() error
}

type SinkResult struct {
	Sink  string `json:"sink"`
	Error string `json:"error,omitempty"`
}

// Outcome reports what happened to one signal. Published is true only when
// every sink accepted it.
type Outcome struct {
	Signal    domain.Signal `json:"signal"`
	Published bool          `json:"published"`
	Sinks     []SinkResult  `json:"sinks"`
	Err       error         `json:"-"`
}

// Publisher shapes signals and fans them out to every configured sink. Sink
// failures are reported in the Outcome, never returned as errors.
type Publisher struct {
	tracer    trace.Tracer
	metrics   *metrics.Recorder
	sinks     []Sink
	targetPct float64
	now       func() time.Time
}

func NewPublisher(tracer trace.Tracer, recorder *metrics.Recorder, targetPct float64, sinks ...Sink) *Publisher {
	return &Publisher{
		tracer:    tracer,
		metrics:   recorder,
		sinks:     sinks,
		targetPct: targetPct,
		now:       time.Now,
	}
}

func (p *Publisher) Publish(ctx context.Context, snap domain.MarketSnapshot, result domain.AnalysisResult) Outcome {
	ctx, span := p.tracer.Start(ctx, "publisher.publish")
	defer span.End()

	sig := Shape(snap, result, p.targetPct, p.now())
	out := Outcome{Signal: sig}

	payload, err := Encode(sig)
	if err != nil {
		out.Err = fmt.Errorf("encode signal: %w", err)
		span.SetStatus(codes.Error, out.Err.Error())
		return out
	}
	if len(p.sinks) == 0 {
		out.Err = errors.New("no publish sinks configured")
		return out
	}

	var errs []error
	for _, sink := range p.sinks {
		err := sink.Publish(ctx, snap.Pair, payload)
		p.metrics.RecordPublish(sink.Name(), err)

		res := SinkResult{Sink: sink.Name()}
		if err != nil {
			res.Error = err.Error()
			errs = append(errs, err)
			log.Printf("signal publish error (%s): %v", sink.Name(), err)
		}
		out.Sinks = append(out.Sinks, res)
	}

	out.Err = errors.Join(errs...)
	out.Published = out.Err == nil
	span.SetAttributes(attribute.Bool("publish.ok", out.Published))
	if out.Published {
		log.Printf("Published signal: %s (confidence: %.1f%%) probabilities short=%.1f%% neutral=%.1f%% long=%.1f%%",
			result.Action, result.Confidence*100,
			sig.Probabilities[0]*100, sig.Probabilities[1]*100, sig.Probabilities[2]*100)
	} else {
		span.SetStatus(codes.Error, out.Err.Error())
	}
	return out
}

// SinkNames lists the active sinks in publish order.
func (p *Publisher) SinkNames() []string {
	names := make([]string, 0, len(p.sinks))
	for _, sink := range p.sinks {
		names = append(names, sink.Name())
	}
	return names
}

// Close closes every sink and returns the joined errors.
func (p *Publisher) Close() error {
	var errs []error
	for _, sink := range p.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s sink: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}
