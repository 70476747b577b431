package job

import (
	"context"
	"errors"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"

	"freeco-signals/internal/domain"
	"freeco-signals/internal/service"
)

// SignalPoller runs one signal cycle per interval, starting immediately.
type SignalPoller struct {
	tracer   trace.Tracer
	cycles   CycleRunner
	interval time.Duration
}

type CycleRunner interface {
	RunCycle(ctx context.Context) (domain.SignalRecord, error)
}

func NewSignalPoller(tracer trace.Tracer, cycles CycleRunner, interval time.Duration) *SignalPoller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SignalPoller{
		tracer:   tracer,
		cycles:   cycles,
		interval: interval,
	}
}

// Start blocks until ctx is cancelled. Ticks that land while a cycle is still
// running are skipped by the service, never queued.
func (p *SignalPoller) Start(ctx context.Context) {
	if p.cycles == nil {
		log.Println("Signal poller disabled: no signal service")
		<-ctx.Done()
		return
	}

	log.Printf("Signal poller starting (every %s)...", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	go p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Signal poller stopped")
			return
		case <-ticker.C:
			go p.tick(ctx)
		}
	}
}

func (p *SignalPoller) tick(ctx context.Context) {
	ctx, span := p.tracer.Start(ctx, "signal-poller.tick")
	defer span.End()

	rec, err := p.cycles.RunCycle(ctx)
	switch {
	case errors.Is(err, service.ErrCycleInProgress):
		log.Println("signal cycle still running, skipping tick")
	case err != nil:
		log.Printf("signal cycle error: %v", err)
	default:
		log.Printf("signal published=%t action=%s confidence=%.2f provider=%s",
			rec.Published, rec.Signal.Features.Action, rec.Signal.Features.Confidence, rec.Provider)
	}
}
