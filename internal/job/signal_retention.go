package job

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const signalRetentionTick = time.Hour

type SignalPruner interface {
	DeleteSignalsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SignalRetention trims persisted signal history older than the retention window.
type SignalRetention struct {
	tracer    trace.Tracer
	pruner    SignalPruner
	retention time.Duration
	now       func() time.Time
}

func NewSignalRetention(tracer trace.Tracer, pruner SignalPruner, retention time.Duration) *SignalRetention {
	return &SignalRetention{
		tracer:    tracer,
		pruner:    pruner,
		retention: retention,
		now:       time.Now,
	}
}

func (j *SignalRetention) Start(ctx context.Context) {
	if j == nil || j.pruner == nil || j.retention <= 0 {
		<-ctx.Done()
		return
	}

	log.Println("Signal retention starting...")
	ticker := time.NewTicker(signalRetentionTick)
	defer ticker.Stop()

	j.runCleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Signal retention stopped")
			return
		case <-ticker.C:
			j.runCleanup(ctx)
		}
	}
}

func (j *SignalRetention) runCleanup(ctx context.Context) {
	if j.tracer != nil {
		var span trace.Span
		ctx, span = j.tracer.Start(ctx, "signal-retention.cleanup")
		defer span.End()
	}
	deleted, err := j.pruner.DeleteSignalsBefore(ctx, j.now().Add(-j.retention))
	if err != nil {
		log.Printf("signal retention error: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("signal retention removed %d row(s)", deleted)
	}
}
