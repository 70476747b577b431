package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"freeco-signals/internal/domain"
	"freeco-signals/internal/metrics"
	"freeco-signals/internal/publish"
	"freeco-signals/internal/repository"
)

// ErrCycleInProgress is returned when a cycle is requested while another is running.
var ErrCycleInProgress = errors.New("signal cycle already in progress")

type SnapshotProducer interface {
	Produce(ctx context.Context) domain.MarketSnapshot
}

type SignalAnalyzer interface {
	Analyze(ctx context.Context, snap domain.MarketSnapshot) (domain.AnalysisResult, string)
}

type SignalPublisher interface {
	Publish(ctx context.Context, snap domain.MarketSnapshot, result domain.AnalysisResult) publish.Outcome
}

type SignalRepository interface {
	InsertSignal(ctx context.Context, rec domain.SignalRecord) (domain.SignalRecord, error)
	ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.SignalRecord, error)
	LatestSignal(ctx context.Context) (domain.SignalRecord, bool, error)
}

type RecentSignalCache interface {
	PushSignal(ctx context.Context, rec domain.SignalRecord) error
	RecentSignals(ctx context.Context, limit int) ([]domain.SignalRecord, error)
}

type SignalNotifier interface {
	NotifySignal(rec domain.SignalRecord)
}

// NotifierFunc adapts a plain function to SignalNotifier.
type NotifierFunc func(domain.SignalRecord)

func (f NotifierFunc) NotifySignal(rec domain.SignalRecord) { f(rec) }

type Settings struct {
	Pair      string
	Topic     string
	Providers []string
	Sinks     []string
	Interval  time.Duration
	TargetPct float64
}

type Status struct {
	Pair            string               `json:"pair"`
	Topic           string               `json:"topic"`
	Providers       []string             `json:"providers"`
	Sinks           []string             `json:"sinks"`
	IntervalSeconds int                  `json:"interval_seconds"`
	TargetPct       float64              `json:"target_pct"`
	Running         bool                 `json:"running"`
	CyclesCompleted int64                `json:"cycles_completed"`
	CyclesSkipped   int64                `json:"cycles_skipped"`
	LastSignal      *domain.SignalRecord `json:"last_signal,omitempty"`
	UptimeSeconds   int64                `json:"uptime_seconds"`
}

// SignalService runs the snapshot, analyze, publish pipeline and serves its history.
type SignalService struct {
	tracer    trace.Tracer
	producer  SnapshotProducer
	analyzer  SignalAnalyzer
	publisher SignalPublisher
	repo      SignalRepository
	cache     RecentSignalCache
	notifiers []SignalNotifier
	metrics   *metrics.Recorder
	settings  Settings
	now       func() time.Time
	startedAt time.Time

	cycleMu sync.Mutex

	statusMu  sync.RWMutex
	running   bool
	completed int64
	skipped   int64
	last      *domain.SignalRecord
	history   []domain.SignalRecord
	memoryID  int64
}

func NewSignalService(
	tracer trace.Tracer,
	producer SnapshotProducer,
	analyzer SignalAnalyzer,
	publisher SignalPublisher,
	settings Settings,
	recorder *metrics.Recorder,
) *SignalService {
	return &SignalService{
		tracer:    tracer,
		producer:  producer,
		analyzer:  analyzer,
		publisher: publisher,
		settings:  settings,
		metrics:   recorder,
		now:       time.Now,
		startedAt: time.Now(),
	}
}

// WithRepository enables Postgres history. Pass nothing when DATABASE_URL is unset.
func (s *SignalService) WithRepository(repo SignalRepository) *SignalService {
	s.repo = repo
	return s
}

func (s *SignalService) WithCache(cache RecentSignalCache) *SignalService {
	s.cache = cache
	return s
}

func (s *SignalService) AddNotifier(n SignalNotifier) {
	if n != nil {
		s.notifiers = append(s.notifiers, n)
	}
}

// RunCycle executes one full cycle. Cycles never overlap: a call made while
// another is running returns ErrCycleInProgress immediately. Publish and
// persistence failures are recorded on the returned record, not returned.
// If ctx ends before analysis completes, ctx.Err() is returned and no signal
// is published.
func (s *SignalService) RunCycle(ctx context.Context) (domain.SignalRecord, error) {
	if !s.cycleMu.TryLock() {
		s.statusMu.Lock()
		s.skipped++
		s.statusMu.Unlock()
		s.metrics.RecordCycle("skipped", 0)
		return domain.SignalRecord{}, ErrCycleInProgress
	}
	defer s.cycleMu.Unlock()

	ctx, span := s.tracer.Start(ctx, "signal-service.run-cycle")
	defer span.End()

	s.setRunning(true)
	defer s.setRunning(false)

	start := s.now()
	log.Printf("Analyzing %s...", s.settings.Pair)

	snap := s.producer.Produce(ctx)
	log.Printf("Price: %.6f, Change: %.2f%% (source: %s)", snap.Price, snap.Change24h, snap.Source)

	result, source := s.analyzer.Analyze(ctx, snap)
	if err := ctx.Err(); err != nil {
		// A cancelled cycle has no real verdict; nothing is published or recorded.
		log.Printf("cycle for %s abandoned: %v", s.settings.Pair, err)
		span.RecordError(err)
		s.metrics.RecordCycle("cancelled", s.now().Sub(start))
		return domain.SignalRecord{}, err
	}
	outcome := s.publisher.Publish(ctx, snap, result)

	rec := domain.SignalRecord{
		Pair:      s.settings.Pair,
		Topic:     s.settings.Topic,
		Provider:  source,
		Signal:    outcome.Signal,
		Published: outcome.Published,
		CreatedAt: s.now().UTC(),
	}
	if outcome.Err != nil {
		rec.PublishError = outcome.Err.Error()
	}

	if s.repo == nil {
		rec.ID = s.nextMemoryID()
	}
	rec = s.persist(ctx, rec)

	s.statusMu.Lock()
	s.completed++
	last := rec
	s.last = &last
	s.history = append([]domain.SignalRecord{rec}, s.history...)
	if len(s.history) > repository.MaxSignalLimit {
		s.history = s.history[:repository.MaxSignalLimit]
	}
	s.statusMu.Unlock()

	for _, n := range s.notifiers {
		n.NotifySignal(rec)
	}

	span.SetAttributes(
		attribute.String("signal.action", string(result.Action)),
		attribute.String("signal.source", source),
		attribute.Bool("signal.published", rec.Published),
	)
	s.metrics.RecordCycle("completed", s.now().Sub(start))
	s.metrics.RecordConfidence(s.settings.Pair, result.Confidence)
	return rec, nil
}

func (s *SignalService) persist(ctx context.Context, rec domain.SignalRecord) domain.SignalRecord {
	if s.repo != nil {
		saved, err := s.repo.InsertSignal(ctx, rec)
		if err != nil {
			log.Printf("signal persist error: %v", err)
		} else {
			rec = saved
		}
	}
	if s.cache != nil {
		if err := s.cache.PushSignal(ctx, rec); err != nil {
			log.Printf("signal cache error: %v", err)
		}
	}
	return rec
}

// ListSignals reads Postgres when configured, otherwise the Redis ring.
func (s *SignalService) ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.SignalRecord, error) {
	_, span := s.tracer.Start(ctx, "signal-service.list-signals")
	defer span.End()

	limit := filter.Limit
	if limit <= 0 {
		limit = repository.DefaultSignalLimit
	}
	if limit > repository.MaxSignalLimit {
		limit = repository.MaxSignalLimit
	}
	filter.Limit = limit

	if s.repo != nil {
		return s.repo.ListSignals(ctx, filter)
	}
	if s.cache == nil {
		return s.memoryHistory(filter), nil
	}

	recent, err := s.cache.RecentSignals(ctx, 0)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SignalRecord, 0, limit)
	for _, rec := range recent {
		if filter.Action != "" && rec.Signal.Features.Action != filter.Action {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// memoryHistory serves the last MaxSignalLimit records kept in process,
// newest first.
func (s *SignalService) memoryHistory(filter domain.SignalFilter) []domain.SignalRecord {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	out := make([]domain.SignalRecord, 0, min(filter.Limit, len(s.history)))
	for _, rec := range s.history {
		if filter.Action != "" && rec.Signal.Features.Action != filter.Action {
			continue
		}
		out = append(out, rec)
		if len(out) == filter.Limit {
			break
		}
	}
	return out
}

// LatestSignal reports false when no signal has been produced yet.
func (s *SignalService) LatestSignal(ctx context.Context) (domain.SignalRecord, bool, error) {
	recs, err := s.ListSignals(ctx, domain.SignalFilter{Limit: 1})
	if err != nil {
		return domain.SignalRecord{}, false, err
	}
	if len(recs) == 0 {
		return domain.SignalRecord{}, false, nil
	}
	return recs[0], true, nil
}

// Snapshot returns a fresh market snapshot outside the cycle.
func (s *SignalService) Snapshot(ctx context.Context) domain.MarketSnapshot {
	return s.producer.Produce(ctx)
}

func (s *SignalService) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	st := Status{
		Pair:            s.settings.Pair,
		Topic:           s.settings.Topic,
		Providers:       s.settings.Providers,
		Sinks:           s.settings.Sinks,
		IntervalSeconds: int(s.settings.Interval / time.Second),
		TargetPct:       s.settings.TargetPct,
		Running:         s.running,
		CyclesCompleted: s.completed,
		CyclesSkipped:   s.skipped,
		UptimeSeconds:   int64(s.now().Sub(s.startedAt) / time.Second),
	}
	if s.last != nil {
		last := *s.last
		st.LastSignal = &last
	}
	return st
}

// nextMemoryID numbers records when no database assigns ids.
func (s *SignalService) nextMemoryID() int64 {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.memoryID++
	return s.memoryID
}

func (s *SignalService) setRunning(v bool) {
	s.statusMu.Lock()
	s.running = v
	s.statusMu.Unlock()
}
