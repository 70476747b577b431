package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"

	"freeco-signals/internal/domain"
)

type stubSource struct {
	snap  domain.MarketSnapshot
	err   error
	calls int
}

func (s *stubSource) GetSnapshot(_ context.Context, pair string) (domain.MarketSnapshot, error) {
	s.calls++
	if s.err != nil {
		return domain.MarketSnapshot{}, s.err
	}
	snap := s.snap
	snap.Pair = pair
	return snap, nil
}

type stubCache struct {
	snap     domain.MarketSnapshot
	ok       bool
	readErr  error
	writeErr error
	saved    []domain.MarketSnapshot
}

func (c *stubCache) SaveSnapshot(_ context.Context, snap domain.MarketSnapshot) error {
	c.saved = append(c.saved, snap)
	return c.writeErr
}

func (c *stubCache) LastSnapshot(context.Context) (domain.MarketSnapshot, bool, error) {
	return c.snap, c.ok, c.readErr
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestProducer(source SnapshotSource, cache SnapshotCache) *Producer {
	p := NewProducer(trace.NewNoopTracerProvider().Tracer("test"), "FREECO/CHF", source, cache, nil)
	p.now = func() time.Time { return fixedNow }
	p.rng = func() float64 { return 0.75 }
	return p
}

func TestProduceLiveSnapshotIsCached(t *testing.T) {
	source := &stubSource{snap: domain.MarketSnapshot{Price: 1.02, Volume24h: 100, Change24h: 1, Source: domain.SnapshotSourceLive}}
	cache := &stubCache{}
	p := newTestProducer(source, cache)

	snap := p.Produce(context.Background())
	if snap.Source != domain.SnapshotSourceLive || snap.Price != 1.02 || snap.Pair != "FREECO/CHF" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(cache.saved) != 1 || cache.saved[0].Price != 1.02 {
		t.Fatalf("expected live snapshot to be cached, got %+v", cache.saved)
	}
}

func TestProduceCacheWriteErrorStillReturnsLive(t *testing.T) {
	source := &stubSource{snap: domain.MarketSnapshot{Price: 1.02, Source: domain.SnapshotSourceLive}}
	p := newTestProducer(source, &stubCache{writeErr: errors.New("redis down")})

	if snap := p.Produce(context.Background()); snap.Source != domain.SnapshotSourceLive {
		t.Fatalf("expected live snapshot, got %+v", snap)
	}
}

func TestProduceFallsBackToCache(t *testing.T) {
	source := &stubSource{err: errors.New("timeout")}
	cache := &stubCache{ok: true, snap: domain.MarketSnapshot{
		Pair: "FREECO/CHF", Price: 0.99, Volume24h: 5000, Change24h: -1,
		Timestamp: fixedNow.Add(-time.Hour), Source: domain.SnapshotSourceLive,
	}}
	p := newTestProducer(source, cache)

	snap := p.Produce(context.Background())
	if snap.Source != domain.SnapshotSourceCache || snap.Price != 0.99 {
		t.Fatalf("expected cached snapshot, got %+v", snap)
	}
	if !snap.Timestamp.Equal(fixedNow) {
		t.Fatalf("expected timestamp of this cycle, got %s", snap.Timestamp)
	}
	if len(cache.saved) != 0 {
		t.Fatalf("cached fallback must not be written back, got %+v", cache.saved)
	}
}

func TestProduceFallsBackToSynthetic(t *testing.T) {
	tests := []struct {
		name   string
		source SnapshotSource
		cache  SnapshotCache
	}{
		{"no collaborators", nil, nil},
		{"source error empty cache", &stubSource{err: errors.New("503")}, &stubCache{}},
		{"source and cache error", &stubSource{err: errors.New("503")}, &stubCache{readErr: errors.New("redis down")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProducer(tt.source, tt.cache)
			snap := p.Produce(context.Background())
			if snap.Source != domain.SnapshotSourceSynthetic {
				t.Fatalf("expected synthetic snapshot, got %+v", snap)
			}
			// rng fixed at 0.75
			if snap.Price != 1.025 || snap.Volume24h != 13750 || snap.Change24h != 2.5 {
				t.Fatalf("unexpected synthetic values %+v", snap)
			}
			if snap.Pair != "FREECO/CHF" || !snap.Timestamp.Equal(fixedNow) {
				t.Fatalf("unexpected synthetic metadata %+v", snap)
			}
		})
	}
}

func TestSyntheticStaysInRange(t *testing.T) {
	p := NewProducer(trace.NewNoopTracerProvider().Tracer("test"), "FREECO/CHF", nil, nil, nil)
	for i := 0; i < 500; i++ {
		snap := p.Produce(context.Background())
		if snap.Price < 0.95 || snap.Price > 1.05 {
			t.Fatalf("price out of range: %v", snap.Price)
		}
		if snap.Volume24h < 10000 || snap.Volume24h > 15000 {
			t.Fatalf("volume out of range: %v", snap.Volume24h)
		}
		if snap.Change24h < -5 || snap.Change24h > 5 {
			t.Fatalf("change out of range: %v", snap.Change24h)
		}
	}
}
