package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"freeco-signals/internal/domain"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), mr
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = client.Close()

	addr := mr.Addr()
	mr.Close()
	if _, err := NewRedisClient(context.Background(), addr); err == nil {
		t.Fatal("expected error for closed server")
	}
}

func TestPushSignalKeepsNewestFirstAndCaps(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= RecentSignalsCap+5; i++ {
		rec := domain.SignalRecord{ID: int64(i), Pair: "FREECO/CHF"}
		if err := store.PushSignal(ctx, rec); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}

	all, err := store.RecentSignals(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != RecentSignalsCap {
		t.Fatalf("expected %d records, got %d", RecentSignalsCap, len(all))
	}
	if all[0].ID != int64(RecentSignalsCap+5) {
		t.Fatalf("expected newest first, got id %d", all[0].ID)
	}

	few, err := store.RecentSignals(ctx, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(few) != 3 || few[2].ID != int64(RecentSignalsCap+3) {
		t.Fatalf("unexpected limited result %+v", few)
	}
}

func TestRecentSignalsSkipsMalformed(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.PushSignal(ctx, domain.SignalRecord{ID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := mr.Lpush(recentSignalsKey, "{broken"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := store.RecentSignals(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only the valid record, got %+v", got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.LastSnapshot(ctx); err != nil || ok {
		t.Fatalf("expected empty cache, got ok=%v err=%v", ok, err)
	}

	snap := domain.MarketSnapshot{
		Pair:      "FREECO/CHF",
		Price:     1.01,
		Volume24h: 12000,
		Change24h: 2.5,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Source:    domain.SnapshotSourceLive,
	}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok, err := store.LastSnapshot(ctx)
	if err != nil || !ok {
		t.Fatalf("expected cached snapshot, got ok=%v err=%v", ok, err)
	}
	if !got.Timestamp.Equal(snap.Timestamp) || got.Price != snap.Price || got.Source != snap.Source {
		t.Fatalf("expected %+v, got %+v", snap, got)
	}
	if ttl := mr.TTL(lastSnapshotKey); ttl != snapshotTTL {
		t.Fatalf("expected ttl %s, got %s", snapshotTTL, ttl)
	}
}
