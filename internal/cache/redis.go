package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"freeco-signals/internal/domain"
)

const (
	recentSignalsKey = "freeco:signals:recent"
	lastSnapshotKey  = "freeco:snapshot:last"

	// RecentSignalsCap bounds the recent-signal ring.
	RecentSignalsCap = 100
	snapshotTTL      = 24 * time.Hour
)

func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	log.Println("Connected to Redis")
	return client, nil
}

// Store keeps the recent-signal ring and the last good market snapshot.
type Store struct {
	client redis.Cmdable
}

func NewStore(client redis.Cmdable) *Store {
	return &Store{client: client}
}

func (s *Store) PushSignal(ctx context.Context, rec domain.SignalRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode signal record: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, recentSignalsKey, data)
		pipe.LTrim(ctx, recentSignalsKey, 0, RecentSignalsCap-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push signal: %w", err)
	}
	return nil
}

// RecentSignals returns up to limit records, newest first.
func (s *Store) RecentSignals(ctx context.Context, limit int) ([]domain.SignalRecord, error) {
	if limit <= 0 || limit > RecentSignalsCap {
		limit = RecentSignalsCap
	}
	items, err := s.client.LRange(ctx, recentSignalsKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent signals: %w", err)
	}

	out := make([]domain.SignalRecord, 0, len(items))
	for _, item := range items {
		var rec domain.SignalRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			log.Printf("skipping malformed cached signal: %v", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) SaveSnapshot(ctx context.Context, snap domain.MarketSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, lastSnapshotKey, data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LastSnapshot reports false when no snapshot is cached.
func (s *Store) LastSnapshot(ctx context.Context) (domain.MarketSnapshot, bool, error) {
	raw, err := s.client.Get(ctx, lastSnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.MarketSnapshot{}, false, nil
	}
	if err != nil {
		return domain.MarketSnapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}

	var snap domain.MarketSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.MarketSnapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}
