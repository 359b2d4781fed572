package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oddsline/amm-engine/internal/model"
)

const (
	snapshotKey      = "pool:snapshot"
	accountEventsKey = "trades:account:"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, refresh/invalidate cache) ---

func (s *CachedStore) SaveSnapshot(ctx context.Context, snap *model.PoolSnapshot) error {
	if err := s.primary.SaveSnapshot(ctx, snap); err != nil {
		return err
	}
	if data, err := json.Marshal(snap); err == nil {
		s.rdb.Set(ctx, snapshotKey, data, s.ttl)
	}
	return nil
}

func (s *CachedStore) InsertTradeEvent(ctx context.Context, ev *model.TradeEvent) error {
	if err := s.primary.InsertTradeEvent(ctx, ev); err != nil {
		return err
	}
	// Invalidate the account's cached trade list; next read re-populates.
	s.rdb.Del(ctx, accountEventsKey+ev.Account)
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) LatestSnapshot(ctx context.Context) (*model.PoolSnapshot, error) {
	data, err := s.rdb.Get(ctx, snapshotKey).Bytes()
	if err == nil {
		var snap model.PoolSnapshot
		if json.Unmarshal(data, &snap) == nil {
			return &snap, nil
		}
	}

	snap, err := s.primary.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(snap); err == nil {
		s.rdb.Set(ctx, snapshotKey, data, s.ttl)
	}
	return snap, nil
}

func (s *CachedStore) ListTradeEventsByAccount(ctx context.Context, account string) ([]model.TradeEvent, error) {
	data, err := s.rdb.Get(ctx, accountEventsKey+account).Bytes()
	if err == nil {
		var events []model.TradeEvent
		if json.Unmarshal(data, &events) == nil {
			return events, nil
		}
	}

	events, err := s.primary.ListTradeEventsByAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(events); err == nil {
		s.rdb.Set(ctx, accountEventsKey+account, data, s.ttl)
	}
	return events, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListTradeEvents(ctx context.Context) ([]model.TradeEvent, error) {
	return s.primary.ListTradeEvents(ctx)
}
