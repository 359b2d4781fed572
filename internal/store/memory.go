package store

import (
	"context"
	"sync"

	"github.com/oddsline/amm-engine/internal/model"
)

// MemoryStore implements Store with in-memory slices. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots []model.PoolSnapshot
	events    []model.TradeEvent
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, snap *model.PoolSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, *snap)
	return nil
}

func (s *MemoryStore) LatestSnapshot(_ context.Context) (*model.PoolSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.snapshots) == 0 {
		return nil, ErrNoSnapshot
	}
	snap := s.snapshots[len(s.snapshots)-1]
	return &snap, nil
}

func (s *MemoryStore) InsertTradeEvent(_ context.Context, ev *model.TradeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *ev)
	return nil
}

func (s *MemoryStore) ListTradeEvents(_ context.Context) ([]model.TradeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]model.TradeEvent, len(s.events))
	copy(events, s.events)
	return events, nil
}

func (s *MemoryStore) ListTradeEventsByAccount(_ context.Context, account string) ([]model.TradeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.TradeEvent
	for _, e := range s.events {
		if e.Account == account {
			result = append(result, e)
		}
	}
	return result, nil
}
