// Package store defines the persistence interface for the pricing engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/oddsline/amm-engine/internal/model"
)

// ErrNoSnapshot is returned when no pool snapshot has been persisted yet.
var ErrNoSnapshot = errors.New("store: no pool snapshot")

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Pool snapshots ---

	// SaveSnapshot persists the pool state after a committed operation.
	SaveSnapshot(ctx context.Context, snap *model.PoolSnapshot) error

	// LatestSnapshot returns the most recently saved pool state.
	LatestSnapshot(ctx context.Context) (*model.PoolSnapshot, error)

	// --- Immutable trade event ledger ---

	// InsertTradeEvent appends an immutable trade record.
	InsertTradeEvent(ctx context.Context, ev *model.TradeEvent) error

	// ListTradeEvents returns all trades in execution order.
	ListTradeEvents(ctx context.Context) ([]model.TradeEvent, error)

	// ListTradeEventsByAccount returns all trades for one account.
	ListTradeEventsByAccount(ctx context.Context, account string) ([]model.TradeEvent, error)
}
