package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oddsline/amm-engine/internal/model"
)

func TestMemoryStore_LatestSnapshot(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.LatestSnapshot(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("expected ErrNoSnapshot on empty store, got %v", err)
	}

	first := model.PoolSnapshot{Price: decimal.NewFromFloat(0.5), UpdatedAt: time.Now()}
	second := model.PoolSnapshot{Price: decimal.NewFromFloat(0.52), UpdatedAt: time.Now()}
	if err := s.SaveSnapshot(ctx, &first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SaveSnapshot(ctx, &second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Price.Equal(second.Price) {
		t.Errorf("expected latest snapshot price %s, got %s", second.Price, got.Price)
	}
}

func TestMemoryStore_TradeEventsByAccount(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, ev := range []model.TradeEvent{
		{ID: "1", Account: "alice", Action: model.ActionBuy, Side: model.SideYes},
		{ID: "2", Account: "bob", Action: model.ActionBuy, Side: model.SideNo},
		{ID: "3", Account: "alice", Action: model.ActionSell, Side: model.SideYes},
	} {
		ev := ev
		if err := s.InsertTradeEvent(ctx, &ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	all, err := s.ListTradeEvents(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 events, got %d", len(all))
	}

	alice, err := s.ListTradeEventsByAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alice) != 2 {
		t.Fatalf("expected 2 events for alice, got %d", len(alice))
	}
	if alice[0].ID != "1" || alice[1].ID != "3" {
		t.Errorf("expected insertion order preserved, got %s then %s", alice[0].ID, alice[1].ID)
	}
}
