package bank

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestTransfer_MovesFunds(t *testing.T) {
	b := NewMemoryBank()
	b.Credit("alice", d(100))

	if err := b.Transfer(context.Background(), "alice", "pool", d(40)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	alice, _ := b.BalanceOf(context.Background(), "alice")
	pool, _ := b.BalanceOf(context.Background(), "pool")
	if !alice.Equal(d(60)) {
		t.Errorf("expected alice=60, got %s", alice)
	}
	if !pool.Equal(d(40)) {
		t.Errorf("expected pool=40, got %s", pool)
	}
}

func TestTransfer_InsufficientFundsLeavesBalancesUntouched(t *testing.T) {
	b := NewMemoryBank()
	b.Credit("alice", d(10))

	err := b.Transfer(context.Background(), "alice", "pool", d(11))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	alice, _ := b.BalanceOf(context.Background(), "alice")
	pool, _ := b.BalanceOf(context.Background(), "pool")
	if !alice.Equal(d(10)) || !pool.IsZero() {
		t.Errorf("failed transfer must not move funds: alice=%s pool=%s", alice, pool)
	}
}

func TestTransfer_NonPositiveAmount(t *testing.T) {
	b := NewMemoryBank()
	b.Credit("alice", d(10))

	if err := b.Transfer(context.Background(), "alice", "pool", d(0)); !errors.Is(err, ErrNonPositiveAmount) {
		t.Errorf("expected ErrNonPositiveAmount for zero, got %v", err)
	}
	if err := b.Transfer(context.Background(), "alice", "pool", d(-1)); !errors.Is(err, ErrNonPositiveAmount) {
		t.Errorf("expected ErrNonPositiveAmount for negative, got %v", err)
	}
}
