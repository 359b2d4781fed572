// Package bank abstracts the collateral value-transfer primitive. The
// pricing engine never touches collateral directly: it asks a Bank to move
// funds between the caller and the pool account, and the transfer either
// fully succeeds or fails with no effect.
package bank

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds is returned when the source account cannot
	// cover the transfer.
	ErrInsufficientFunds = errors.New("bank: insufficient funds")

	// ErrNonPositiveAmount is returned for zero or negative transfers.
	ErrNonPositiveAmount = errors.New("bank: amount must be positive")
)

// Bank moves collateral between accounts atomically.
type Bank interface {
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error
	BalanceOf(ctx context.Context, account string) (decimal.Decimal, error)
}

// MemoryBank implements Bank with in-memory balances. Used for testing and
// development; production deployments back this with a real asset ledger.
type MemoryBank struct {
	mu       sync.RWMutex
	balances map[string]decimal.Decimal
}

// NewMemoryBank creates an empty in-memory bank.
func NewMemoryBank() *MemoryBank {
	return &MemoryBank{balances: make(map[string]decimal.Decimal)}
}

// Credit adds funds to an account. Test/dev seeding only.
func (b *MemoryBank) Credit(account string, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] = b.balances[account].Add(amount)
}

// Transfer moves amount from one account to another under a single lock,
// so a failed transfer leaves both balances untouched.
func (b *MemoryBank) Transfer(_ context.Context, from, to string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrNonPositiveAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	src := b.balances[from]
	if src.LessThan(amount) {
		return ErrInsufficientFunds
	}
	b.balances[from] = src.Sub(amount)
	b.balances[to] = b.balances[to].Add(amount)
	return nil
}

// BalanceOf returns the account's balance (zero for unknown accounts).
func (b *MemoryBank) BalanceOf(_ context.Context, account string) (decimal.Decimal, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[account], nil
}
