// Package token implements fungible balance ledgers for position tokens
// (YES, NO) and LP shares. Mint and burn are capability-gated: each ledger
// is bound to a single Authority handed out at construction, and only the
// holder of that Authority (the pricing engine) may mint or burn.
package token

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnauthorizedMint is returned when mint or burn is attempted
	// without the ledger's authority.
	ErrUnauthorizedMint = errors.New("token: caller does not hold mint/burn authority")

	// ErrInsufficientBalance is returned when a burn exceeds the
	// account's balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")

	// ErrNonPositiveAmount is returned for zero or negative mint/burn amounts.
	ErrNonPositiveAmount = errors.New("token: amount must be positive")
)

// Authority is an opaque capability. Possession of the pointer returned by
// NewLedger is the sole mint/burn credential; there is no role hierarchy.
// Non-zero size, so distinct authorities never share an address.
type Authority struct {
	_ byte
}

// Ledger is a fungible balance ledger.
type Ledger struct {
	symbol    string
	authority *Authority

	mu       sync.RWMutex
	balances map[string]decimal.Decimal
	supply   decimal.Decimal
}

// NewLedger creates a ledger and its single mint/burn authority.
func NewLedger(symbol string) (*Ledger, *Authority) {
	auth := &Authority{}
	return &Ledger{
		symbol:    symbol,
		authority: auth,
		balances:  make(map[string]decimal.Decimal),
	}, auth
}

// Symbol returns the ledger's token symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// Mint credits amount to account. Fails unless auth is this ledger's authority.
func (l *Ledger) Mint(auth *Authority, account string, amount decimal.Decimal) error {
	if auth != l.authority {
		return ErrUnauthorizedMint
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrNonPositiveAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = l.balances[account].Add(amount)
	l.supply = l.supply.Add(amount)
	return nil
}

// Burn debits amount from account. Fails unless auth is this ledger's
// authority, or if the account holds less than amount.
func (l *Ledger) Burn(auth *Authority, account string, amount decimal.Decimal) error {
	if auth != l.authority {
		return ErrUnauthorizedMint
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrNonPositiveAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balances[account]
	if bal.LessThan(amount) {
		return ErrInsufficientBalance
	}
	l.balances[account] = bal.Sub(amount)
	l.supply = l.supply.Sub(amount)
	return nil
}

// BalanceOf returns the account's balance (zero for unknown accounts).
func (l *Ledger) BalanceOf(account string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account]
}

// TotalSupply returns the outstanding token supply.
func (l *Ledger) TotalSupply() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply
}
