// Package oracle defines the anchor-price capability consumed by the
// pricing engine. The engine is never compiled against a concrete oracle:
// it holds an AnchorOracle reference, and the Switchable holder lets the
// owner swap implementations at runtime without touching trading state.
package oracle

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnavailable is returned when no anchor price can be served.
	ErrUnavailable = errors.New("oracle: anchor price unavailable")

	// ErrNotOwner is returned when a non-owner attempts to swap the
	// active implementation.
	ErrNotOwner = errors.New("oracle: caller is not the oracle owner")
)

// AnchorOracle serves the current external reference price. The staleness
// and validation rules live behind this interface, not in the engine.
type AnchorOracle interface {
	AnchorPrice(ctx context.Context) (decimal.Decimal, error)
}

// Fixed is an oracle returning a manually set price. Used in tests and
// development wiring.
type Fixed struct {
	mu    sync.RWMutex
	price decimal.Decimal
}

// NewFixed creates a fixed oracle with an initial price.
func NewFixed(price decimal.Decimal) *Fixed {
	return &Fixed{price: price}
}

// SetPrice replaces the served price.
func (f *Fixed) SetPrice(price decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price = price
}

// AnchorPrice returns the configured price, or ErrUnavailable if none is set.
func (f *Fixed) AnchorPrice(_ context.Context) (decimal.Decimal, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrUnavailable
	}
	return f.price, nil
}

// Switchable resolves the current oracle implementation indirectly so the
// owner can hot-swap it while the engine keeps a single stable reference.
type Switchable struct {
	owner string

	mu      sync.RWMutex
	current AnchorOracle
}

// NewSwitchable creates a holder with an initial implementation.
func NewSwitchable(owner string, initial AnchorOracle) *Switchable {
	return &Switchable{owner: owner, current: initial}
}

// Swap replaces the active implementation. Owner-gated.
func (s *Switchable) Swap(caller string, impl AnchorOracle) error {
	if caller != s.owner {
		return ErrNotOwner
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = impl
	return nil
}

// AnchorPrice delegates to the active implementation.
func (s *Switchable) AnchorPrice(ctx context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	impl := s.current
	s.mu.RUnlock()

	if impl == nil {
		return decimal.Zero, ErrUnavailable
	}
	return impl.AnchorPrice(ctx)
}
