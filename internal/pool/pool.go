// Package pool holds the single shared mutable pool state record and the
// reentrancy guard protecting it. The record is exclusively owned by the
// pricing engine; liquidity and settlement operations mutate it only
// through their own guarded entry points, never concurrently.
package pool

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oddsline/amm-engine/internal/model"
)

// ErrReentrantCall is returned when an operation re-enters the engine
// while another guarded operation is still executing, e.g. from within the
// external collateral-transfer step.
var ErrReentrantCall = errors.New("pool: reentrant call rejected")

// State is the pool's mutable trading state.
//
// Invariant: TotalPool() = CollateralBalance + AccumulatedFees +
// LPTotalDeposits is the liquidity signal fed to the risk engine.
type State struct {
	// Price is the current internal YES-side price, WAD.
	Price decimal.Decimal

	// CollateralBalance backs all outstanding minted position tokens.
	// Excludes fees and untapped LP capital.
	CollateralBalance decimal.Decimal

	// AccumulatedFees is fee revenue owed to the fee recipient, zeroed
	// on withdrawal.
	AccumulatedFees decimal.Decimal

	// LPTotalDeposits is collateral supplied by liquidity providers,
	// a pool distinct from CollateralBalance.
	LPTotalDeposits decimal.Decimal
}

// NewState creates pool state at the initial price.
func NewState(initialPrice decimal.Decimal) *State {
	return &State{Price: initialPrice}
}

// TotalPool returns the combined liquidity signal.
func (s *State) TotalPool() decimal.Decimal {
	return s.CollateralBalance.Add(s.AccumulatedFees).Add(s.LPTotalDeposits)
}

// Snapshot returns a point-in-time copy for observers and persistence.
func (s *State) Snapshot(now time.Time) model.PoolSnapshot {
	return model.PoolSnapshot{
		Price:             s.Price,
		CollateralBalance: s.CollateralBalance,
		AccumulatedFees:   s.AccumulatedFees,
		LPTotalDeposits:   s.LPTotalDeposits,
		TotalPool:         s.TotalPool(),
		UpdatedAt:         now,
	}
}

// Guard is the exclusive-execution lock held for the duration of every
// state-mutating operation. Acquire fails instead of blocking: under the
// platform's serialized execution a second acquisition can only mean
// reentry through an external call.
type Guard struct {
	held atomic.Bool
}

// NewGuard creates a released guard.
func NewGuard() *Guard { return &Guard{} }

// Acquire takes the lock, or fails with ErrReentrantCall if already held.
func (g *Guard) Acquire() error {
	if !g.held.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

// Release frees the lock. Must run on every exit path.
func (g *Guard) Release() {
	g.held.Store(false)
}
