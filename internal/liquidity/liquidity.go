// Package liquidity manages proportional LP-share accounting against the
// pool's deposit reservoir. Shares are always minted and redeemed against
// lpTotalDeposits alone, never against trading collateral or accumulated
// fees, so deposits cannot dilute fee claims or position backing.
//
// Deposits raise the total pool fed to the risk engine, lowering the
// liquidity sub-score. That coupling between provisioning and defensive
// pricing is intended.
package liquidity

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/oddsline/amm-engine/internal/bank"
	"github.com/oddsline/amm-engine/internal/fixed"
	"github.com/oddsline/amm-engine/internal/pool"
	"github.com/oddsline/amm-engine/internal/token"
)

var (
	// ErrZeroAmount is returned for zero or negative deposit/withdraw inputs.
	ErrZeroAmount = errors.New("liquidity: amount must be positive")

	// ErrInsufficientShares is returned when a withdrawal burns more LP
	// shares than the account holds.
	ErrInsufficientShares = errors.New("liquidity: insufficient LP shares")

	// ErrInsufficientLiquidity guards rounding/edge overdraw of the
	// deposit pool.
	ErrInsufficientLiquidity = errors.New("liquidity: withdrawal exceeds deposit pool")
)

// Pool manages LP deposits over the shared pool state.
type Pool struct {
	poolAccount string
	state       *pool.State
	guard       *pool.Guard
	bank        bank.Bank
	shares      *token.Ledger
	auth        *token.Authority
}

// NewPool wires LP accounting over the shared state record. The share
// ledger authority stays inside; only this component mints or burns LP
// shares.
func NewPool(poolAccount string, state *pool.State, guard *pool.Guard, collateral bank.Bank, shares *token.Ledger, auth *token.Authority) *Pool {
	return &Pool{
		poolAccount: poolAccount,
		state:       state,
		guard:       guard,
		bank:        collateral,
		shares:      shares,
		auth:        auth,
	}
}

// Shares returns the LP share ledger for balance queries.
func (p *Pool) Shares() *token.Ledger { return p.shares }

// Deposit moves amount into the deposit reservoir and mints LP shares.
// The first depositor mints 1:1; later depositors mint proportionally to
// the existing share supply over lpTotalDeposits, truncating in the
// pool's favor.
func (p *Pool) Deposit(ctx context.Context, account string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := p.guard.Acquire(); err != nil {
		return decimal.Zero, err
	}
	defer p.guard.Release()

	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrZeroAmount
	}

	supply := p.shares.TotalSupply()
	minted := amount
	if supply.GreaterThan(decimal.Zero) {
		minted = fixed.Div(fixed.Mul(amount, supply), p.state.LPTotalDeposits)
	}

	if err := p.bank.Transfer(ctx, account, p.poolAccount, amount); err != nil {
		return decimal.Zero, fmt.Errorf("deposit transfer: %w", err)
	}
	if err := p.shares.Mint(p.auth, account, minted); err != nil {
		return decimal.Zero, err
	}
	p.state.LPTotalDeposits = p.state.LPTotalDeposits.Add(amount)

	return minted, nil
}

// Withdraw burns lpShares and returns the proportional slice of the
// deposit reservoir.
func (p *Pool) Withdraw(ctx context.Context, account string, lpShares decimal.Decimal) (decimal.Decimal, error) {
	if err := p.guard.Acquire(); err != nil {
		return decimal.Zero, err
	}
	defer p.guard.Release()

	if lpShares.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrZeroAmount
	}

	supply := p.shares.TotalSupply()
	if supply.IsZero() {
		return decimal.Zero, ErrInsufficientShares
	}

	amount := fixed.Div(fixed.Mul(lpShares, p.state.LPTotalDeposits), supply)
	if amount.GreaterThan(p.state.LPTotalDeposits) {
		return decimal.Zero, ErrInsufficientLiquidity
	}

	if err := p.shares.Burn(p.auth, account, lpShares); err != nil {
		if errors.Is(err, token.ErrInsufficientBalance) {
			return decimal.Zero, ErrInsufficientShares
		}
		return decimal.Zero, err
	}

	if err := p.bank.Transfer(ctx, p.poolAccount, account, amount); err != nil {
		// Undo the burn so a failed payout leaves zero observable effects.
		_ = p.shares.Mint(p.auth, account, lpShares)
		return decimal.Zero, fmt.Errorf("withdrawal transfer: %w", err)
	}
	p.state.LPTotalDeposits = p.state.LPTotalDeposits.Sub(amount)

	return amount, nil
}
