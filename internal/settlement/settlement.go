// Package settlement pays out resolved markets: a claim burns all of the
// caller's YES and NO holdings, winning and losing side alike, and pays
// the winning side 1:1 from pool collateral. A claim is idempotent-safe:
// once burned, a second claim has nothing left and fails.
package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/oddsline/amm-engine/internal/bank"
	"github.com/oddsline/amm-engine/internal/market"
	"github.com/oddsline/amm-engine/internal/pool"
	"github.com/oddsline/amm-engine/internal/pricing"
	"github.com/oddsline/amm-engine/internal/token"
)

var (
	// ErrMarketNotResolved is returned while the market is still active.
	ErrMarketNotResolved = errors.New("settlement: market not resolved")

	// ErrNothingToClaim is returned when the caller holds no position
	// tokens on either side.
	ErrNothingToClaim = errors.New("settlement: nothing to claim")
)

// Engine settles claims against the shared pool state.
type Engine struct {
	poolAccount string
	state       *pool.State
	guard       *pool.Guard
	bank        bank.Bank
	market      market.Lifecycle

	yes     *token.Ledger
	yesAuth *token.Authority
	no      *token.Ledger
	noAuth  *token.Authority
}

// NewEngine wires the settlement engine over the shared state record and
// the same position ledgers the pricing core mints against.
func NewEngine(
	poolAccount string,
	state *pool.State,
	guard *pool.Guard,
	collateral bank.Bank,
	lifecycle market.Lifecycle,
	yes *token.Ledger, yesAuth *token.Authority,
	no *token.Ledger, noAuth *token.Authority,
) *Engine {
	return &Engine{
		poolAccount: poolAccount,
		state:       state,
		guard:       guard,
		bank:        collateral,
		market:      lifecycle,
		yes:         yes,
		yesAuth:     yesAuth,
		no:          no,
		noAuth:      noAuth,
	}
}

// ClaimWinnings burns the caller's full YES and NO balances and pays the
// winning side 1:1. Partial claims are deliberately not supported.
func (e *Engine) ClaimWinnings(ctx context.Context, account string) (decimal.Decimal, error) {
	if err := e.guard.Acquire(); err != nil {
		return decimal.Zero, err
	}
	defer e.guard.Release()

	if !e.market.IsResolved() {
		return decimal.Zero, ErrMarketNotResolved
	}

	yesBal := e.yes.BalanceOf(account)
	noBal := e.no.BalanceOf(account)
	if yesBal.IsZero() && noBal.IsZero() {
		return decimal.Zero, ErrNothingToClaim
	}

	outcome, err := e.market.Outcome()
	if err != nil {
		return decimal.Zero, err
	}

	payout := noBal
	if outcome {
		payout = yesBal
	}
	if payout.GreaterThan(e.state.CollateralBalance) {
		return decimal.Zero, pricing.ErrInsufficientCollateral
	}

	// Both sides burn unconditionally; losing tokens are worthless and
	// destroyed in the same claim.
	if yesBal.GreaterThan(decimal.Zero) {
		if err := e.yes.Burn(e.yesAuth, account, yesBal); err != nil {
			return decimal.Zero, err
		}
	}
	if noBal.GreaterThan(decimal.Zero) {
		if err := e.no.Burn(e.noAuth, account, noBal); err != nil {
			// Restore the YES burn; the claim aborts atomically.
			_ = e.yes.Mint(e.yesAuth, account, yesBal)
			return decimal.Zero, err
		}
	}

	if payout.GreaterThan(decimal.Zero) {
		if err := e.bank.Transfer(ctx, e.poolAccount, account, payout); err != nil {
			// Undo both burns so a failed payout leaves zero observable
			// effects.
			if yesBal.GreaterThan(decimal.Zero) {
				_ = e.yes.Mint(e.yesAuth, account, yesBal)
			}
			if noBal.GreaterThan(decimal.Zero) {
				_ = e.no.Mint(e.noAuth, account, noBal)
			}
			return decimal.Zero, fmt.Errorf("payout transfer: %w", err)
		}
		e.state.CollateralBalance = e.state.CollateralBalance.Sub(payout)
	}

	return payout, nil
}
