package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/oddsline/amm-engine/internal/bank"
	"github.com/oddsline/amm-engine/internal/market"
	"github.com/oddsline/amm-engine/internal/pool"
	"github.com/oddsline/amm-engine/internal/pricing"
	"github.com/oddsline/amm-engine/internal/token"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

var expiry = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	engine   *Engine
	state    *pool.State
	market   *market.TimedMarket
	treasury *bank.MemoryBank
	yes      *token.Ledger
	yesAuth  *token.Authority
	no       *token.Ledger
	noAuth   *token.Authority
}

// newFixture wires a settlement engine whose pool holds 1000 of collateral,
// with alice holding 100 YES and bob holding 40 NO.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	state := pool.NewState(d(0.5))
	state.CollateralBalance = d(1000)

	treasury := bank.NewMemoryBank()
	treasury.Credit("amm-pool", d(1000))

	m := market.NewTimedMarket(expiry, 48*time.Hour, false)

	yes, yesAuth := token.NewLedger("YES")
	no, noAuth := token.NewLedger("NO")
	require.NoError(t, yes.Mint(yesAuth, "alice", d(100)))
	require.NoError(t, no.Mint(noAuth, "bob", d(40)))

	engine := NewEngine("amm-pool", state, pool.NewGuard(), treasury, m,
		yes, yesAuth, no, noAuth)

	return &fixture{
		engine: engine, state: state, market: m, treasury: treasury,
		yes: yes, yesAuth: yesAuth, no: no, noAuth: noAuth,
	}
}

func (f *fixture) resolve(t *testing.T, outcome bool) {
	t.Helper()
	require.NoError(t, f.market.Resolve(expiry, outcome))
}

func TestClaim_BeforeResolution(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.ClaimWinnings(context.Background(), "alice")
	require.ErrorIs(t, err, ErrMarketNotResolved)
}

func TestClaim_YesOutcomePaysYesHolder(t *testing.T) {
	f := newFixture(t)
	f.resolve(t, true)

	payout, err := f.engine.ClaimWinnings(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, payout.Equal(d(100)), "got %s", payout)

	aliceBal, _ := f.treasury.BalanceOf(context.Background(), "alice")
	require.True(t, aliceBal.Equal(d(100)))
	require.True(t, f.state.CollateralBalance.Equal(d(900)))
	require.True(t, f.yes.BalanceOf("alice").IsZero())
}

func TestClaim_YesOutcomeBurnsLosingNo(t *testing.T) {
	f := newFixture(t)
	f.resolve(t, true)

	// Bob holds only losing NO tokens: they burn, payout is zero.
	payout, err := f.engine.ClaimWinnings(context.Background(), "bob")
	require.NoError(t, err)
	require.True(t, payout.IsZero(), "got %s", payout)
	require.True(t, f.no.BalanceOf("bob").IsZero())
	require.True(t, f.state.CollateralBalance.Equal(d(1000)),
		"zero payout must not touch collateral")
}

func TestClaim_NoOutcomePaysNoHolder(t *testing.T) {
	f := newFixture(t)
	f.resolve(t, false)

	payout, err := f.engine.ClaimWinnings(context.Background(), "bob")
	require.NoError(t, err)
	require.True(t, payout.Equal(d(40)), "got %s", payout)
	require.True(t, f.state.CollateralBalance.Equal(d(960)))
}

func TestClaim_BothSidesBurnTogether(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.no.Mint(f.noAuth, "alice", d(30)))
	f.resolve(t, true)

	payout, err := f.engine.ClaimWinnings(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, payout.Equal(d(100)), "only the winning side pays, got %s", payout)
	require.True(t, f.yes.BalanceOf("alice").IsZero())
	require.True(t, f.no.BalanceOf("alice").IsZero(), "losing side must burn in the same claim")
}

func TestClaim_SecondClaimHasNothing(t *testing.T) {
	f := newFixture(t)
	f.resolve(t, true)

	_, err := f.engine.ClaimWinnings(context.Background(), "alice")
	require.NoError(t, err)

	_, err = f.engine.ClaimWinnings(context.Background(), "alice")
	require.ErrorIs(t, err, ErrNothingToClaim)
}

func TestClaim_NoPosition(t *testing.T) {
	f := newFixture(t)
	f.resolve(t, true)
	_, err := f.engine.ClaimWinnings(context.Background(), "stranger")
	require.ErrorIs(t, err, ErrNothingToClaim)
}

func TestClaim_PayoutExceedingCollateral(t *testing.T) {
	f := newFixture(t)
	f.state.CollateralBalance = d(50)
	f.resolve(t, true)

	_, err := f.engine.ClaimWinnings(context.Background(), "alice")
	require.ErrorIs(t, err, pricing.ErrInsufficientCollateral)
	require.True(t, f.yes.BalanceOf("alice").Equal(d(100)),
		"rejected claim must not burn positions")
}

func TestClaim_PayoutFailureRestoresBothBurns(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.no.Mint(f.noAuth, "alice", d(30)))
	f.resolve(t, true)

	f.engine.bank = &failingBank{}

	_, err := f.engine.ClaimWinnings(context.Background(), "alice")
	require.Error(t, err)
	require.True(t, f.yes.BalanceOf("alice").Equal(d(100)),
		"failed payout must restore the YES burn")
	require.True(t, f.no.BalanceOf("alice").Equal(d(30)),
		"failed payout must restore the NO burn")
	require.True(t, f.state.CollateralBalance.Equal(d(1000)))
}

type failingBank struct{}

func (b *failingBank) Transfer(context.Context, string, string, decimal.Decimal) error {
	return context.DeadlineExceeded
}

func (b *failingBank) BalanceOf(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
