// Package pricing implements the risk-adjusted pricing core: buy and sell
// execution for both outcome sides, fee accounting, depth-scaled price
// impact, and the anchor-derived price band.
//
// Every trade consults the risk engine first, so the fee, the trade-size
// ceiling, and the book depth all stiffen as divergence, expiry proximity,
// or liquidity shortfall grow. Manipulation gets progressively more
// expensive exactly when the market is most fragile.
//
// All monetary values use shopspring/decimal, never float64 for money.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oddsline/amm-engine/internal/bank"
	"github.com/oddsline/amm-engine/internal/fixed"
	"github.com/oddsline/amm-engine/internal/market"
	"github.com/oddsline/amm-engine/internal/model"
	"github.com/oddsline/amm-engine/internal/oracle"
	"github.com/oddsline/amm-engine/internal/pool"
	"github.com/oddsline/amm-engine/internal/risk"
	"github.com/oddsline/amm-engine/internal/token"
)

var (
	// ErrZeroAmount is returned for zero or negative trade inputs.
	ErrZeroAmount = errors.New("pricing: amount must be positive")

	// ErrMarketResolved is returned when trading is attempted after the
	// market has settled.
	ErrMarketResolved = errors.New("pricing: market already resolved")

	// ErrTradeTooLarge is returned when the raw pre-fee input exceeds the
	// risk-derived maximum trade size.
	ErrTradeTooLarge = errors.New("pricing: trade exceeds risk-derived maximum")

	// ErrInsufficientPosition is returned when a seller does not hold the
	// shares being sold. The burn is the only gate; there is no separate
	// balance check.
	ErrInsufficientPosition = errors.New("pricing: insufficient position balance")

	// ErrInsufficientCollateral is returned when a payout would exceed the
	// collateral backing outstanding positions.
	ErrInsufficientCollateral = errors.New("pricing: insufficient pool collateral")

	// ErrNotFeeRecipient is returned when anyone but the configured fee
	// recipient attempts a fee withdrawal.
	ErrNotFeeRecipient = errors.New("pricing: caller is not the fee recipient")

	// ErrNoFeesToWithdraw is returned when accumulated fees are zero.
	ErrNoFeesToWithdraw = errors.New("pricing: no fees to withdraw")
)

// Config fixes the deployment-time pricing parameters.
type Config struct {
	// PoolAccount is the bank account holding pool collateral.
	PoolAccount string

	// FeeRecipient is the only account allowed to withdraw fees.
	FeeRecipient string

	// BandWidth is the half-width of the anchor-derived price band, as a
	// fraction of the anchor (e.g. 0.05 for +/-5%).
	BandWidth decimal.Decimal

	// DepthMultiplier scales the anchor into the base book depth, so
	// impact is relative to the anchor's magnitude.
	DepthMultiplier decimal.Decimal

	// MinBaseDepth floors the base depth for very low anchors.
	MinBaseDepth decimal.Decimal
}

// Core executes trades against the shared pool state.
type Core struct {
	cfg    Config
	state  *pool.State
	guard  *pool.Guard
	risk   *risk.Engine
	oracle oracle.AnchorOracle
	market market.Lifecycle
	bank   bank.Bank

	yes     *token.Ledger
	yesAuth *token.Authority
	no      *token.Ledger
	noAuth  *token.Authority

	now func() time.Time
}

// NewCore wires a pricing core over the shared state record. The YES/NO
// ledger authorities stay inside the core: nothing else can mint or burn
// position tokens.
func NewCore(
	cfg Config,
	state *pool.State,
	guard *pool.Guard,
	riskEngine *risk.Engine,
	anchor oracle.AnchorOracle,
	lifecycle market.Lifecycle,
	collateral bank.Bank,
	yes *token.Ledger, yesAuth *token.Authority,
	no *token.Ledger, noAuth *token.Authority,
) *Core {
	return &Core{
		cfg:     cfg,
		state:   state,
		guard:   guard,
		risk:    riskEngine,
		oracle:  anchor,
		market:  lifecycle,
		bank:    collateral,
		yes:     yes,
		yesAuth: yesAuth,
		no:      no,
		noAuth:  noAuth,
		now:     time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (c *Core) SetClock(now func() time.Time) { c.now = now }

// State returns the shared pool state record.
func (c *Core) State() *pool.State { return c.state }

// PositionBalances returns the account's YES and NO holdings.
func (c *Core) PositionBalances(account string) (yes, no decimal.Decimal) {
	return c.yes.BalanceOf(account), c.no.BalanceOf(account)
}

// assess reads the anchor and market state and derives the per-trade risk
// parameters from the current pool.
func (c *Core) assess(ctx context.Context) (anchor, score, feeBps, maxTrade decimal.Decimal, err error) {
	anchor, err = c.oracle.AnchorPrice(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero,
			fmt.Errorf("read anchor price: %w", err)
	}

	tte := c.market.TimeToExpiry(c.now())
	score, err = c.risk.Score(c.state.Price, anchor, tte, c.state.TotalPool())
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, err
	}

	feeBps, maxTrade = c.risk.TradeParams(score)
	return anchor, score, feeBps, maxTrade, nil
}

// depth computes the virtual book depth for a trade:
//
//	baseDepth = max(anchor * depthMultiplier, minBaseDepth)
//	depth     = baseDepth * (1 + R)
//
// Depth scales with the anchor level so identical nominal trades move a
// high-priced market proportionally less, and with the risk score so the
// book deepens under stress.
func (c *Core) depth(anchor, score decimal.Decimal) decimal.Decimal {
	base := fixed.Mul(anchor, c.cfg.DepthMultiplier)
	if base.LessThan(c.cfg.MinBaseDepth) {
		base = c.cfg.MinBaseDepth
	}
	return fixed.Mul(base, fixed.One.Add(score))
}

// clampToBand pins a candidate price into the symmetric band around the
// anchor. A move through the floor pins to the floor; the price never goes
// negative or wraps.
func (c *Core) clampToBand(price, anchor decimal.Decimal) decimal.Decimal {
	floor := fixed.Mul(anchor, fixed.One.Sub(c.cfg.BandWidth))
	ceiling := fixed.Mul(anchor, fixed.One.Add(c.cfg.BandWidth))
	return fixed.Clamp(price, floor, ceiling)
}

// Buy moves collateralIn from the caller into the pool, mints net-of-fee
// position tokens of the given side, and moves the price toward that side
// by net/depth, clamped to the anchor band. Returns the committed trade
// event (ID and timestamp are filled by the caller).
func (c *Core) Buy(ctx context.Context, account string, side model.Side, collateralIn decimal.Decimal) (model.TradeEvent, error) {
	if err := c.guard.Acquire(); err != nil {
		return model.TradeEvent{}, err
	}
	defer c.guard.Release()

	if collateralIn.LessThanOrEqual(decimal.Zero) {
		return model.TradeEvent{}, ErrZeroAmount
	}
	if c.market.IsResolved() {
		return model.TradeEvent{}, ErrMarketResolved
	}

	anchor, score, feeBps, maxTrade, err := c.assess(ctx)
	if err != nil {
		return model.TradeEvent{}, err
	}

	// The limit applies to the raw pre-fee input, matching sell.
	if collateralIn.GreaterThan(maxTrade) {
		return model.TradeEvent{}, ErrTradeTooLarge
	}

	// External transfer happens before any state mutation: a failed
	// transfer aborts with zero observable effects.
	if err := c.bank.Transfer(ctx, account, c.cfg.PoolAccount, collateralIn); err != nil {
		return model.TradeEvent{}, fmt.Errorf("collateral transfer: %w", err)
	}

	fee := fixed.ApplyBps(collateralIn, feeBps)
	net := collateralIn.Sub(fee)

	c.state.CollateralBalance = c.state.CollateralBalance.Add(net)
	c.state.AccumulatedFees = c.state.AccumulatedFees.Add(fee)

	ledger, auth := c.ledgerFor(side)
	if err := ledger.Mint(auth, account, net); err != nil {
		// Unreachable with a held authority and positive net; surface
		// rather than swallow if ledger wiring is ever broken.
		return model.TradeEvent{}, err
	}

	impact := fixed.Div(net, c.depth(anchor, score))
	newPrice := c.state.Price.Add(impact)
	if side == model.SideNo {
		// Buying NO is symmetric to selling YES: price moves down.
		newPrice = c.state.Price.Sub(impact)
	}
	c.state.Price = c.clampToBand(newPrice, anchor)

	return model.TradeEvent{
		Account:   account,
		Action:    model.ActionBuy,
		Side:      side,
		Amount:    collateralIn,
		Fee:       fee,
		Net:       net,
		Price:     c.state.Price,
		RiskScore: score,
	}, nil
}

// Sell burns sharesIn position tokens of the given side, pays out the
// net-of-fee amount from pool collateral, and moves the price away from
// that side. The burn is the only ownership gate: an account that never
// earned the shares fails there with ErrInsufficientPosition.
func (c *Core) Sell(ctx context.Context, account string, side model.Side, sharesIn decimal.Decimal) (model.TradeEvent, error) {
	if err := c.guard.Acquire(); err != nil {
		return model.TradeEvent{}, err
	}
	defer c.guard.Release()

	if sharesIn.LessThanOrEqual(decimal.Zero) {
		return model.TradeEvent{}, ErrZeroAmount
	}
	if c.market.IsResolved() {
		return model.TradeEvent{}, ErrMarketResolved
	}

	ledger, auth := c.ledgerFor(side)
	if err := ledger.Burn(auth, account, sharesIn); err != nil {
		if errors.Is(err, token.ErrInsufficientBalance) {
			return model.TradeEvent{}, ErrInsufficientPosition
		}
		return model.TradeEvent{}, err
	}
	// Every failure past the burn re-mints, so an aborted sell leaves zero
	// observable effects.
	abort := func(err error) (model.TradeEvent, error) {
		_ = ledger.Mint(auth, account, sharesIn)
		return model.TradeEvent{}, err
	}

	// Risk parameters use the pre-burn price; burning shares does not
	// move the price.
	anchor, score, feeBps, maxTrade, err := c.assess(ctx)
	if err != nil {
		return abort(err)
	}
	if sharesIn.GreaterThan(maxTrade) {
		return abort(ErrTradeTooLarge)
	}

	fee := fixed.ApplyBps(sharesIn, feeBps)
	net := sharesIn.Sub(fee)
	if net.GreaterThan(c.state.CollateralBalance) {
		return abort(ErrInsufficientCollateral)
	}

	if err := c.bank.Transfer(ctx, c.cfg.PoolAccount, account, net); err != nil {
		return abort(fmt.Errorf("payout transfer: %w", err))
	}

	c.state.CollateralBalance = c.state.CollateralBalance.Sub(net)
	c.state.AccumulatedFees = c.state.AccumulatedFees.Add(fee)

	impact := fixed.Div(net, c.depth(anchor, score))
	newPrice := c.state.Price.Sub(impact)
	if side == model.SideNo {
		// Selling NO is symmetric to buying YES: price moves up.
		newPrice = c.state.Price.Add(impact)
	}
	c.state.Price = c.clampToBand(newPrice, anchor)

	return model.TradeEvent{
		Account:   account,
		Action:    model.ActionSell,
		Side:      side,
		Amount:    sharesIn,
		Fee:       fee,
		Net:       net,
		Price:     c.state.Price,
		RiskScore: score,
	}, nil
}

// WithdrawFees pays the accumulated fee balance to the fee recipient and
// zeroes it. Gated to the configured recipient.
func (c *Core) WithdrawFees(ctx context.Context, caller string) (decimal.Decimal, error) {
	if err := c.guard.Acquire(); err != nil {
		return decimal.Zero, err
	}
	defer c.guard.Release()

	if caller != c.cfg.FeeRecipient {
		return decimal.Zero, ErrNotFeeRecipient
	}
	amount := c.state.AccumulatedFees
	if amount.IsZero() {
		return decimal.Zero, ErrNoFeesToWithdraw
	}

	if err := c.bank.Transfer(ctx, c.cfg.PoolAccount, caller, amount); err != nil {
		return decimal.Zero, fmt.Errorf("fee transfer: %w", err)
	}
	c.state.AccumulatedFees = decimal.Zero
	return amount, nil
}

// Quote is the read-only view for observers: the pool snapshot plus the
// risk score and derived parameters the next trade would see.
type Quote struct {
	Pool      model.PoolSnapshot `json:"pool"`
	Anchor    decimal.Decimal    `json:"anchor"`
	RiskScore decimal.Decimal    `json:"risk_score"`
	FeeBps    decimal.Decimal    `json:"fee_bps"`
	MaxTrade  decimal.Decimal    `json:"max_trade"`
	Resolved  bool               `json:"resolved"`
}

// CurrentQuote assesses risk against live state without mutating anything.
func (c *Core) CurrentQuote(ctx context.Context) (Quote, error) {
	anchor, score, feeBps, maxTrade, err := c.assess(ctx)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Pool:      c.state.Snapshot(c.now()),
		Anchor:    anchor,
		RiskScore: score,
		FeeBps:    feeBps,
		MaxTrade:  maxTrade,
		Resolved:  c.market.IsResolved(),
	}, nil
}

func (c *Core) ledgerFor(side model.Side) (*token.Ledger, *token.Authority) {
	if side == model.SideYes {
		return c.yes, c.yesAuth
	}
	return c.no, c.noAuth
}
