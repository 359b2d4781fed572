// Package risk implements the composite risk score and the defensive
// parameter curves it drives.
//
// The score R in [0, 1] blends three sub-scores:
//   - divergence of the internal price from the external anchor, measured
//     relative to the anchor so markets at any price level are treated alike
//   - proximity to expiry (risk rises monotonically as expiry approaches)
//   - liquidity shortfall against a configured target
//
// R then sets the trading fee (linear between FeeMinBps and FeeMaxBps) and
// shrinks the maximum trade size. Both curves are monotone in R: fee never
// decreases, max trade never increases.
//
// All monetary values use shopspring/decimal, never float64 for money.
package risk

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oddsline/amm-engine/internal/fixed"
)

var (
	// ErrAnchorInvalid is returned when the anchor price is zero;
	// relative divergence is undefined without a reference.
	ErrAnchorInvalid = errors.New("risk: anchor price must be positive")

	// ErrInvalidWeights is returned when the three sub-score weights do
	// not sum to exactly 1.0. Never relaxed.
	ErrInvalidWeights = errors.New("risk: weights must sum to exactly 1")

	// ErrInvalidRange is returned when feeMin exceeds feeMax or a
	// ceiling/target is not positive.
	ErrInvalidRange = errors.New("risk: invalid parameter range")

	// ErrNotOwner is returned when a non-owner attempts a parameter update.
	ErrNotOwner = errors.New("risk: caller is not the parameter owner")
)

// Params are the owner-configurable inputs to the score and curves.
type Params struct {
	// DivergenceCeiling is the relative divergence that saturates the
	// divergence sub-score to 1.
	DivergenceCeiling decimal.Decimal `json:"divergence_ceiling"`

	// TimeCeiling is the time-to-expiry at or beyond which the time
	// sub-score is 0.
	TimeCeiling time.Duration `json:"time_ceiling"`

	// LiquidityTarget is the pool level at or above which the liquidity
	// sub-score is 0.
	LiquidityTarget decimal.Decimal `json:"liquidity_target"`

	// WDiv, WTime, WLiq weight the sub-scores; they must sum to exactly 1.
	WDiv  decimal.Decimal `json:"w_div"`
	WTime decimal.Decimal `json:"w_time"`
	WLiq  decimal.Decimal `json:"w_liq"`

	// FeeMinBps and FeeMaxBps bound the fee curve, in basis points.
	FeeMinBps decimal.Decimal `json:"fee_min_bps"`
	FeeMaxBps decimal.Decimal `json:"fee_max_bps"`

	// BaseMaxTrade is the maximum trade size at zero risk.
	BaseMaxTrade decimal.Decimal `json:"base_max_trade"`

	// DepthSensitivity is the fraction of BaseMaxTrade shed at full risk,
	// in [0, 1].
	DepthSensitivity decimal.Decimal `json:"depth_sensitivity"`
}

// Validate checks weight and range constraints. A Params value that fails
// validation is never installed.
func (p Params) Validate() error {
	if !p.WDiv.Add(p.WTime).Add(p.WLiq).Equal(fixed.One) {
		return ErrInvalidWeights
	}
	if p.WDiv.IsNegative() || p.WTime.IsNegative() || p.WLiq.IsNegative() {
		return ErrInvalidWeights
	}
	if p.FeeMinBps.GreaterThan(p.FeeMaxBps) || p.FeeMinBps.IsNegative() {
		return ErrInvalidRange
	}
	if p.DivergenceCeiling.LessThanOrEqual(decimal.Zero) ||
		p.LiquidityTarget.LessThanOrEqual(decimal.Zero) ||
		p.TimeCeiling <= 0 {
		return ErrInvalidRange
	}
	if p.BaseMaxTrade.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidRange
	}
	if p.DepthSensitivity.IsNegative() || p.DepthSensitivity.GreaterThan(fixed.One) {
		return ErrInvalidRange
	}
	return nil
}

// Engine computes risk scores and the derived trade parameters. Beyond
// parameter storage it is pure: it holds no trading state and performs no
// side effects.
type Engine struct {
	owner string

	mu     sync.RWMutex
	params Params
}

// NewEngine creates a risk engine with validated initial parameters.
// Parameter updates are gated to owner.
func NewEngine(owner string, p Params) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Engine{owner: owner, params: p}, nil
}

// Params returns a copy of the current parameters.
func (e *Engine) Params() Params {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.params
}

// SetParams installs new parameters. Validation runs before any field is
// written, so a rejected update leaves the previous parameters untouched.
func (e *Engine) SetParams(caller string, p Params) error {
	if caller != e.owner {
		return ErrNotOwner
	}
	if err := p.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.params = p
	return nil
}

// Score computes the composite risk score R in [0, 1].
//
//	rDiv  = clamp(|price - anchor| / anchor / divergenceCeiling, 0, 1)
//	rTime = clamp((timeCeiling - tte) / timeCeiling, 0, 1)
//	rLiq  = clamp((liquidityTarget - pool) / liquidityTarget, 0, 1)
//	R     = clamp(wDiv*rDiv + wTime*rTime + wLiq*rLiq, 0, 1)
//
// Divergence is relative, not absolute, so a 2-cent move on a 50-cent
// anchor scores the same as a 40-dollar move on a 1000-dollar anchor.
func (e *Engine) Score(price, anchor decimal.Decimal, timeToExpiry time.Duration, poolCollateral decimal.Decimal) (decimal.Decimal, error) {
	if anchor.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrAnchorInvalid
	}

	e.mu.RLock()
	p := e.params
	e.mu.RUnlock()

	divergence := fixed.Div(price.Sub(anchor).Abs(), anchor)
	rDiv := fixed.Clamp01(fixed.Div(divergence, p.DivergenceCeiling))

	rTime := decimal.Zero
	if timeToExpiry < p.TimeCeiling {
		remaining := decimal.NewFromInt(int64(timeToExpiry))
		ceiling := decimal.NewFromInt(int64(p.TimeCeiling))
		rTime = fixed.Clamp01(fixed.Div(ceiling.Sub(remaining), ceiling))
	}

	rLiq := decimal.Zero
	if poolCollateral.LessThan(p.LiquidityTarget) {
		rLiq = fixed.Clamp01(fixed.Div(p.LiquidityTarget.Sub(poolCollateral), p.LiquidityTarget))
	}

	score := fixed.Mul(p.WDiv, rDiv).
		Add(fixed.Mul(p.WTime, rTime)).
		Add(fixed.Mul(p.WLiq, rLiq))
	return fixed.Clamp01(score), nil
}

// TradeParams maps a risk score to the fee rate (basis points) and the
// maximum trade size.
//
//	feeBps   = feeMin + R * (feeMax - feeMin)
//	maxTrade = baseMaxTrade * (1 - depthSensitivity * R)
func (e *Engine) TradeParams(score decimal.Decimal) (feeBps, maxTrade decimal.Decimal) {
	e.mu.RLock()
	p := e.params
	e.mu.RUnlock()

	r := fixed.Clamp01(score)
	feeBps = p.FeeMinBps.Add(fixed.Mul(r, p.FeeMaxBps.Sub(p.FeeMinBps)))
	maxTrade = fixed.Mul(p.BaseMaxTrade, fixed.One.Sub(fixed.Mul(p.DepthSensitivity, r)))
	return feeBps, maxTrade
}
