// Package model defines the core domain types shared across the pricing
// engine. All monetary values use shopspring/decimal, never float64 for
// money. Amounts are WAD: 18 fractional decimal digits.
package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies which outcome token a trade touches.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// ErrInvalidSide is returned when a side string is neither YES nor NO.
var ErrInvalidSide = errors.New("model: side must be YES or NO")

// ParseSide validates and normalizes a side string.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideYes:
		return SideYes, nil
	case SideNo:
		return SideNo, nil
	default:
		return "", ErrInvalidSide
	}
}

// Action identifies the direction of a trade.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// TradeEvent is an immutable record of an executed trade. Once created,
// these are never modified or deleted.
type TradeEvent struct {
	ID        string          `json:"id" db:"id"`
	Account   string          `json:"account" db:"account"`
	Action    Action          `json:"action" db:"action"`
	Side      Side            `json:"side" db:"side"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`         // raw pre-fee input
	Fee       decimal.Decimal `json:"fee" db:"fee"`               // fee withheld
	Net       decimal.Decimal `json:"net" db:"net"`               // minted (buy) or paid out (sell)
	Price     decimal.Decimal `json:"price" db:"price"`           // post-trade price
	RiskScore decimal.Decimal `json:"risk_score" db:"risk_score"` // composite R at execution
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// PoolSnapshot is a point-in-time view of the pool state.
type PoolSnapshot struct {
	Price             decimal.Decimal `json:"price" db:"price"`
	CollateralBalance decimal.Decimal `json:"collateral_balance" db:"collateral_balance"`
	AccumulatedFees   decimal.Decimal `json:"accumulated_fees" db:"accumulated_fees"`
	LPTotalDeposits   decimal.Decimal `json:"lp_total_deposits" db:"lp_total_deposits"`
	TotalPool         decimal.Decimal `json:"total_pool" db:"total_pool"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}
