// Package fixed provides WAD fixed-point helpers: 18 fractional decimal
// digits with truncating division. All monetary values use
// shopspring/decimal, never float64 for money.
//
// Ratios (fees, price impact, share proportions) truncate rather than
// round, so rounding dust always remains in the pool. This favors the
// protocol over the individual trader or LP and must not be changed:
// property tests pin the truncating behavior.
package fixed

import "github.com/shopspring/decimal"

// Places is the number of fractional decimal digits in a WAD amount.
const Places int32 = 18

// BpsDenom is the basis-point denominator: 1 bps = 1/10000.
var BpsDenom = decimal.NewFromInt(10000)

// One is 1.0 in WAD terms.
var One = decimal.NewFromInt(1)

// Mul multiplies two WAD amounts, truncating the product to 18 places.
func Mul(a, b decimal.Decimal) decimal.Decimal {
	return a.Mul(b).Truncate(Places)
}

// Div divides a by b with the quotient truncated toward zero at 18 places.
// QuoRem never rounds, so the remainder dust is discarded, not carried.
func Div(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, Places)
	return q
}

// ApplyBps returns amount * bps / 10000, truncated. Used for fee math.
func ApplyBps(amount, bps decimal.Decimal) decimal.Decimal {
	return Div(amount.Mul(bps), BpsDenom)
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi decimal.Decimal) decimal.Decimal {
	if x.LessThan(lo) {
		return lo
	}
	if x.GreaterThan(hi) {
		return hi
	}
	return x
}

// Clamp01 bounds x to the unit interval.
func Clamp01(x decimal.Decimal) decimal.Decimal {
	return Clamp(x, decimal.Zero, One)
}
