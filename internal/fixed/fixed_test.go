package fixed

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDiv_TruncatesTowardZero(t *testing.T) {
	// 1/3 = 0.333... truncated at 18 places, never rounded up.
	got := Div(dec("1"), dec("3"))
	want := dec("0.333333333333333333")
	if !got.Equal(want) {
		t.Errorf("Div(1,3) = %s, want %s", got, want)
	}
}

func TestDiv_NeverRoundsUp(t *testing.T) {
	// 2/3 = 0.666...6, not ...67: the dust is discarded.
	got := Div(dec("2"), dec("3"))
	want := dec("0.666666666666666666")
	if !got.Equal(want) {
		t.Errorf("Div(2,3) = %s, want %s", got, want)
	}
}

func TestDiv_ExactQuotientUnchanged(t *testing.T) {
	got := Div(dec("10"), dec("4"))
	if !got.Equal(dec("2.5")) {
		t.Errorf("Div(10,4) = %s, want 2.5", got)
	}
}

func TestMul_TruncatesProduct(t *testing.T) {
	// Each factor has 10 fractional digits; the 20-digit product truncates
	// to 18 places.
	a := dec("0.0000000001")
	got := Mul(a, a)
	if !got.IsZero() {
		t.Errorf("Mul(1e-10, 1e-10) = %s, want 0 after truncation", got)
	}
}

func TestApplyBps(t *testing.T) {
	// 100 at 30 bps = 0.30.
	got := ApplyBps(dec("100"), dec("30"))
	if !got.Equal(dec("0.3")) {
		t.Errorf("ApplyBps(100, 30) = %s, want 0.3", got)
	}
}

func TestApplyBps_TruncatesDust(t *testing.T) {
	// A fee whose exact value has more than 18 fractional digits truncates
	// down: the trader never pays more than the exact fee, the pool keeps
	// the reconstruction shortfall.
	amount := dec("0.0000000000000000015") // 19 places
	got := ApplyBps(amount, dec("1"))
	if !got.IsZero() {
		t.Errorf("expected sub-WAD fee to truncate to 0, got %s", got)
	}
}

func TestClamp(t *testing.T) {
	lo, hi := dec("0.4"), dec("0.6")
	if got := Clamp(dec("0.2"), lo, hi); !got.Equal(lo) {
		t.Errorf("below range: got %s, want %s", got, lo)
	}
	if got := Clamp(dec("0.9"), lo, hi); !got.Equal(hi) {
		t.Errorf("above range: got %s, want %s", got, hi)
	}
	if got := Clamp(dec("0.5"), lo, hi); !got.Equal(dec("0.5")) {
		t.Errorf("in range: got %s, want 0.5", got)
	}
}

func TestClamp01(t *testing.T) {
	if got := Clamp01(dec("-3")); !got.IsZero() {
		t.Errorf("Clamp01(-3) = %s, want 0", got)
	}
	if got := Clamp01(dec("7")); !got.Equal(One) {
		t.Errorf("Clamp01(7) = %s, want 1", got)
	}
}
