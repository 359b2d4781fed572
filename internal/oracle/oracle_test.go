package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestFixed_ServesPrice(t *testing.T) {
	o := NewFixed(d(0.55))
	price, err := o.AnchorPrice(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(d(0.55)) {
		t.Errorf("expected 0.55, got %s", price)
	}
}

func TestFixed_UnavailableWithoutPositivePrice(t *testing.T) {
	o := NewFixed(d(0))
	if _, err := o.AnchorPrice(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestSwitchable_SwapIsOwnerGated(t *testing.T) {
	initial := NewFixed(d(0.5))
	s := NewSwitchable("owner", initial)

	if err := s.Swap("attacker", NewFixed(d(0.9))); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
	price, _ := s.AnchorPrice(context.Background())
	if !price.Equal(d(0.5)) {
		t.Errorf("rejected swap must not change the oracle, got %s", price)
	}

	if err := s.Swap("owner", NewFixed(d(0.9))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	price, _ = s.AnchorPrice(context.Background())
	if !price.Equal(d(0.9)) {
		t.Errorf("expected 0.9 after swap, got %s", price)
	}
}
