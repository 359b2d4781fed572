package token

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestMint_RequiresAuthority(t *testing.T) {
	ledger, _ := NewLedger("YES")
	forged := &Authority{}

	if err := ledger.Mint(forged, "alice", d(100)); !errors.Is(err, ErrUnauthorizedMint) {
		t.Errorf("expected ErrUnauthorizedMint with forged authority, got %v", err)
	}
	if !ledger.BalanceOf("alice").IsZero() {
		t.Errorf("failed mint must not credit balance")
	}
}

func TestMint_CreditsBalanceAndSupply(t *testing.T) {
	ledger, auth := NewLedger("YES")

	if err := ledger.Mint(auth, "alice", d(100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ledger.BalanceOf("alice").Equal(d(100)) {
		t.Errorf("expected balance 100, got %s", ledger.BalanceOf("alice"))
	}
	if !ledger.TotalSupply().Equal(d(100)) {
		t.Errorf("expected supply 100, got %s", ledger.TotalSupply())
	}
}

func TestMint_NonPositiveAmount(t *testing.T) {
	ledger, auth := NewLedger("YES")
	if err := ledger.Mint(auth, "alice", d(0)); !errors.Is(err, ErrNonPositiveAmount) {
		t.Errorf("expected ErrNonPositiveAmount for zero, got %v", err)
	}
	if err := ledger.Mint(auth, "alice", d(-5)); !errors.Is(err, ErrNonPositiveAmount) {
		t.Errorf("expected ErrNonPositiveAmount for negative, got %v", err)
	}
}

func TestBurn_RequiresAuthority(t *testing.T) {
	ledger, auth := NewLedger("NO")
	if err := ledger.Mint(auth, "bob", d(50)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ledger.Burn(&Authority{}, "bob", d(10)); !errors.Is(err, ErrUnauthorizedMint) {
		t.Errorf("expected ErrUnauthorizedMint, got %v", err)
	}
	if !ledger.BalanceOf("bob").Equal(d(50)) {
		t.Errorf("failed burn must not debit balance")
	}
}

func TestBurn_InsufficientBalance(t *testing.T) {
	ledger, auth := NewLedger("NO")
	if err := ledger.Mint(auth, "bob", d(50)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ledger.Burn(auth, "bob", d(51)); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if !ledger.BalanceOf("bob").Equal(d(50)) {
		t.Errorf("failed burn must not debit balance, got %s", ledger.BalanceOf("bob"))
	}
	if !ledger.TotalSupply().Equal(d(50)) {
		t.Errorf("failed burn must not change supply, got %s", ledger.TotalSupply())
	}
}

func TestBurn_DebitsBalanceAndSupply(t *testing.T) {
	ledger, auth := NewLedger("LP")
	if err := ledger.Mint(auth, "carol", d(80)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ledger.Burn(auth, "carol", d(30)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ledger.BalanceOf("carol").Equal(d(50)) {
		t.Errorf("expected balance 50, got %s", ledger.BalanceOf("carol"))
	}
	if !ledger.TotalSupply().Equal(d(50)) {
		t.Errorf("expected supply 50, got %s", ledger.TotalSupply())
	}
}
