package market

import (
	"errors"
	"testing"
	"time"
)

var (
	expiry  = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	dispute = 48 * time.Hour
)

func newMarket() *TimedMarket {
	return NewTimedMarket(expiry, dispute, false)
}

func TestTimeToExpiry_FlooredAtZero(t *testing.T) {
	m := newMarket()
	if got := m.TimeToExpiry(expiry.Add(time.Hour)); got != 0 {
		t.Errorf("expected 0 after expiry, got %v", got)
	}
	if got := m.TimeToExpiry(expiry.Add(-time.Hour)); got != time.Hour {
		t.Errorf("expected 1h before expiry, got %v", got)
	}
}

func TestResolve_BeforeExpiryRejected(t *testing.T) {
	m := newMarket()
	if err := m.Resolve(expiry.Add(-time.Minute), true); !errors.Is(err, ErrBeforeExpiry) {
		t.Errorf("expected ErrBeforeExpiry, got %v", err)
	}
	if m.IsResolved() {
		t.Error("market must stay active after rejected resolution")
	}
}

func TestResolve_OneShot(t *testing.T) {
	m := newMarket()
	if err := m.Resolve(expiry, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Resolve(expiry.Add(time.Hour), false); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("expected ErrAlreadyResolved, got %v", err)
	}

	outcome, err := m.Outcome()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome {
		t.Error("second resolution must not overwrite the outcome")
	}
}

func TestOutcome_BeforeResolution(t *testing.T) {
	m := newMarket()
	if _, err := m.Outcome(); !errors.Is(err, ErrNotResolved) {
		t.Errorf("expected ErrNotResolved, got %v", err)
	}
}

func TestResolveByTimeout_DisputeWindowGates(t *testing.T) {
	m := NewTimedMarket(expiry, dispute, true)

	if err := m.ResolveByTimeout(expiry.Add(-time.Minute)); !errors.Is(err, ErrBeforeExpiry) {
		t.Errorf("expected ErrBeforeExpiry, got %v", err)
	}
	if err := m.ResolveByTimeout(expiry.Add(dispute - time.Minute)); !errors.Is(err, ErrDisputeWindowOpen) {
		t.Errorf("expected ErrDisputeWindowOpen inside window, got %v", err)
	}

	if err := m.ResolveByTimeout(expiry.Add(dispute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outcome, err := m.Outcome()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome {
		t.Error("timeout resolution must apply the fallback outcome")
	}
}

func TestResolveByTimeout_AttestationWins(t *testing.T) {
	m := NewTimedMarket(expiry, dispute, true)
	if err := m.Resolve(expiry, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.ResolveByTimeout(expiry.Add(dispute * 2)); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("expected ErrAlreadyResolved, got %v", err)
	}
	outcome, _ := m.Outcome()
	if outcome {
		t.Error("timeout must not overwrite an attested outcome")
	}
}
