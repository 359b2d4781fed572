// Package market models the lifecycle collaborator: an immutable expiry
// plus a one-way Active -> Resolved transition carrying a boolean outcome.
// The pricing engine only consumes the three read queries; resolution is
// driven externally, either attested or by time-delayed fallback.
package market

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotResolved is returned when the outcome is read before resolution.
	ErrNotResolved = errors.New("market: not resolved")

	// ErrAlreadyResolved is returned on a second resolution attempt.
	// The Active -> Resolved transition is one-shot.
	ErrAlreadyResolved = errors.New("market: already resolved")

	// ErrBeforeExpiry is returned when resolution is attempted before the
	// market's expiry instant.
	ErrBeforeExpiry = errors.New("market: cannot resolve before expiry")

	// ErrDisputeWindowOpen is returned when fallback resolution is
	// attempted before the dispute window has elapsed.
	ErrDisputeWindowOpen = errors.New("market: dispute window still open")
)

// Lifecycle is the read surface the pricing engine consumes.
type Lifecycle interface {
	IsResolved() bool
	Outcome() (bool, error)
	TimeToExpiry(now time.Time) time.Duration
}

// TimedMarket is a Lifecycle with attested resolution after expiry and a
// time-delayed fallback once the dispute window passes.
type TimedMarket struct {
	expiry          time.Time
	disputeWindow   time.Duration
	fallbackOutcome bool

	mu       sync.RWMutex
	resolved bool
	outcome  bool
}

// NewTimedMarket creates an active market expiring at the given instant.
// If no attested resolution arrives within disputeWindow after expiry,
// ResolveByTimeout settles to fallbackOutcome.
func NewTimedMarket(expiry time.Time, disputeWindow time.Duration, fallbackOutcome bool) *TimedMarket {
	return &TimedMarket{
		expiry:          expiry,
		disputeWindow:   disputeWindow,
		fallbackOutcome: fallbackOutcome,
	}
}

// Expiry returns the immutable expiry instant.
func (m *TimedMarket) Expiry() time.Time { return m.expiry }

// IsResolved reports whether the market has settled.
func (m *TimedMarket) IsResolved() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolved
}

// Outcome returns the final outcome, or ErrNotResolved while active.
func (m *TimedMarket) Outcome() (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.resolved {
		return false, ErrNotResolved
	}
	return m.outcome, nil
}

// TimeToExpiry returns the remaining time, floored at zero after expiry.
func (m *TimedMarket) TimeToExpiry(now time.Time) time.Duration {
	d := m.expiry.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Resolve records an attestation-verified outcome. One-shot, and only
// valid once the market has expired.
func (m *TimedMarket) Resolve(now time.Time, outcome bool) error {
	if now.Before(m.expiry) {
		return ErrBeforeExpiry
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolved {
		return ErrAlreadyResolved
	}
	m.resolved = true
	m.outcome = outcome
	return nil
}

// ResolveByTimeout settles to the fallback outcome once the dispute window
// after expiry has fully elapsed with no attestation.
func (m *TimedMarket) ResolveByTimeout(now time.Time) error {
	if now.Before(m.expiry) {
		return ErrBeforeExpiry
	}
	if now.Before(m.expiry.Add(m.disputeWindow)) {
		return ErrDisputeWindowOpen
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolved {
		return ErrAlreadyResolved
	}
	m.resolved = true
	m.outcome = m.fallbackOutcome
	return nil
}
