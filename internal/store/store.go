// Package store holds the three in-memory tables backing the freemium engine:
// sessions, premium codes, and pending payments.
//
// Go Pattern: Instead of package-level globals, everything hangs off a Stores
// struct created once in main and passed to the handlers. This makes testing
// easy (fresh Stores per test) and would let us swap in a persistent backend
// later without touching call sites.
//
// Concurrency: each table is a map guarded by its own sync.RWMutex, the same
// approach we use for the rate limiter buckets elsewhere. Mutations happen
// entirely inside a lock, so readers never observe a partial update.
package store

import (
	"errors"
	"time"
)

// PremiumDuration is the length of the premium window granted by a code
// redemption or a payment capture.
const PremiumDuration = 24 * time.Hour

// ErrInvalidCode is returned when a premium code is not recognized.
var ErrInvalidCode = errors.New("invalid premium code")

// ErrUnknownOrder is returned when a payment order ID is not in the table.
var ErrUnknownOrder = errors.New("unknown payment order")

// Stores bundles the three in-memory tables. All state is process-local and
// unreplicated; a restart loses everything.
type Stores struct {
	Sessions *SessionStore
	Codes    *CodeRegistry
	Payments *PaymentStore
}

// New creates empty stores using the wall clock.
func New() *Stores {
	return NewWithClock(time.Now)
}

// NewWithClock creates empty stores with an injectable clock.
// Tests use this to simulate premium expiry and reclamation windows.
func NewWithClock(now func() time.Time) *Stores {
	return &Stores{
		Sessions: newSessionStore(now),
		Codes:    newCodeRegistry(now),
		Payments: newPaymentStore(now),
	}
}

// RedeemCode redeems a premium code for the given user: it grants a 24h
// premium window via the session store and records redemption metadata on the
// code if it is a generated one (predefined demo codes have no registry entry
// to update). Redemption does not invalidate the code for future use by
// others; reuse stays permitted.
func (s *Stores) RedeemCode(code, userID string) (time.Time, error) {
	if !s.Codes.IsRecognized(code) {
		return time.Time{}, ErrInvalidCode
	}
	s.Codes.MarkUsed(code, userID)
	until := s.Sessions.GrantPremium(userID, PremiumDuration)
	return until, nil
}
