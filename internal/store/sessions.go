// sessions.go implements the per-user session table.
//
// A session is created lazily the first time a request arrives with an
// unknown or absent user token. The server never rejects a request for a bad
// token; it just mints a fresh identity and carries on.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdfden/pdf-tools-api/internal/models"
)

// SessionStore resolves opaque user tokens to sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	now      func() time.Time
}

func newSessionStore(now func() time.Time) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*models.Session),
		now:      now,
	}
}

// Resolve maps a caller-supplied identifier to a session, creating one when
// the identifier is empty or unknown. It never fails.
//
// The returned session is a snapshot copy: callers read it freely (the
// entitlement evaluator in particular must stay side-effect free), and all
// mutation goes through RecordUsage / GrantPremium by user ID.
func (ss *SessionStore) Resolve(rawID string) (string, models.Session) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if rawID != "" {
		if s, ok := ss.sessions[rawID]; ok {
			return rawID, snapshot(s)
		}
	}

	userID := "user_" + uuid.New().String()
	s := &models.Session{
		UserID:      userID,
		UsageByTool: make(map[models.Tool]int),
		CreatedAt:   ss.now(),
	}
	ss.sessions[userID] = s
	return userID, snapshot(s)
}

// Get returns a snapshot of an existing session, if any.
func (ss *SessionStore) Get(userID string) (models.Session, bool) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	s, ok := ss.sessions[userID]
	if !ok {
		return models.Session{}, false
	}
	return snapshot(s), true
}

// RecordUsage increments the usage counter for one tool.
// Callers invoke this only after the operation was permitted AND succeeded,
// so a failed operation never consumes quota.
func (ss *SessionStore) RecordUsage(userID string, tool models.Tool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if s, ok := ss.sessions[userID]; ok {
		s.UsageByTool[tool]++
	}
}

// GrantPremium sets the session's premium expiry to now + d and returns the
// new expiry. Granting to an already-premium session does not stack; the
// window resets to now + d.
func (ss *SessionStore) GrantPremium(userID string, d time.Duration) time.Time {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	until := ss.now().Add(d)
	if s, ok := ss.sessions[userID]; ok {
		s.PremiumUntil = &until
	}
	return until
}

// Count returns the number of live sessions.
func (ss *SessionStore) Count() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// PremiumCount returns how many sessions are currently inside a premium window.
func (ss *SessionStore) PremiumCount() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	now := ss.now()
	n := 0
	for _, s := range ss.sessions {
		if s.IsPremium(now) {
			n++
		}
	}
	return n
}

// reclaim drops sessions older than maxAge and returns how many were removed.
func (ss *SessionStore) reclaim(maxAge time.Duration) int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	cutoff := ss.now().Add(-maxAge)
	removed := 0
	for id, s := range ss.sessions {
		if s.CreatedAt.Before(cutoff) {
			delete(ss.sessions, id)
			removed++
		}
	}
	return removed
}

// snapshot copies a session, including its usage map, so callers can't
// mutate store state through the returned value.
func snapshot(s *models.Session) models.Session {
	usage := make(map[models.Tool]int, len(s.UsageByTool))
	for k, v := range s.UsageByTool {
		usage[k] = v
	}
	cp := *s
	cp.UsageByTool = usage
	if s.PremiumUntil != nil {
		t := *s.PremiumUntil
		cp.PremiumUntil = &t
	}
	return cp
}
