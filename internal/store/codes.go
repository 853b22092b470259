// codes.go implements the premium-code registry.
//
// Two kinds of codes exist: a small fixed allow-list of demo codes that ship
// with the server (matched case-insensitively, never stored), and generated
// codes minted on payment capture or by an admin.
package store

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdfden/pdf-tools-api/internal/models"
)

// AdminOrigin is the sentinel origin recorded on manually generated codes.
const AdminOrigin = "admin"

// demoCodes is the fixed allow-list of predefined codes, stored normalized
// (upper-cased, trimmed). These have no registry entry; redeeming one grants
// premium but there is no Used flag to flip.
var demoCodes = map[string]bool{
	"PDFPRO2024":     true,
	"FREEPDF24":      true,
	"UNLOCK-PREMIUM": true,
}

// CodeRegistry tracks generated premium codes and their redemption state.
type CodeRegistry struct {
	mu    sync.RWMutex
	codes map[string]*models.PremiumCode
	now   func() time.Time
}

func newCodeRegistry(now func() time.Time) *CodeRegistry {
	return &CodeRegistry{
		codes: make(map[string]*models.PremiumCode),
		now:   now,
	}
}

// Generate mints a new unique code and stores it.
//
// Format: PDF_<base36 millisecond timestamp>_<8 random hex chars>. The
// timestamp plus random suffix makes collisions practically impossible;
// nothing downstream depends on the exact shape.
func (cr *CodeRegistry) Generate(originUserID string) *models.PremiumCode {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	now := cr.now()
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	code := fmt.Sprintf("PDF_%s_%s", ts, suffix)

	pc := &models.PremiumCode{
		Code:         code,
		OriginUserID: originUserID,
		CreatedAt:    now,
	}
	cr.codes[code] = pc
	cp := *pc
	return &cp
}

// normalize prepares a user-supplied code string for lookup.
func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsRecognized reports whether the code is a predefined demo code or a
// generated code in the table.
func (cr *CodeRegistry) IsRecognized(code string) bool {
	n := normalize(code)
	if demoCodes[n] {
		return true
	}
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	_, ok := cr.codes[n]
	return ok
}

// Get returns a snapshot of a generated code's registry entry.
// Demo codes have no entry, so Get returns false for them.
func (cr *CodeRegistry) Get(code string) (models.PremiumCode, bool) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	pc, ok := cr.codes[normalize(code)]
	if !ok {
		return models.PremiumCode{}, false
	}
	return *pc, true
}

// MarkUsed records redemption metadata on a generated code. Used is a flag,
// not a lock; a code that was already redeemed keeps working, only the
// latest redeemer is recorded. No-op for demo codes.
func (cr *CodeRegistry) MarkUsed(code, userID string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	if pc, ok := cr.codes[normalize(code)]; ok {
		at := cr.now()
		pc.Used = true
		pc.ActivatedBy = userID
		pc.ActivatedAt = &at
	}
}

// AttachPayment records payment provenance on a code minted during a capture.
// Payment-originated codes start out pre-redeemed by their purchaser.
func (cr *CodeRegistry) AttachPayment(code, orderID, payerID, purchaserID string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	if pc, ok := cr.codes[normalize(code)]; ok {
		at := cr.now()
		pc.Used = true
		pc.ActivatedBy = purchaserID
		pc.ActivatedAt = &at
		pc.PaymentOrderID = orderID
		pc.PayerID = payerID
	}
}

// Count returns the number of generated codes in the registry.
func (cr *CodeRegistry) Count() int {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return len(cr.codes)
}

// UsedCount returns how many generated codes have been redeemed at least once.
func (cr *CodeRegistry) UsedCount() int {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	n := 0
	for _, pc := range cr.codes {
		if pc.Used {
			n++
		}
	}
	return n
}

// reclaim drops generated codes older than maxAge and returns the count removed.
func (cr *CodeRegistry) reclaim(maxAge time.Duration) int {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	cutoff := cr.now().Add(-maxAge)
	removed := 0
	for code, pc := range cr.codes {
		if pc.CreatedAt.Before(cutoff) {
			delete(cr.codes, code)
			removed++
		}
	}
	return removed
}
