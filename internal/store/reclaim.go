// reclaim.go bounds memory growth of the in-memory tables.
//
// Go Pattern: time.Ticker in a background goroutine, stopped via context;
// the same shape as the rate-limit bucket cleanup. Reclamation is a pure
// side effect: deletion counts are logged, never returned to other components.
package store

import (
	"context"
	"log"
	"time"
)

// Retention windows, measured against each record's CreatedAt.
const (
	SessionRetention = 7 * 24 * time.Hour  // inactive sessions
	PaymentRetention = 24 * time.Hour      // orders, captured or not
	CodeRetention    = 30 * 24 * time.Hour // generated codes
)

// ReclaimResult reports what one reclamation pass removed.
type ReclaimResult struct {
	Sessions int
	Payments int
	Codes    int
}

// ReclaimOnce runs a single eviction pass over all three tables.
func (s *Stores) ReclaimOnce() ReclaimResult {
	return ReclaimResult{
		Sessions: s.Sessions.reclaim(SessionRetention),
		Payments: s.Payments.reclaim(PaymentRetention),
		Codes:    s.Codes.reclaim(CodeRetention),
	}
}

// StartReclamation launches the hourly eviction goroutine. It runs until the
// context is cancelled.
func (s *Stores) StartReclamation(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res := s.ReclaimOnce()
				if res.Sessions+res.Payments+res.Codes > 0 {
					log.Printf("🧹 Reclamation: removed %d sessions, %d payments, %d codes",
						res.Sessions, res.Payments, res.Codes)
				}
			}
		}
	}()
}
