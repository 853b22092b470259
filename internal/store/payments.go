// payments.go implements the pending-payment table.
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

// PaymentStore tracks payment orders between initiation and capture.
type PaymentStore struct {
	mu     sync.RWMutex
	orders map[string]*models.PendingPayment
	now    func() time.Time
}

func newPaymentStore(now func() time.Time) *PaymentStore {
	return &PaymentStore{
		orders: make(map[string]*models.PendingPayment),
		now:    now,
	}
}

// Create mints a new pending order for the given user at the given price.
func (ps *PaymentStore) Create(userID, amount string) *models.PendingPayment {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := ps.now()
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	orderID := fmt.Sprintf("ORDER_%s_%s", ts, suffix)

	p := &models.PendingPayment{
		OrderID:   orderID,
		UserID:    userID,
		Amount:    amount,
		Status:    models.PaymentPending,
		CreatedAt: now,
	}
	ps.orders[orderID] = p
	cp := *p
	return &cp
}

// Get returns a snapshot of an order.
func (ps *PaymentStore) Get(orderID string) (models.PendingPayment, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	p, ok := ps.orders[orderID]
	if !ok {
		return models.PendingPayment{}, false
	}
	return *p, true
}

// Complete marks an order as captured.
func (ps *PaymentStore) Complete(orderID string) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	p, ok := ps.orders[orderID]
	if !ok {
		return ErrUnknownOrder
	}
	p.Status = models.PaymentCompleted
	return nil
}

// Count returns the number of orders in the table.
func (ps *PaymentStore) Count() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.orders)
}

// reclaim drops orders older than maxAge regardless of status; once the
// retention window passes, a captured order's job is long done.
func (ps *PaymentStore) reclaim(maxAge time.Duration) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	cutoff := ps.now().Add(-maxAge)
	removed := 0
	for id, p := range ps.orders {
		if p.CreatedAt.Before(cutoff) {
			delete(ps.orders, id)
			removed++
		}
	}
	return removed
}
