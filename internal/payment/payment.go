// Package payment bridges an already-verified external payment confirmation
// into a premium grant plus a generated activation code.
//
// The server never talks to the payment provider itself; the client
// completes the PayPal flow and posts the capture result here. The bridge's
// job is strict validation of that result and the entitlement side effects.
package payment

import (
	"errors"
	"time"

	"github.com/pdfden/pdf-tools-api/internal/models"
	"github.com/pdfden/pdf-tools-api/internal/store"
)

// Price is the single fixed price point, as an exact decimal string.
// Capture compares the reported amount against this verbatim; "1.99" or
// "2.00 " are rejected even though numerically close.
const Price = "2.00"

// completedStatus is the only provider status accepted at capture.
const completedStatus = "COMPLETED"

var (
	// ErrPaymentNotCompleted rejects captures whose provider status isn't COMPLETED.
	ErrPaymentNotCompleted = errors.New("payment not completed")
	// ErrInvalidAmount rejects captures whose amount doesn't exactly match Price.
	ErrInvalidAmount = errors.New("captured amount does not match expected price")
)

// Bridge converts payment captures into entitlements.
type Bridge struct {
	stores *store.Stores
}

// New creates a payment bridge over the given stores.
func New(stores *store.Stores) *Bridge {
	return &Bridge{stores: stores}
}

// CreateOrder mints a pending order for the user at the fixed price.
func (b *Bridge) CreateOrder(userID string) *models.PendingPayment {
	return b.stores.Payments.Create(userID, Price)
}

// Capture finalizes a payment order. On success it:
//  1. generates a new premium code and marks it pre-redeemed with this
//     order's provenance (the purchaser already gets premium directly, the
//     code is a receipt and a recovery path if the session token is lost);
//  2. grants the purchasing session a 24h premium window;
//  3. marks the order completed.
//
// Validation failures leave every table untouched.
func (b *Bridge) Capture(orderID, payerID, status, amount string) (time.Time, string, error) {
	order, ok := b.stores.Payments.Get(orderID)
	if !ok {
		return time.Time{}, "", store.ErrUnknownOrder
	}
	if status != completedStatus {
		return time.Time{}, "", ErrPaymentNotCompleted
	}
	if amount != order.Amount {
		return time.Time{}, "", ErrInvalidAmount
	}

	code := b.stores.Codes.Generate(order.UserID)
	b.stores.Codes.AttachPayment(code.Code, orderID, payerID, order.UserID)
	until := b.stores.Sessions.GrantPremium(order.UserID, store.PremiumDuration)
	b.stores.Payments.Complete(orderID)

	return until, code.Code, nil
}
