// premium.go handles the payment flow and premium-code endpoints.
//
// POST /api/create-paypal-order     - begin a payment, returns an opaque order id
// POST /api/capture-paypal-payment  - finalize a payment: premium grant + backup code
// POST /api/activate-premium-code   - redeem a code for 24h premium
// POST /api/validate-premium-code   - check validity without redeeming
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pdfden/pdf-tools-api/internal/models"
	"github.com/pdfden/pdf-tools-api/internal/payment"
	"github.com/pdfden/pdf-tools-api/internal/store"
)

// CreateOrder begins a payment flow for the requesting session.
// POST /api/create-paypal-order
func (h *Handler) CreateOrder(c *gin.Context) {
	userID, _ := h.resolveSession(c)
	order := h.Payments.CreateOrder(userID)
	log.Printf("💳 Payment order created: %s (user=%s)", order.OrderID, userID)
	c.JSON(http.StatusOK, models.CreateOrderResponse{
		OrderID: order.OrderID,
		Amount:  order.Amount,
	})
}

// CapturePayment finalizes a payment, granting premium and issuing a code.
// POST /api/capture-paypal-payment
func (h *Handler) CapturePayment(c *gin.Context) {
	h.resolveSession(c)

	var req models.CapturePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_input", "Invalid request body: "+err.Error())
		return
	}

	until, code, err := h.Payments.Capture(req.OrderID, req.PayerID, req.Status, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUnknownOrder):
			fail(c, http.StatusBadRequest, "invalid_input", "Unknown payment order")
		case errors.Is(err, payment.ErrPaymentNotCompleted):
			fail(c, http.StatusBadRequest, "payment_not_completed", "Payment is not completed; nothing was granted")
		case errors.Is(err, payment.ErrInvalidAmount):
			fail(c, http.StatusBadRequest, "invalid_amount", "Captured amount does not match the expected price")
		default:
			fail(c, http.StatusInternalServerError, "processing_failed", err.Error())
		}
		return
	}

	log.Printf("✅ Payment captured: %s → premium until %s", req.OrderID, until.Format("2006-01-02 15:04"))
	c.JSON(http.StatusOK, models.CapturePaymentResponse{
		Success:      true,
		PremiumUntil: until,
		Code:         code,
	})
}

// ActivateCode redeems a premium code for the requesting session.
// POST /api/activate-premium-code
func (h *Handler) ActivateCode(c *gin.Context) {
	userID, _ := h.resolveSession(c)

	var req models.ActivateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_input", "Invalid request body: "+err.Error())
		return
	}

	until, err := h.Stores.RedeemCode(req.Code, userID)
	if err != nil {
		// Log a partial prefix only, enough for auditing without leaking
		// guessable code material.
		log.Printf("Rejected premium code %q... (user=%s)", prefix(req.Code, 4), userID)
		fail(c, http.StatusBadRequest, "invalid_code", "Unrecognized premium code")
		return
	}

	c.JSON(http.StatusOK, models.ActivateCodeResponse{
		Success:      true,
		UserID:       userID,
		PremiumUntil: until,
	})
}

// ValidateCode checks a code without redeeming it.
// POST /api/validate-premium-code
//
// canReuse is always true for recognized codes: redemption never locks a
// code.
func (h *Handler) ValidateCode(c *gin.Context) {
	var req models.ActivateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_input", "Invalid request body: "+err.Error())
		return
	}

	if !h.Stores.Codes.IsRecognized(req.Code) {
		c.JSON(http.StatusOK, models.ValidateCodeResponse{Valid: false})
		return
	}
	used := false
	if pc, ok := h.Stores.Codes.Get(req.Code); ok {
		used = pc.Used
	}
	c.JSON(http.StatusOK, models.ValidateCodeResponse{Valid: true, CanReuse: true, Used: used})
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
