// Package models defines the data structures used throughout the application.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// There is no ORM here; all state lives in the in-memory stores, so the
// structs are just data containers plus a couple of small helper methods.
package models

import "time"

// Tool identifies one of the six PDF operations a request can select.
// Go Pattern: We use string constants instead of enums (Go doesn't have enums).
type Tool string

const (
	ToolMerge    Tool = "merge"
	ToolSplit    Tool = "split"
	ToolCompress Tool = "compress"
	ToolEdit     Tool = "edit"
	ToolRepair   Tool = "repair"
	ToolConvert  Tool = "convert"
)

// AllTools lists every known tool, in display order.
var AllTools = []Tool{ToolMerge, ToolSplit, ToolCompress, ToolEdit, ToolRepair, ToolConvert}

// Session tracks usage counters and premium state for one opaque user token.
//
// Invariant: UsageByTool counts only ever increase; the only way a counter
// resets is the whole session being evicted by reclamation. A session is
// premium iff PremiumUntil is set and strictly in the future.
type Session struct {
	UserID       string       `json:"user_id"`
	UsageByTool  map[Tool]int `json:"usage_by_tool"`
	PremiumUntil *time.Time   `json:"premium_until,omitempty"` // Pointer = nullable; nil means never granted or cleared
	CreatedAt    time.Time    `json:"created_at"`              // Immutable; used only for reclamation
}

// IsPremium reports whether the session's premium window covers the given instant.
func (s *Session) IsPremium(now time.Time) bool {
	return s.PremiumUntil != nil && s.PremiumUntil.After(now)
}

// PremiumCode is a premium-activation code minted by the server.
//
// Codes are multi-redeemable: Used is a flag recording "redeemed
// at least once", not a lock. The validation endpoint advertises this as
// canReuse; tightening it to single-use would change observable behavior.
type PremiumCode struct {
	Code           string     `json:"code"`
	OriginUserID   string     `json:"origin_user_id"` // "admin" sentinel for manually generated codes
	CreatedAt      time.Time  `json:"created_at"`
	Used           bool       `json:"used"`
	ActivatedBy    string     `json:"activated_by,omitempty"`
	ActivatedAt    *time.Time `json:"activated_at,omitempty"`
	PaymentOrderID string     `json:"payment_order_id,omitempty"` // Set when the code came from a payment capture
	PayerID        string     `json:"payer_id,omitempty"`
}

// PaymentStatus tracks the lifecycle of a pending payment order.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

// PendingPayment records a payment order between initiation and capture.
// Once captured its job is done; reclamation drops it after 24 hours either way.
type PendingPayment struct {
	OrderID   string        `json:"order_id"`
	UserID    string        `json:"user_id"`
	Amount    string        `json:"amount"` // Exact decimal string, e.g. "2.00", compared verbatim at capture
	Status    PaymentStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// --- Repair report ---

// RepairStats is the structured diagnostic report produced by the repair
// engine. Downstream responses surface these fields verbatim, so the
// found/fixed counters and the ordered log are part of the API contract.
type RepairStats struct {
	IssuesFound       int      `json:"issuesFound"`
	IssuesFixed       int      `json:"issuesFixed"`
	PagesRepaired     int      `json:"pagesRepaired"`
	TotalPages        int      `json:"totalPages"`
	LoadMethod        string   `json:"loadMethod"`
	SizeChangePercent string   `json:"sizeChangePercent"` // One decimal place, e.g. "-3.1"
	RepairLog         []string `json:"repairLog"`
}

// --- Request/Response DTOs ---
// Go Pattern: Separate structs for API input/output vs internal state.
// This keeps the API contract independent of how the stores hold data.

// UserStatusResponse is returned by GET /api/user-status.
type UserStatusResponse struct {
	UserID       string       `json:"userId"`
	IsPremium    bool         `json:"isPremium"`
	PremiumUntil *time.Time   `json:"premiumUntil,omitempty"`
	Usage        map[Tool]int `json:"usage"`
	Limits       map[Tool]any `json:"limits"`    // int ceiling, or "unlimited"
	Remaining    map[Tool]any `json:"remaining"` // int remaining, or "unlimited"
}

// ProcessResponse is returned by POST /api/process-pdf on success.
type ProcessResponse struct {
	Success     bool         `json:"success"`
	Tool        Tool         `json:"tool"`
	Filename    string       `json:"filename"`
	DownloadURL string       `json:"downloadUrl"`
	Size        int64        `json:"size"`
	Remaining   any          `json:"remaining"` // int, or "no limit"
	Repair      *RepairStats `json:"repair,omitempty"`
}

// ActivateCodeRequest is the JSON body for POST /api/activate-premium-code
// and POST /api/validate-premium-code.
type ActivateCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// ActivateCodeResponse confirms a redemption.
type ActivateCodeResponse struct {
	Success      bool      `json:"success"`
	UserID       string    `json:"userId"`
	PremiumUntil time.Time `json:"premiumUntil"`
}

// ValidateCodeResponse reports code validity without redeeming it.
type ValidateCodeResponse struct {
	Valid    bool `json:"valid"`
	CanReuse bool `json:"canReuse"`
	Used     bool `json:"used"`
}

// CreateOrderResponse is returned by POST /api/create-paypal-order.
type CreateOrderResponse struct {
	OrderID string `json:"orderId"`
	Amount  string `json:"amount"`
}

// CapturePaymentRequest is the JSON body for POST /api/capture-paypal-payment.
type CapturePaymentRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	PayerID string `json:"payerId"`
	Status  string `json:"status" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
}

// CapturePaymentResponse returns the premium grant plus a backup activation
// code. The code is the recovery path if the client loses its session token.
type CapturePaymentResponse struct {
	Success      bool      `json:"success"`
	PremiumUntil time.Time `json:"premiumUntil"`
	Code         string    `json:"code"`
}

// GenerateCodesRequest is the JSON body for POST /api/generate-manual-codes.
type GenerateCodesRequest struct {
	Count int `json:"count" binding:"required,min=1,max=100"`
}

// ErrorResponse is a standard error format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Used    *int   `json:"used,omitempty"`  // Populated for quota_exhausted
	Limit   *int   `json:"limit,omitempty"` // Populated for quota_exhausted
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
	Codes    int    `json:"codes"`
	Payments int    `json:"payments"`
}
