// Package handlers contains HTTP handler functions for the API.
//
// Go Pattern: Handlers are methods on a Handler struct that holds shared
// dependencies (stores, services, config). Dependencies are injected
// explicitly, no globals, so tests can build a Handler over fresh stores.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdfden/pdf-tools-api/internal/config"
	"github.com/pdfden/pdf-tools-api/internal/entitlement"
	"github.com/pdfden/pdf-tools-api/internal/models"
	"github.com/pdfden/pdf-tools-api/internal/payment"
	"github.com/pdfden/pdf-tools-api/internal/services/files"
	"github.com/pdfden/pdf-tools-api/internal/services/pdfops"
	"github.com/pdfden/pdf-tools-api/internal/services/repair"
	"github.com/pdfden/pdf-tools-api/internal/store"
)

// userIDHeader carries the client-supplied opaque identity token.
// The server trusts it as-is; there is no cryptographic binding.
const userIDHeader = "X-User-ID"

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	Cfg      *config.Config
	Stores   *store.Stores
	Payments *payment.Bridge
	PDF      *pdfops.Service
	Repair   *repair.Engine
	Files    *files.Store

	Version   string
	StartedAt time.Time
}

// NewHandler creates a handler with all dependencies.
func NewHandler(cfg *config.Config, st *store.Stores, pay *payment.Bridge,
	pdf *pdfops.Service, rep *repair.Engine, fs *files.Store, version string) *Handler {
	return &Handler{
		Cfg:       cfg,
		Stores:    st,
		Payments:  pay,
		PDF:       pdf,
		Repair:    rep,
		Files:     fs,
		Version:   version,
		StartedAt: time.Now(),
	}
}

// resolveSession maps the request's identity header to a session, creating
// one when needed, and echoes the resolved ID back so first-time clients can
// persist it.
func (h *Handler) resolveSession(c *gin.Context) (string, models.Session) {
	userID, session := h.Stores.Sessions.Resolve(c.GetHeader(userIDHeader))
	c.Header(userIDHeader, userID)
	return userID, session
}

// fail writes a standard error response.
func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{Error: code, Message: message, Code: status})
}

// HealthCheck returns liveness plus basic table counters.
// GET /api/health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:   "ok",
		Version:  h.Version,
		Uptime:   time.Since(h.StartedAt).Round(time.Second).String(),
		Sessions: h.Stores.Sessions.Count(),
		Codes:    h.Stores.Codes.Count(),
		Payments: h.Stores.Payments.Count(),
	})
}

// UserStatus returns the session's premium flag, usage map, and per-tool
// remaining quota.
// GET /api/user-status
func (h *Handler) UserStatus(c *gin.Context) {
	userID, session := h.resolveSession(c)
	now := time.Now()

	usage := make(map[models.Tool]int, len(models.AllTools))
	limits := make(map[models.Tool]any, len(models.AllTools))
	remaining := make(map[models.Tool]any, len(models.AllTools))
	for _, tool := range models.AllTools {
		usage[tool] = session.UsageByTool[tool]
		limits[tool] = entitlement.LimitFor(tool)
		remaining[tool] = entitlement.Remaining(session, tool, now)
	}

	resp := models.UserStatusResponse{
		UserID:    userID,
		IsPremium: session.IsPremium(now),
		Usage:     usage,
		Limits:    limits,
		Remaining: remaining,
	}
	if session.IsPremium(now) {
		resp.PremiumUntil = session.PremiumUntil
	}
	c.JSON(http.StatusOK, resp)
}
