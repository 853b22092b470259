// admin.go implements the admin-only endpoints, gated by AdminAuth middleware.
package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdfden/pdf-tools-api/internal/models"
	"github.com/pdfden/pdf-tools-api/internal/store"
)

// PremiumStats reports aggregate premium/code/payment counters.
// GET /api/premium-stats
func (h *Handler) PremiumStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sessions":        h.Stores.Sessions.Count(),
		"premiumSessions": h.Stores.Sessions.PremiumCount(),
		"codesGenerated":  h.Stores.Codes.Count(),
		"codesRedeemed":   h.Stores.Codes.UsedCount(),
		"pendingPayments": h.Stores.Payments.Count(),
	})
}

// SystemInfo reports process-level runtime details.
// GET /api/system-info
func (h *Handler) SystemInfo(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	c.JSON(http.StatusOK, gin.H{
		"version":    h.Version,
		"goVersion":  runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
		"allocMB":    m.Alloc / (1 << 20),
		"uptime":     time.Since(h.StartedAt).Round(time.Second).String(),
		"startedAt":  h.StartedAt,
	})
}

// GenerateCodes mints premium codes manually.
// POST /api/generate-manual-codes
func (h *Handler) GenerateCodes(c *gin.Context) {
	var req models.GenerateCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid_input", "Provide a 'count' between 1 and 100")
		return
	}

	codes := make([]string, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		codes = append(codes, h.Stores.Codes.Generate(store.AdminOrigin).Code)
	}
	c.JSON(http.StatusOK, gin.H{"codes": codes, "count": len(codes)})
}
