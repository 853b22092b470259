// Package router sets up all HTTP routes for the API.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/pdfden/pdf-tools-api/internal/handlers"
	"github.com/pdfden/pdf-tools-api/internal/middleware"
)

// Setup creates and configures the Gin router with all routes.
func Setup(h *handlers.Handler, adminToken string, allowedOrigins []string) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORS(allowedOrigins))

	// --- Public routes ---
	r.GET("/api/health", h.HealthCheck)
	r.GET("/api/user-status", h.UserStatus)
	r.POST("/api/process-pdf", h.ProcessPDF)
	r.GET("/api/download/:filename", h.Download)

	// Payment + premium codes
	r.POST("/api/create-paypal-order", h.CreateOrder)
	r.POST("/api/capture-paypal-payment", h.CapturePayment)
	r.POST("/api/activate-premium-code", h.ActivateCode)
	r.POST("/api/validate-premium-code", h.ValidateCode)

	// --- Admin routes (shared-secret header) ---
	admin := r.Group("/api")
	admin.Use(middleware.AdminAuth(adminToken))
	{
		admin.GET("/premium-stats", h.PremiumStats)
		admin.GET("/system-info", h.SystemInfo)
		admin.POST("/generate-manual-codes", h.GenerateCodes)
	}

	return r
}
