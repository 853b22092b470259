// Package main is the entry point for the PDF Tools API server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/pdfden/pdf-tools-api/internal/config"
	"github.com/pdfden/pdf-tools-api/internal/handlers"
	"github.com/pdfden/pdf-tools-api/internal/payment"
	"github.com/pdfden/pdf-tools-api/internal/router"
	"github.com/pdfden/pdf-tools-api/internal/services/files"
	"github.com/pdfden/pdf-tools-api/internal/services/pdfops"
	"github.com/pdfden/pdf-tools-api/internal/services/repair"
	"github.com/pdfden/pdf-tools-api/internal/store"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 PDF Tools API %s starting...", Version)

	// .env is a development convenience; absence is fine.
	if err := godotenv.Load(); err == nil {
		log.Println("📄 Loaded .env file")
	}

	// Step 1: Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	log.Printf("📋 Config loaded: port=%s, gin_mode=%s, results_dir=%s", cfg.Port, cfg.GinMode, cfg.ResultsDir)
	gin.SetMode(cfg.GinMode)

	// Step 2: Create the in-memory stores and background reclamation
	stores := store.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stores.StartReclamation(ctx, cfg.ReclaimInterval)
	log.Printf("✅ Stores initialized (reclamation every %s)", cfg.ReclaimInterval)

	// Step 3: Create services
	resultStore, err := files.NewStore(cfg.ResultsDir, cfg.ResultTTL)
	if err != nil {
		log.Fatalf("❌ Failed to init result store: %v", err)
	}
	resultStore.StartJanitor(ctx)
	log.Printf("✅ Result store ready (artifacts expire after %s)", cfg.ResultTTL)

	pdfService := pdfops.New("")
	repairEngine := repair.New("")
	payBridge := payment.New(stores)

	if cfg.AdminToken != "" {
		log.Println("✅ Admin token configured (admin endpoints protected)")
	} else {
		log.Println("⚠️  No admin token set (admin endpoints disabled; set ADMIN_TOKEN to enable)")
	}

	// Step 4: Setup HTTP router
	h := handlers.NewHandler(cfg, stores, payBridge, pdfService, repairEngine, resultStore, Version)
	r := router.Setup(h, cfg.AdminToken, cfg.AllowedOrigins)

	// Step 5: Start the HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Printf("📖 Health check: http://localhost:%s/api/health", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Step 6: Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	log.Println("👋 Server stopped. Goodbye!")
}
