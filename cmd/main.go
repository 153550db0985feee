package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"live-platform/internal/auth"
	"live-platform/internal/config"
	"live-platform/internal/database"
	"live-platform/internal/handlers"
	"live-platform/internal/jobs"
	"live-platform/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	db, err := database.Connect(cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize services
	ledgerService := services.NewLedgerService(db)
	referralService := services.NewReferralService(db, ledgerService,
		cfg.Referral.ReferrerRewardGems, cfg.Referral.ReferredRewardGems)
	vestingService := services.NewVestingService(db, ledgerService)
	suspensionService := services.NewSuspensionService(db,
		cfg.Moderation.ReportWindowDays,
		cfg.Moderation.ReportsForSuspension,
		cfg.Moderation.ReportCooldownHours)

	// Initialize handlers
	ledgerHandler := handlers.NewLedgerHandler(ledgerService)
	referralHandler := handlers.NewReferralHandler(referralService, vestingService)
	reportHandler := handlers.NewReportHandler(suspensionService)
	paymentHandler := handlers.NewPaymentHandler(vestingService)
	adminHandler := handlers.NewAdminHandler(db, referralService)

	// Start suspension expiry sweep (runs hourly)
	expiryJob := jobs.NewSuspensionExpiryJob(suspensionService)
	expiryJob.Start(time.Hour)
	log.Println("Suspension expiry job started")

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Public routes: referral click capture and payment provider webhook
	router.POST("/referral/click", referralHandler.RecordClick)
	router.POST("/payments/webhook", paymentHandler.PurchaseWebhook)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Gem ledger endpoints
		api.GET("/gems/balance", ledgerHandler.GetBalance)
		api.GET("/gems/transactions", ledgerHandler.GetTransactions)

		// Referral endpoints
		api.GET("/referral/code", referralHandler.GetReferralCode)
		api.POST("/referral/apply", referralHandler.ApplyReferralCode)
		api.GET("/referral/referrals", referralHandler.GetReferrals)

		// Abuse report endpoints
		api.POST("/reports", reportHandler.SubmitReport)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(adminHandler.AdminMiddleware())
	{
		admin.POST("/gems/credit", ledgerHandler.CreditGems)
		admin.GET("/referrals/unvested", adminHandler.GetUnvestedReferrals)

		// Lifecycle events take arbitrary user IDs and mint or release gems,
		// so they are never exposed to ordinary users.
		admin.POST("/referrals/activity", referralHandler.MarkActive)
		admin.POST("/referrals/reward", referralHandler.GrantRewards)
		admin.POST("/referrals/vest", referralHandler.Vest)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
