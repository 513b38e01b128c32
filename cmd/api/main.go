package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/scolarfaso/backend/internal/config"
	"github.com/scolarfaso/backend/internal/handlers"
	"github.com/scolarfaso/backend/internal/middleware"
	"github.com/scolarfaso/backend/internal/models"
	"github.com/scolarfaso/backend/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.New()

	// Initialize database
	db, err := models.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Run migrations
	if err := models.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis
	redisClient := models.InitRedis(cfg)
	defer redisClient.Close()

	// Initialize services
	smsService := services.NewSMSService(cfg)
	otpStore := services.NewOTPStore(db)
	otpService := services.NewOTPService(otpStore, smsService, cfg)
	userService := services.NewUserService(db, cfg)
	authService := services.NewAuthService(db, redisClient, cfg, otpService, userService)
	auditService := services.NewAuditService(db)

	// Periodic retention sweep: expired OTP rows and refresh tokens can be
	// deleted at any time, they can never pass the validity checks again.
	go func() {
		for {
			deleted, err := otpService.CleanupExpired()
			if err != nil {
				log.Printf("OTP cleanup error: %v", err)
			} else if deleted > 0 {
				log.Printf("OTP cleanup: removed %d expired codes", deleted)
			}
			if err := authService.CleanupExpiredTokens(); err != nil {
				log.Printf("Refresh token cleanup error: %v", err)
			}
			time.Sleep(5 * time.Minute)
		}
	}()

	// Create admin user if not exists
	if err := userService.CreateDefaultAdmin(); err != nil {
		log.Printf("Failed to create default admin: %v", err)
	}

	if cfg.OTPDebugResponse {
		log.Println("WARNING: OTP debug responses enabled, plaintext codes are echoed to callers")
	}

	// Setup Gin router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.RateLimiter(redisClient, cfg))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, otpService, userService, auditService)
	userHandler := handlers.NewUserHandler(userService)
	adminHandler := handlers.NewAdminHandler(auditService, userService)

	// Health check outside API group (no /api/v1 prefix)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Setup routes
	api := router.Group("/api/v1")
	{
		// Health check also available under /api/v1/health for compatibility
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})

		// Catch-all OPTIONS handler for CORS preflight requests
		api.OPTIONS("/*path", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			// OTP-issuing endpoints carry an extra per-IP daily cap: SMS
			// costs money and the per-phone limit alone does not stop one
			// client from cycling through numbers.
			otpRequests := auth.Group("")
			otpRequests.Use(middleware.OTPRateLimit(redisClient, cfg))
			{
				otpRequests.POST("/otp/request", authHandler.RequestOTP)
				otpRequests.POST("/login", authHandler.Login)
				otpRequests.POST("/password/forgot", authHandler.ForgotPassword)
			}

			auth.POST("/otp/verify", authHandler.VerifyOTP)
			auth.POST("/login/verify", authHandler.LoginVerify)
			auth.POST("/password/reset", authHandler.ResetPassword)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", middleware.Auth(authService), authHandler.Logout)
		}

		// User routes
		user := api.Group("/user")
		user.Use(middleware.Auth(authService))
		{
			user.GET("/profile", userHandler.GetProfile)
		}

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(middleware.Auth(authService))
		admin.Use(middleware.AdminOnly())
		{
			admin.GET("/audit/logs", adminHandler.GetAuditLogs)
			admin.PUT("/users/:id/active", adminHandler.UpdateUserActive)
		}
	}

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
