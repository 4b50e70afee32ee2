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

	"gudam-backend/config"
	"gudam-backend/database"
	"gudam-backend/internal/api"
	"gudam-backend/internal/middleware"
	"gudam-backend/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Log slow requests
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if duration := time.Since(start); duration > 5*time.Second {
			log.Printf("SLOW REQUEST: %s %s took %v", c.Request.Method, c.Request.URL.Path, duration)
		}
	})

	// CORS
	router.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowedOrigin := ""
		if cfg.AllowAllOrigins {
			allowedOrigin = "*"
		} else {
			for _, allowed := range cfg.AllowedOrigins {
				if origin == allowed {
					allowedOrigin = origin
					break
				}
			}
		}
		if allowedOrigin != "" {
			c.Header("Access-Control-Allow-Origin", allowedOrigin)
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept, Origin")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	securityConfig := middleware.DefaultSecurityConfig()
	securityConfig.RateLimitRequests = cfg.RateLimitRequests
	securityConfig.RateLimitWindow = time.Duration(cfg.RateLimitWindow) * time.Second
	router.Use(middleware.SecurityMiddleware(securityConfig))

	// Shared services
	authService := services.NewAuthService(cfg.JWTSecret, cfg.JWTExpiration)
	authMiddleware := middleware.NewAuthMiddleware(authService)
	hub := services.NewNotificationHub()
	otpStore := services.NewOTPStore(services.DefaultOTPTTL)

	// Inject request-scoped dependencies
	router.Use(func(c *gin.Context) {
		c.Set("db", db)
		c.Set("config", cfg)
		c.Set("hub", hub)
		c.Set("authService", authService)
		c.Set("otpStore", otpStore)
		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Gudam API is running",
			"version": "1.0.0",
		})
	})

	apiGroup := router.Group("/api")

	// Auth and OTP, rate limited harder than the rest
	auth := apiGroup.Group("/auth")
	auth.Use(middleware.AuthRateLimitMiddleware())
	{
		auth.POST("/register", api.Register)
		auth.POST("/login", api.Login)
		auth.POST("/change-password", authMiddleware.AuthRequired(), api.ChangePassword)
	}

	otp := apiGroup.Group("/otp")
	otp.Use(middleware.AuthRateLimitMiddleware())
	{
		otp.POST("/send", api.SendOTP)
		otp.POST("/verify", api.VerifyOTP)
	}

	// Live notification stream; the websocket handshake carries no headers from
	// browsers, so the route authenticates by token query param upstream of us.
	apiGroup.GET("/ws/notifications/:userId", api.NotificationStream)

	protected := apiGroup.Group("")
	protected.Use(authMiddleware.AuthRequired())
	{
		// Users
		protected.GET("/users/me", api.GetMe)
		protected.GET("/users", api.ListUsers)
		protected.GET("/users/:id", api.GetUser)
		protected.PUT("/users/:id", api.UpdateUser)

		// Reputation
		protected.GET("/users/:id/reputation", api.GetReputation)
		protected.GET("/users/:id/ratings", api.GetUserRatings)
		protected.POST("/ratings", api.SubmitRating)

		// Products
		protected.POST("/products", api.CreateProduct)
		protected.GET("/products", api.ListProducts)
		protected.GET("/products/:id", api.GetProduct)
		protected.PUT("/products/:id", api.UpdateProduct)
		protected.DELETE("/products/:id", api.DeleteProduct)
		protected.POST("/products/:id/restore", authMiddleware.RequireRoles("admin"), api.RestoreProduct)

		// Orders
		protected.POST("/orders", api.CreateOrder)
		protected.GET("/orders", api.ListOrders)
		protected.GET("/orders/:id", api.GetOrder)
		protected.PUT("/orders/:id/status", api.UpdateOrderStatus)
		protected.DELETE("/orders/:id", api.DeleteOrder)
		protected.POST("/orders/:id/restore", authMiddleware.RequireRoles("admin"), api.RestoreOrder)

		// Agent matching
		protected.POST("/match-agent", api.MatchAgent)
		protected.POST("/match-agent/notify", api.AutoMatchNotify)
		protected.GET("/agents/nearby", api.NearbyAgents)
		protected.GET("/agents/top-ranked", api.TopRankedAgents)
		protected.GET("/agents/:id/capacity", api.AgentCapacity)

		// Verification workflow
		protected.POST("/verifications/listings/:productId/verify",
			authMiddleware.RequireRoles("agent", "admin"), api.StartVerification)
		protected.PUT("/verifications/:id/status",
			authMiddleware.RequireRoles("agent", "admin"), api.UpdateVerificationStatus)
		protected.GET("/verifications", api.ListVerifications)
		protected.GET("/verifications/:id", api.GetVerification)

		// Notifications
		protected.GET("/notifications", api.GetNotifications)
		protected.GET("/notifications/unread-count", api.GetUnreadCount)
		protected.PUT("/notifications/:id/read", api.MarkNotificationRead)
		protected.PUT("/notifications/read-all", api.MarkAllNotificationsRead)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Gudam API server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server shutdown complete")
}
