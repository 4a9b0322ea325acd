package main

import (
	"context"                          // Context for Redis operations and the bingo loop
	"log"                              // log package is needed for logging
	"math/rand"                        // Seeds the bingo shuffle
	"time"                             // Shuffle seed source
	"inx_platform/internal/api"        // Custom package for API handlers
	"inx_platform/internal/bingo"      // Bingo room coordinator
	"inx_platform/internal/config"     // Custom package for configuration
	"inx_platform/internal/middleware" // Custom package for middleware

	// For loading .env files
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup the bingo coordinator: one event loop for all rooms
	coordinator := bingo.NewCoordinator(rand.New(rand.NewSource(time.Now().UnixNano())))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coordinator.Run(ctx)

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	authGroup := r.Group("/api/auth")
	authGroup.POST("/signup", api.SignupHandler(db, cfg.JWTSecret)) // Signup endpoint
	authGroup.POST("/login", api.LoginHandler(db, cfg.JWTSecret))   // Login endpoint

	// Account routes (protected by JWT)
	accountGroup := authGroup.Group("")
	accountGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	accountGroup.GET("/profile", api.ProfileHandler(db, redisClient))                 // Profile endpoint
	accountGroup.POST("/update-username", api.UpdateUsernameHandler(db, redisClient)) // Username update endpoint
	accountGroup.POST("/update-email", api.UpdateEmailHandler(db, redisClient))       // Email update endpoint
	accountGroup.POST("/update-password", api.UpdatePasswordHandler(db))              // Password update endpoint

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/api/wallet")
	walletGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	walletGroup.GET("", api.GetWalletHandler(db, redisClient))     // Get-or-create wallet endpoint
	walletGroup.POST("", api.UpdateWalletHandler(db, redisClient)) // Partial wallet update endpoint

	// Reward routes (protected by JWT)
	rewardsGroup := r.Group("/api/rewards")
	rewardsGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	rewardsGroup.GET("", api.GetRewardsHandler(db))                 // Reward summary endpoint
	rewardsGroup.POST("/add", api.AddRewardHandler(db, redisClient)) // Add reward endpoint

	// Payment routes
	paymentsGroup := r.Group("/api/payments")
	paymentsGroup.GET("/pay", api.PayHandler(db, cfg))                          // Checkout page endpoint
	paymentsGroup.POST("/confirm", api.ConfirmHandler(db, redisClient, cfg))    // Buyer confirmation endpoint
	paymentsGroup.POST("/webhook", api.WebhookHandler(db, redisClient, cfg))    // Provider webhook endpoint
	paymentsGroup.GET("/balance/:userId", api.BalanceHandler(db))               // Balance sync endpoint
	paymentsGroup.GET("/status/:id", middleware.JWTAuthMiddleware(cfg.JWTSecret), api.PaymentStatusHandler(db)) // Status poll endpoint

	// Admin payment routes (protected by shared-secret token)
	adminGroup := paymentsGroup.Group("/admin")
	adminGroup.Use(middleware.AdminTokenMiddleware(cfg.AdminToken))
	adminGroup.GET("/payments", api.AdminListPaymentsHandler(db, redisClient)) // Payment listing endpoint
	adminGroup.POST("/confirm", api.AdminConfirmHandler(db, redisClient))      // Admin confirmation endpoint

	// Bingo websocket endpoint
	r.GET("/ws", gin.WrapH(bingo.Handler(coordinator)))

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
