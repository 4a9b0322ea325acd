package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion

	"github.com/joho/godotenv"   // For loading .env files
	"github.com/sirupsen/logrus" // Logging library
)

// Config holds the application configuration
type Config struct {
	AppPort       string // Application port
	DBUser        string // Database user
	DBPassword    string // Database password
	DBHost        string // Database host
	DBPort        string // Database port
	DBName        string // Database name
	JWTSecret     string // JWT secret key, required
	AdminToken    string // Shared secret for admin payment endpoints, required
	RedisAddr     string // Redis server address
	RedisPass     string // Redis password
	RedisDB       int    // Redis database number
	AutoCredit    bool   // Auto-credit payments without admin review
	PaymentQRURL  string // Hosted UPI QR image shown on the payment page
	WebhookSecret string // HMAC secret for the payment provider webhook
	IsProd        bool   // Is production environment
}

// LoadConfig loads configuration from environment variables.
// It refuses to start with an empty JWT or admin secret rather than
// falling back to an insecure default.
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	cfg := &Config{
		AppPort:       os.Getenv("APP_PORT"),               // Application port
		DBUser:        os.Getenv("DB_USER"),                // Database user
		DBPassword:    os.Getenv("DB_PASSWORD"),            // Database password
		DBHost:        os.Getenv("DB_HOST"),                // Database host
		DBPort:        os.Getenv("DB_PORT"),                // Database port
		DBName:        os.Getenv("DB_NAME"),                // Database name
		JWTSecret:     os.Getenv("JWT_SECRET"),             // JWT secret key
		AdminToken:    os.Getenv("ADMIN_TOKEN"),            // Admin shared secret
		RedisAddr:     os.Getenv("REDIS_ADDR"),             // Redis server address
		RedisPass:     os.Getenv("REDIS_PASS"),             // Redis password
		RedisDB:       redisDB,                             // Redis database number
		AutoCredit:    os.Getenv("AUTO_CREDIT") == "true",  // Auto-credit mode
		PaymentQRURL:  os.Getenv("PAYMENT_QR_URL"),         // Payment QR image URL
		WebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"), // Webhook HMAC secret
		IsProd:        os.Getenv("IS_PROD") == "true",      // Is production environment
	}
	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET must be set") // No insecure default
	}
	if cfg.AdminToken == "" {
		logrus.Fatal("ADMIN_TOKEN must be set") // No insecure default
	}
	return cfg
}
