package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Booking   BookingConfig
	SMS       SMSConfig
	Kafka     KafkaConfig
	Payment   PaymentConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// StorageConfig selects the booking store implementation
type StorageConfig struct {
	Driver   string // "postgres" or "memory"
	SeedDemo bool   // memory driver only: seed one vehicle and trip
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// RedisConfig holds the Redis connection used for drafts and seat holds.
// An empty Addr keeps both in process memory.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// BookingConfig holds seat layout, draft and booking policy
type BookingConfig struct {
	MaxRows               int    // 0 lifts the row cap
	RemainderPolicy       string // "discard" or "partial_row"
	DraftTTL              time.Duration
	SeatHoldEnabled       bool
	SeatHoldTTL           time.Duration
	PendingPaymentTimeout time.Duration // 0 disables the sweep
	SweepSchedule         string
	ReferenceMaxAttempts  int
	Currency              string
	InsuranceRate         float64
	RefundGuaranteeRate   float64
	BoardingPassRate      float64
}

// SMSConfig holds SMS gateway configuration
type SMSConfig struct {
	Mode               string // "dev" logs messages, "production" sends them
	APIURL             string
	Username           string
	Password           string
	Mask               string
	DefaultCountryCode string
}

// KafkaConfig holds booking event publishing configuration
type KafkaConfig struct {
	Brokers []string // empty runs the producer in mock mode
	Topic   string
}

// PaymentConfig holds Stripe configuration
type PaymentConfig struct {
	StripeSecretKey string
}

// RateLimitConfig holds rate limiting configuration for booking endpoints
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Driver:   getEnv("STORAGE_DRIVER", "postgres"),
			SeedDemo: getEnvAsBool("STORAGE_SEED_DEMO", false),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", ""),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "booking"),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		Booking: BookingConfig{
			MaxRows:               getEnvAsInt("SEAT_LAYOUT_MAX_ROWS", 10),
			RemainderPolicy:       getEnv("SEAT_LAYOUT_REMAINDER", "discard"),
			DraftTTL:              getEnvAsDuration("DRAFT_TTL", 30*time.Minute),
			SeatHoldEnabled:       getEnvAsBool("SEAT_HOLD_ENABLED", false),
			SeatHoldTTL:           getEnvAsDuration("SEAT_HOLD_TTL", 5*time.Minute),
			PendingPaymentTimeout: getEnvAsDuration("PENDING_PAYMENT_TIMEOUT", 30*time.Minute),
			SweepSchedule:         getEnv("PENDING_PAYMENT_SWEEP_SCHEDULE", "0 * * * * *"),
			ReferenceMaxAttempts:  getEnvAsInt("REFERENCE_MAX_ATTEMPTS", 10),
			Currency:              getEnv("BOOKING_CURRENCY", "MYR"),
			InsuranceRate:         getEnvAsFloat("ADDON_INSURANCE_RATE", 2.00),
			RefundGuaranteeRate:   getEnvAsFloat("ADDON_REFUND_GUARANTEE_RATE", 3.00),
			BoardingPassRate:      getEnvAsFloat("ADDON_BOARDING_PASS_RATE", 1.00),
		},
		SMS: SMSConfig{
			Mode:               getEnv("SMS_MODE", "dev"),
			APIURL:             getEnv("SMS_API_URL", ""),
			Username:           getEnv("SMS_USERNAME", ""),
			Password:           getEnv("SMS_PASSWORD", ""),
			Mask:               getEnv("SMS_MASK", "SmartTransit"),
			DefaultCountryCode: getEnv("SMS_DEFAULT_COUNTRY_CODE", "60"),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_BOOKING_TOPIC", "booking-events"),
		},
		Payment: PaymentConfig{
			StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 5),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER: %s (must be 'postgres' or 'memory')", c.Storage.Driver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Booking.MaxRows < 0 {
		return fmt.Errorf("SEAT_LAYOUT_MAX_ROWS cannot be negative")
	}

	if c.Booking.RemainderPolicy != "discard" && c.Booking.RemainderPolicy != "partial_row" {
		return fmt.Errorf("invalid SEAT_LAYOUT_REMAINDER: %s (must be 'discard' or 'partial_row')", c.Booking.RemainderPolicy)
	}

	if c.Booking.DraftTTL <= 0 {
		return fmt.Errorf("DRAFT_TTL must be positive")
	}

	if c.Booking.ReferenceMaxAttempts < 1 {
		return fmt.Errorf("REFERENCE_MAX_ATTEMPTS must be at least 1")
	}

	if c.Booking.InsuranceRate < 0 || c.Booking.RefundGuaranteeRate < 0 || c.Booking.BoardingPassRate < 0 {
		return fmt.Errorf("add-on rates cannot be negative")
	}

	// Validate SMS configuration only in production mode
	if c.SMS.Mode == "production" {
		if c.SMS.APIURL == "" {
			return fmt.Errorf("SMS_API_URL is required in production mode")
		}
		if c.SMS.Username == "" || c.SMS.Password == "" {
			return fmt.Errorf("SMS_USERNAME and SMS_PASSWORD are required in production mode")
		}
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid float value for %s, using default: %.2f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings ("90s", "30m") or plain seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
