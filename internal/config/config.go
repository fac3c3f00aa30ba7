package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	Stripe    StripeConfig
	Frappe    FrappeConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
	Worker    WorkerConfig

	PolicyFile string
}

type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	ToleranceSeconds int64
}

type FrappeConfig struct {
	BaseURL        string
	APIKey         string
	APISecret      string
	TimeoutSeconds int64
}

type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Rate          float64
	Burst         int
}

type WorkerConfig struct {
	IntervalSeconds          int64
	BatchSize                int
	MaxAttempts              int
	ProcessingTimeoutMinutes int64
	InlineRetryDelaySeconds  int64
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "fulfillment"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "postgres"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 25)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		Stripe: StripeConfig{
			SecretKey:        strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			WebhookSecret:    strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			ToleranceSeconds: getenvInt64("STRIPE_SIGNATURE_TOLERANCE", 300),
		},
		Frappe: FrappeConfig{
			BaseURL:        strings.TrimRight(getenv("FRAPPE_BASE_URL", "http://localhost:8000"), "/"),
			APIKey:         strings.TrimSpace(getenv("FRAPPE_API_KEY", "")),
			APISecret:      strings.TrimSpace(getenv("FRAPPE_API_SECRET", "")),
			TimeoutSeconds: getenvInt64("FRAPPE_TIMEOUT_SECONDS", 10),
		},
		Email: EmailConfig{
			Enabled:  getenvBool("EMAIL_ENABLED", false),
			Host:     getenv("SMTP_HOST", ""),
			Port:     getenv("SMTP_PORT", "587"),
			Username: getenv("SMTP_USERNAME", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     getenv("SMTP_FROM", "no-reply@localhost"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:     strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "")),
			RedisPassword: getenv("RATE_LIMIT_REDIS_PASSWORD", ""),
			RedisDB:       int(getenvInt64("RATE_LIMIT_REDIS_DB", 0)),
			Rate:          getenvFloat64("RATE_LIMIT_RATE", 1),
			Burst:         int(getenvInt64("RATE_LIMIT_BURST", 5)),
		},
		Worker: WorkerConfig{
			IntervalSeconds:          getenvInt64("WORKER_INTERVAL_SECONDS", 30),
			BatchSize:                int(getenvInt64("WORKER_BATCH_SIZE", 50)),
			MaxAttempts:              int(getenvInt64("WORKER_MAX_ATTEMPTS", 5)),
			ProcessingTimeoutMinutes: getenvInt64("WORKER_PROCESSING_TIMEOUT_MINUTES", 5),
			InlineRetryDelaySeconds:  getenvInt64("LMS_INLINE_RETRY_DELAY_SECONDS", 2),
		},
		PolicyFile: strings.TrimSpace(getenv("POLICY_FILE", "")),
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat64(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
