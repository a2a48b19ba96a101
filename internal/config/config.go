package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Gateway   GatewayConfig
	Secrets   SecretsConfig
	RateLimit RateLimitConfig
	Logger    LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Host        string
	MetricsPort int
}

// DatabaseConfig holds PostgreSQL configuration. When LedgerBackend is
// "memory" the database settings are ignored.
type DatabaseConfig struct {
	LedgerBackend string // postgres or memory
	Host          string
	Port          int
	User          string
	Password      string
	Database      string
	SSLMode       string
	MaxConns      int32
	MinConns      int32
}

// GatewayConfig holds PayChangu gateway configuration
type GatewayConfig struct {
	BaseURL       string // Base URL for the PayChangu API
	PublicKey     string // Public key sent in the initiation payload
	SecretKey     string // Bearer token for API calls
	WebhookSecret string // HMAC secret for webhook signatures
	CallbackURL   string // Where the gateway redirects the browser after checkout
	ReturnURL     string // Where the gateway sends cancelled/declined customers
	Timeout       int    // Request timeout in seconds
}

// SecretsConfig selects where gateway credentials are resolved from.
// When Backend is "env" the keys come straight from GatewayConfig; the other
// backends resolve SecretKeyPath and WebhookSecretPath through the
// corresponding secret manager at startup.
type SecretsConfig struct {
	Backend           string // env, local, aws or vault
	SecretKeyPath     string
	WebhookSecretPath string
	LocalPath         string

	AWSRegion   string
	AWSEndpoint string

	VaultAddress string
	VaultToken   string
	VaultMount   string
}

// RateLimitConfig holds per-IP rate limiting settings for the public surfaces
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort: getEnvAsInt("METRICS_PORT", 9090),
		},
		Database: DatabaseConfig{
			LedgerBackend: getEnv("LEDGER_BACKEND", "postgres"),
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnvAsInt("DB_PORT", 5432),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", ""),
			Database:      getEnv("DB_NAME", "paychangu_service"),
			SSLMode:       getEnv("DB_SSL_MODE", "disable"),
			MaxConns:      int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:      int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Gateway: GatewayConfig{
			BaseURL:       getEnv("PAYCHANGU_BASE_URL", "https://api.paychangu.com"),
			PublicKey:     getEnv("PAYCHANGU_PUBLIC_KEY", ""),
			SecretKey:     getEnv("PAYCHANGU_SECRET_KEY", ""),
			WebhookSecret: getEnv("PAYCHANGU_WEBHOOK_SECRET", ""),
			CallbackURL:   getEnv("PAYCHANGU_CALLBACK_URL", ""),
			ReturnURL:     getEnv("PAYCHANGU_RETURN_URL", ""),
			Timeout:       getEnvAsInt("PAYCHANGU_TIMEOUT", 30),
		},
		Secrets: SecretsConfig{
			Backend:           getEnv("SECRETS_BACKEND", "env"),
			SecretKeyPath:     getEnv("SECRETS_SECRET_KEY_PATH", "paychangu/secret-key"),
			WebhookSecretPath: getEnv("SECRETS_WEBHOOK_SECRET_PATH", "paychangu/webhook-secret"),
			LocalPath:         getEnv("SECRETS_LOCAL_PATH", ""),
			AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
			AWSEndpoint:       getEnv("AWS_SM_ENDPOINT", ""),
			VaultAddress:      getEnv("VAULT_ADDR", ""),
			VaultToken:        getEnv("VAULT_TOKEN", ""),
			VaultMount:        getEnv("VAULT_MOUNT", "secret"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 5),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	if cfg.Database.LedgerBackend == "postgres" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required when LEDGER_BACKEND is postgres")
	}
	if cfg.Gateway.CallbackURL == "" {
		return nil, fmt.Errorf("PAYCHANGU_CALLBACK_URL is required")
	}
	if cfg.Secrets.Backend == "env" {
		if cfg.Gateway.SecretKey == "" {
			return nil, fmt.Errorf("PAYCHANGU_SECRET_KEY is required")
		}
		if cfg.Gateway.WebhookSecret == "" {
			return nil, fmt.Errorf("PAYCHANGU_WEBHOOK_SECRET is required")
		}
	}

	return cfg, nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
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
		return defaultValue
	}
	return value
}
