// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSyncRepairInterval() time.Duration
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketStockInvoices() string
	IsMinIOEnabled() bool
}

// SMTPConfig provides settings for outbound alert e-mail.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetStockAlertRecipients() []string
	IsSMTPEnabled() bool
}

// WebhookConfig provides settings for inbound lead intake.
type WebhookConfig interface {
	GetWebhookDedupeWindow() time.Duration
	GetWebhookRatePerMinute() int
}

// PhoneConfig provides the default region used for phone normalization.
type PhoneConfig interface {
	GetPhoneDefaultRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	DatabaseURL             string
	JWTAccessSecret         string
	CORSAllowAll            bool
	CORSOrigins             []string
	CORSAllowCreds          bool
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	AsynqConcurrency        int
	MinIOEndpoint           string
	MinIOAccessKey          string
	MinIOSecretKey          string
	MinIOUseSSL             bool
	MinIOMaxFileSize        int64
	MinioBucketStockInvoice string
	SMTPHost                string
	SMTPPort                int
	SMTPUsername            string
	SMTPPassword            string
	EmailFromName           string
	EmailFromAddress        string
	StockAlertRecipients    []string
	WebhookDedupeWindow     time.Duration
	WebhookRatePerMinute    int
	PhoneDefaultRegion      string
	SyncRepairInterval      time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) GetSyncRepairInterval() time.Duration {
	return c.SyncRepairInterval
}

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string   { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string  { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string  { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool       { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64 { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketStockInvoices() string {
	return c.MinioBucketStockInvoice
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string               { return c.SMTPHost }
func (c *Config) GetSMTPPort() int                  { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string           { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string           { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string          { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string       { return c.EmailFromAddress }
func (c *Config) GetStockAlertRecipients() []string { return c.StockAlertRecipients }
func (c *Config) IsSMTPEnabled() bool {
	return c.SMTPHost != "" && len(c.StockAlertRecipients) > 0
}

// WebhookConfig implementation
func (c *Config) GetWebhookDedupeWindow() time.Duration { return c.WebhookDedupeWindow }
func (c *Config) GetWebhookRatePerMinute() int          { return c.WebhookRatePerMinute }

// PhoneConfig implementation
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		JWTAccessSecret:         getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:            corsAllowAll,
		CORSOrigins:             corsOrigins,
		CORSAllowCreds:          strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                getEnv("REDIS_URL", ""),
		RedisTLSInsecure:        strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:        mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		MinIOEndpoint:           getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:          getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:          getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:             strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:        mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "20971520")),
		MinioBucketStockInvoice: getEnv("MINIO_BUCKET_STOCK_INVOICES", "stock-invoices"),
		SMTPHost:                getEnv("SMTP_HOST", ""),
		SMTPPort:                mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:            getEnv("SMTP_USERNAME", ""),
		SMTPPassword:            getEnv("SMTP_PASSWORD", ""),
		EmailFromName:           getEnv("EMAIL_FROM_NAME", "Call Center"),
		EmailFromAddress:        getEnv("EMAIL_FROM_ADDRESS", ""),
		StockAlertRecipients:    splitCSV(getEnv("STOCK_ALERT_RECIPIENTS", "")),
		WebhookDedupeWindow:     mustDuration(getEnv("WEBHOOK_DEDUPE_WINDOW", "2m")),
		WebhookRatePerMinute:    mustInt(getEnv("WEBHOOK_RATE_PER_MINUTE", "60")),
		PhoneDefaultRegion:      strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "MK")),
		SyncRepairInterval:      mustDuration(getEnv("LEAD_SYNC_REPAIR_INTERVAL", "30s")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.SMTPHost != "" && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when SMTP_HOST is set")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
