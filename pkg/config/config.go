package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rentdesk/rentdesk/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Billing gateway configuration
	Billing BillingConfig

	// Outbound email configuration
	Mail MailConfig

	// Reconciler configuration
	Reconciler ReconcilerConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Per-request budget for the provisioning saga
	ProvisionTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Size of the in-process subscription plan cache
	PlanCacheSize int
}

// BillingConfig holds billing gateway configuration
type BillingConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// Environment tag passed through to subscription metadata
	Environment string
}

// MailConfig holds SMTP configuration. Leaving Host empty disables
// outbound email; messages are logged instead.
type MailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// ReconcilerConfig holds orphan-sweep scheduling
type ReconcilerConfig struct {
	Enabled  bool
	Schedule string
	Timeout  time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Billing:       loadBillingConfig(),
		Mail:          loadMailConfig(),
		Reconciler:    loadReconcilerConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:             getEnv("RENTDESK_HOST", "0.0.0.0"),
		Port:             getEnv("RENTDESK_PORT", "8080"),
		ReadTimeout:      getEnvDuration("RENTDESK_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:     getEnvDuration("RENTDESK_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:      getEnvDuration("RENTDESK_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:  getEnvDuration("RENTDESK_SHUTDOWN_TIMEOUT", 30*time.Second),
		ProvisionTimeout: getEnvDuration("RENTDESK_PROVISION_TIMEOUT", 25*time.Second),
		HealthPort:       getEnv("RENTDESK_HEALTH_PORT", "9090"),
	}
}

// loadDatabaseConfig loads PostgreSQL configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnv("RENTDESK_POSTGRES_URL", ""),
		MaxOpenConns:    getEnvInt("RENTDESK_POSTGRES_MAX_CONNS", 25),
		MaxIdleConns:    getEnvInt("RENTDESK_POSTGRES_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("RENTDESK_POSTGRES_CONN_LIFETIME", 5*time.Minute),
		PlanCacheSize:   getEnvInt("RENTDESK_PLAN_CACHE_SIZE", 128),
	}
}

// loadBillingConfig loads billing gateway configuration from environment
func loadBillingConfig() BillingConfig {
	return BillingConfig{
		BaseURL:     getEnv("RENTDESK_BILLING_URL", "https://api.stripe.com"),
		APIKey:      getEnv("RENTDESK_BILLING_API_KEY", ""),
		Timeout:     getEnvDuration("RENTDESK_BILLING_TIMEOUT", 20*time.Second),
		Environment: getEnv("RENTDESK_ENVIRONMENT", "production"),
	}
}

// loadMailConfig loads SMTP configuration from environment
func loadMailConfig() MailConfig {
	return MailConfig{
		Host:     getEnv("RENTDESK_SMTP_HOST", ""),
		Port:     getEnv("RENTDESK_SMTP_PORT", "587"),
		Username: getEnv("RENTDESK_SMTP_USERNAME", ""),
		Password: getEnv("RENTDESK_SMTP_PASSWORD", ""),
		From:     getEnv("RENTDESK_SMTP_FROM", "no-reply@rentdesk.io"),
	}
}

// loadReconcilerConfig loads orphan-sweep configuration from environment
func loadReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Enabled:  getEnvBool("RENTDESK_RECONCILER_ENABLED", true),
		Schedule: getEnv("RENTDESK_RECONCILER_SCHEDULE", "@hourly"),
		Timeout:  getEnvDuration("RENTDESK_RECONCILER_TIMEOUT", 5*time.Minute),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       observability.ParseLogLevel(getEnv("RENTDESK_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("RENTDESK_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.PlanCacheSize <= 0 {
		return fmt.Errorf("plan cache size must be positive")
	}

	if c.Billing.BaseURL == "" {
		return fmt.Errorf("billing gateway URL is required")
	}
	if c.Billing.APIKey == "" {
		return fmt.Errorf("billing gateway API key is required")
	}

	if c.Reconciler.Enabled && c.Reconciler.Schedule == "" {
		return fmt.Errorf("reconciler schedule is required when the reconciler is enabled")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
