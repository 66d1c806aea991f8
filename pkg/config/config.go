package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/animerged/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Env names the deployment, reported by /v1/ping
	Env string `yaml:"env"`

	Server        ServerConfig        `yaml:"server"`
	Storage       storage.Config      `yaml:"storage"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	SMTP          SMTPConfig          `yaml:"smtp"`
	Janitor       JanitorConfig       `yaml:"janitor"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`

	// TrustedOrigins may make cross-origin requests
	TrustedOrigins []string `yaml:"trusted_origins"`
}

// RateLimitConfig holds the per-IP limiter settings
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Requests          int           `yaml:"requests"`
	Window            time.Duration `yaml:"window"`
	KeyFormat         string        `yaml:"key_format"`
	TrustForwardedFor bool          `yaml:"trust_forwarded_for"`
}

// SMTPConfig holds the outgoing mail relay. An empty host disables sending.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Sender   string `yaml:"sender"`
}

// JanitorConfig schedules expired token cleanup
type JanitorConfig struct {
	Schedule string `yaml:"schedule"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel string `yaml:"log_level"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	// OTelServiceVersion defaults to the binary version when empty
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"` // Use insecure gRPC connection
	OTelSamplingRate   float64 `yaml:"otel_sampling_rate"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Env: "development",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "4000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     time.Minute,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Storage: storage.DefaultConfig(),
		RateLimit: RateLimitConfig{
			Enabled:   true,
			Requests:  30,
			Window:    time.Minute,
			KeyFormat: "rate:%s:requests",
		},
		SMTP: SMTPConfig{
			Port:   25,
			Sender: "AniMerged <no-reply@animerged.local>",
		},
		Janitor: JanitorConfig{
			Schedule: "@hourly",
		},
		Observability: ObservabilityConfig{
			LogLevel:         "info",
			MetricsEnabled:   true,
			OTelEndpoint:     "localhost:4317",
			OTelServiceName:  "animerged",
			OTelInsecure:     true,
			OTelSamplingRate: 1.0,
		},
	}
}

// Load loads configuration from the file named by ANIMERGED_CONFIG_FILE,
// if any, and then from environment variables
func Load() (*Config, error) {
	return LoadFile(getEnv("ANIMERGED_CONFIG_FILE", ""))
}

// LoadFile overlays the YAML file at path on the defaults, applies
// environment overrides and validates the result. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = getEnv("ANIMERGED_ENV", cfg.Env)

	// Server
	cfg.Server.Host = getEnv("ANIMERGED_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("ANIMERGED_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("ANIMERGED_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("ANIMERGED_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("ANIMERGED_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("ANIMERGED_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.HealthPort = getEnv("ANIMERGED_HEALTH_PORT", cfg.Server.HealthPort)
	cfg.Server.TrustedOrigins = getEnvList("ANIMERGED_CORS_TRUSTED_ORIGINS", cfg.Server.TrustedOrigins)

	// PostgreSQL
	cfg.Storage.PostgresURL = getEnv("ANIMERGED_DB_DSN", cfg.Storage.PostgresURL)
	cfg.Storage.PostgresMaxConns = getEnvInt("ANIMERGED_DB_MAX_OPEN_CONNS", cfg.Storage.PostgresMaxConns)
	cfg.Storage.PostgresMinConns = getEnvInt("ANIMERGED_DB_MAX_IDLE_CONNS", cfg.Storage.PostgresMinConns)
	cfg.Storage.PostgresMaxIdleTime = getEnvDuration("ANIMERGED_DB_MAX_IDLE_TIME", cfg.Storage.PostgresMaxIdleTime)
	cfg.Storage.PostgresMaxLifetime = getEnvDuration("ANIMERGED_DB_MAX_LIFETIME", cfg.Storage.PostgresMaxLifetime)
	cfg.Storage.PostgresTimeout = getEnvDuration("ANIMERGED_DB_TIMEOUT", cfg.Storage.PostgresTimeout)

	// Redis
	cfg.Storage.RedisURL = getEnv("ANIMERGED_REDIS_URL", cfg.Storage.RedisURL)
	cfg.Storage.RedisPassword = getEnv("ANIMERGED_REDIS_PASSWORD", cfg.Storage.RedisPassword)
	cfg.Storage.RedisDB = getEnvInt("ANIMERGED_REDIS_DB", cfg.Storage.RedisDB)
	cfg.Storage.RedisPoolSize = getEnvInt("ANIMERGED_REDIS_POOL_SIZE", cfg.Storage.RedisPoolSize)

	// Rate limiter
	cfg.RateLimit.Enabled = getEnvBool("ANIMERGED_LIMITER_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.Requests = getEnvInt("ANIMERGED_LIMITER_REQUESTS", cfg.RateLimit.Requests)
	cfg.RateLimit.Window = getEnvDuration("ANIMERGED_LIMITER_WINDOW", cfg.RateLimit.Window)
	cfg.RateLimit.KeyFormat = getEnv("ANIMERGED_LIMITER_KEY_FORMAT", cfg.RateLimit.KeyFormat)
	cfg.RateLimit.TrustForwardedFor = getEnvBool("ANIMERGED_LIMITER_TRUST_FORWARDED_FOR", cfg.RateLimit.TrustForwardedFor)

	// SMTP
	cfg.SMTP.Host = getEnv("ANIMERGED_SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = getEnvInt("ANIMERGED_SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.Username = getEnv("ANIMERGED_SMTP_USERNAME", cfg.SMTP.Username)
	cfg.SMTP.Password = getEnv("ANIMERGED_SMTP_PASSWORD", cfg.SMTP.Password)
	cfg.SMTP.Sender = getEnv("ANIMERGED_SMTP_SENDER", cfg.SMTP.Sender)

	cfg.Janitor.Schedule = getEnv("ANIMERGED_JANITOR_SCHEDULE", cfg.Janitor.Schedule)

	// Observability
	cfg.Observability.LogLevel = getEnv("ANIMERGED_LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.MetricsEnabled = getEnvBool("ANIMERGED_METRICS_ENABLED", cfg.Observability.MetricsEnabled)
	cfg.Observability.OTelEnabled = getEnvBool("ANIMERGED_OTEL_ENABLED", cfg.Observability.OTelEnabled)
	cfg.Observability.OTelEndpoint = getEnv("ANIMERGED_OTEL_ENDPOINT", cfg.Observability.OTelEndpoint)
	cfg.Observability.OTelServiceName = getEnv("ANIMERGED_OTEL_SERVICE_NAME", cfg.Observability.OTelServiceName)
	cfg.Observability.OTelServiceVersion = getEnv("ANIMERGED_OTEL_SERVICE_VERSION", cfg.Observability.OTelServiceVersion)
	cfg.Observability.OTelInsecure = getEnvBool("ANIMERGED_OTEL_INSECURE", cfg.Observability.OTelInsecure)
	cfg.Observability.OTelSamplingRate = getEnvFloat("ANIMERGED_OTEL_SAMPLING_RATE", cfg.Observability.OTelSamplingRate)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Validate server config
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is required"))
	}
	if c.Server.HealthPort == "" {
		errs = append(errs, errors.New("health port is required"))
	}
	if c.Server.Port != "" && c.Server.Port == c.Server.HealthPort {
		errs = append(errs, errors.New("server port and health port must be different"))
	}
	for _, port := range []string{c.Server.Port, c.Server.HealthPort} {
		if port == "" {
			continue
		}
		if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
			errs = append(errs, fmt.Errorf("invalid port: %s", port))
		}
	}

	if c.Storage.PostgresURL == "" {
		errs = append(errs, errors.New("database DSN is required"))
	}

	if c.RateLimit.Enabled {
		if c.Storage.RedisURL == "" {
			errs = append(errs, errors.New("redis URL is required when the rate limiter is enabled"))
		}
		if c.RateLimit.Requests < 1 {
			errs = append(errs, errors.New("rate limit requests must be positive"))
		}
		if c.RateLimit.Window <= 0 {
			errs = append(errs, errors.New("rate limit window must be positive"))
		}
		if strings.Count(c.RateLimit.KeyFormat, "%s") != 1 {
			errs = append(errs, fmt.Errorf("rate limit key format must contain exactly one %%s: %q", c.RateLimit.KeyFormat))
		}
	}

	if c.SMTP.Host != "" && (c.SMTP.Port < 1 || c.SMTP.Port > 65535) {
		errs = append(errs, fmt.Errorf("invalid SMTP port: %d", c.SMTP.Port))
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			errs = append(errs, errors.New("OpenTelemetry endpoint is required when OTel is enabled"))
		}
		if c.Observability.OTelServiceName == "" {
			errs = append(errs, errors.New("OpenTelemetry service name is required when OTel is enabled"))
		}
	}
	if c.Observability.OTelSamplingRate < 0 || c.Observability.OTelSamplingRate > 1 {
		errs = append(errs, fmt.Errorf("OpenTelemetry sampling rate must be between 0 and 1: %v", c.Observability.OTelSamplingRate))
	}

	return errors.Join(errs...)
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

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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

// getEnvList splits a space or comma separated variable
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' '
	})
}
