package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string `mapstructure:"PORT"`
	Environment string `mapstructure:"ENVIRONMENT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// Database
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Redis rate cache (optional)
	RedisURL     string `mapstructure:"REDIS_URL"`
	RateCacheTTL string `mapstructure:"RATE_CACHE_TTL"`

	// JWT verification of tokens issued by the identity service
	JWTSecret string `mapstructure:"JWT_SECRET"`

	// Background Workers
	WorkerCount int `mapstructure:"WORKER_COUNT"`

	// CORS
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	// Money rounding: decimal places kept on every stored amount
	CurrencyScale int32 `mapstructure:"CURRENCY_SCALE"`

	// Receipt document store
	StoragePath string `mapstructure:"STORAGE_PATH"`

	// Sentry
	SentryDSN string `mapstructure:"SENTRY_DSN"`
}

// Load reads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	// Don't fail if .env file doesn't exist
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Set default JWT secret for development
	if cfg.JWTSecret == "" && !cfg.IsProduction() {
		cfg.JWTSecret = "dev-secret-change-in-production"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RATE_CACHE_TTL", "6h")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("WORKER_COUNT", 4)
	v.SetDefault("STORAGE_PATH", "./storage")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("CURRENCY_SCALE", 2)
	v.SetDefault("SENTRY_DSN", "")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}

	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be greater than 0")
	}

	ttl, err := time.ParseDuration(c.RateCacheTTL)
	if err != nil {
		return fmt.Errorf("RATE_CACHE_TTL must be a valid duration: %w", err)
	}
	if ttl < time.Second {
		return fmt.Errorf("RATE_CACHE_TTL must be at least 1s")
	}

	if c.CurrencyScale < 0 || c.CurrencyScale > 6 {
		return fmt.Errorf("CURRENCY_SCALE must be between 0 and 6")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// GetRateCacheTTL returns the rate cache TTL as duration
func (c *Config) GetRateCacheTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.RateCacheTTL)
	return ttl
}

// GetAllowedOrigins splits the comma-separated origin list
func (c *Config) GetAllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
