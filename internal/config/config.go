// Package config loads process configuration from the environment, an
// optional config.yml in the working directory, and built-in defaults, in
// that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full set of settings the server reads at startup.
type Config struct {
	Port     int    `mapstructure:"PORT"`
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// DatabaseURL is a SQLite file path, ":memory:", or a mongodb:// URI.
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	JWTSecret    string        `mapstructure:"JWT_SECRET"`
	SessionTTL   time.Duration `mapstructure:"SESSION_TTL"`
	CookieSecure bool          `mapstructure:"COOKIE_SECURE"`
	BcryptCost   int           `mapstructure:"BCRYPT_COST"`

	MapTilerAPIKey  string `mapstructure:"MAPTILER_API_KEY"`
	MapTilerBaseURL string `mapstructure:"MAPTILER_BASE_URL"`

	CloudinaryURL string `mapstructure:"CLOUDINARY_URL"`
	MediaDir      string `mapstructure:"MEDIA_DIR"`
	MediaBaseURL  string `mapstructure:"MEDIA_BASE_URL"`
	MaxUploadMB   int64  `mapstructure:"MAX_UPLOAD_MB"`

	RedisURL string        `mapstructure:"REDIS_URL"`
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`

	AMQPURL        string `mapstructure:"AMQP_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`
}

var defaults = map[string]any{
	"PORT":              8080,
	"APP_ENV":           "development",
	"LOG_LEVEL":         "info",
	"DATABASE_URL":      "data/journeyhub.db",
	"MONGO_DATABASE":    "journeyhub",
	"JWT_SECRET":        "",
	"SESSION_TTL":       "24h",
	"COOKIE_SECURE":     false,
	"BCRYPT_COST":       12,
	"MAPTILER_API_KEY":  "",
	"MAPTILER_BASE_URL": "https://api.maptiler.com",
	"CLOUDINARY_URL":    "",
	"MEDIA_DIR":         "data/media",
	"MEDIA_BASE_URL":    "/media",
	"MAX_UPLOAD_MB":     10,
	"REDIS_URL":         "",
	"CACHE_TTL":         "5m",
	"AMQP_URL":          "",
	"EVENTS_EXCHANGE":   "journeyhub.events",
}

// Load reads config.yml from dir (if present) and overlays environment
// variables. An empty dir means the working directory.
func Load(dir string) (*Config, error) {
	v := viper.New()
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	// Every key needs a default or AutomaticEnv never sees it during Unmarshal.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config.yml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	return &cfg, nil
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesMongo reports whether DatabaseURL points at MongoDB.
func (c *Config) UsesMongo() bool {
	return strings.HasPrefix(c.DatabaseURL, "mongodb://") || strings.HasPrefix(c.DatabaseURL, "mongodb+srv://")
}

// MaxUploadBytes is the request body limit for multipart uploads.
func (c *Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return c.MaxUploadMB << 20
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL is required")
	}

	minSecret := 16
	if c.IsProduction() {
		minSecret = 32
	}
	if len(c.JWTSecret) < minSecret {
		return fmt.Errorf("config: JWT_SECRET must be at least %d characters", minSecret)
	}

	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	return nil
}
