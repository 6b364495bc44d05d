package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=warehouse port=5432 sslmode=disable"

type Config struct {
	Env              string        `mapstructure:"APP_ENV"`
	HTTPPort         string        `mapstructure:"HTTP_PORT"`
	DatabaseDSN      string        `mapstructure:"DATABASE_DSN"`
	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	TokenTTL         time.Duration `mapstructure:"JWT_TTL"`
	CORSOrigins      string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	MetricsEnabled   bool          `mapstructure:"METRICS_ENABLED"`
	RunSQLMigrations bool          `mapstructure:"RUN_SQL_MIGRATIONS"`
}

// Load reads the environment (and a .env file in the working directory, if any).
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := gotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DATABASE_DSN", defaultDSN)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("RUN_SQL_MIGRATIONS", true)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if c.TokenTTL <= 0 {
		return errors.New("JWT_TTL must be a positive duration")
	}
	return nil
}

// WarnDefaults logs settings still on their development defaults.
func (c *Config) WarnDefaults(log *slog.Logger) {
	if c.DatabaseDSN == defaultDSN {
		log.Warn("DATABASE_DSN is using the default value, set your own Postgres DSN for production")
	}
	if c.CORSOrigins == "http://localhost:5173" {
		log.Warn("CORS_ALLOWED_ORIGINS is using the default value, set your own domain for production")
	}
}
