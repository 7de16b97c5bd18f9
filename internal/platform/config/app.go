package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// AppConfig is the process-level configuration read once at startup.
type AppConfig struct {
	Port     string `env:"PORT"            envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL"       envDefault:"info"`
	Storage  string `env:"STORAGE_BACKEND" envDefault:"memory"`

	DatabaseURL     string `env:"DATABASE_URL"`
	DatabaseMaxConn int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`

	Lockout   LockoutConfig
	Bootstrap BootstrapConfig
}

// LockoutConfig is the account lockout policy. Lockout is off unless explicitly enabled.
type LockoutConfig struct {
	OnFailure         bool          `env:"LOCKOUT_ON_FAILURE"          envDefault:"false"`
	MaxFailedAttempts int           `env:"LOCKOUT_MAX_FAILED_ATTEMPTS" envDefault:"5"`
	Duration          time.Duration `env:"LOCKOUT_DURATION"            envDefault:"5m"`
}

// BootstrapConfig controls the startup admin seed.
type BootstrapConfig struct {
	Enabled  bool   `env:"BOOTSTRAP_ADMIN"     envDefault:"true"`
	Role     string `env:"ADMIN_ROLE"          envDefault:"Admin"`
	Email    string `env:"ADMIN_EMAIL"         envDefault:"admin@example.com"`
	Password string `env:"ADMIN_PASSWORD"      envDefault:"Admin@123"`
	FullName string `env:"ADMIN_FULL_NAME"     envDefault:"AdminUser"`
}

func LoadAppConfigFromEnv() (AppConfig, error) {
	return loadAppConfig(env.Options{})
}

func loadAppConfig(opts env.Options) (AppConfig, error) {
	var cfg AppConfig
	if err := parseEnv(&cfg, opts); err != nil {
		return AppConfig{}, err
	}

	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	switch cfg.Storage {
	case "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return AppConfig{}, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return AppConfig{}, fmt.Errorf("STORAGE_BACKEND must be memory or postgres, got %q", cfg.Storage)
	}
	if cfg.Lockout.MaxFailedAttempts <= 0 {
		return AppConfig{}, fmt.Errorf("LOCKOUT_MAX_FAILED_ATTEMPTS must be positive")
	}
	if cfg.Bootstrap.Enabled && (cfg.Bootstrap.Email == "" || cfg.Bootstrap.Password == "" || cfg.Bootstrap.Role == "") {
		return AppConfig{}, fmt.Errorf("ADMIN_EMAIL, ADMIN_PASSWORD and ADMIN_ROLE are required when BOOTSTRAP_ADMIN=true")
	}
	return cfg, nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
