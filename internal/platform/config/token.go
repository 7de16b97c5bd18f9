package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinSecretLength is the shortest accepted HS256 signing secret, in bytes.
const MinSecretLength = 32

// TokenConfig configures access-token issuance and verification.
//
// Secret, Issuer and Audience are deployment-provided and have no defaults: a service that
// cannot sign tokens must not start.
type TokenConfig struct {
	Secret   string `env:"JWT_SECRET"`
	Issuer   string `env:"JWT_ISSUER"`
	Audience string `env:"JWT_AUDIENCE"`

	TTL       time.Duration `env:"TOKEN_TTL"      envDefault:"1h"`
	ClockSkew time.Duration `env:"JWT_CLOCK_SKEW" envDefault:"30s"`
}

func LoadTokenConfigFromEnv() (TokenConfig, error) {
	return loadTokenConfig(env.Options{})
}

func loadTokenConfig(opts env.Options) (TokenConfig, error) {
	var cfg TokenConfig
	if err := parseEnv(&cfg, opts); err != nil {
		return TokenConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return TokenConfig{}, err
	}
	return cfg, nil
}

// Validate reports a configuration fault. It is also used by callers that build a TokenConfig by hand.
func (c TokenConfig) Validate() error {
	if c.Secret == "" || c.Issuer == "" || c.Audience == "" {
		return fmt.Errorf("missing required env vars: JWT_SECRET, JWT_ISSUER, JWT_AUDIENCE")
	}
	if len(c.Secret) < MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", MinSecretLength)
	}
	if c.TTL <= 0 {
		return errors.New("TOKEN_TTL must be a positive duration (e.g. 1h)")
	}
	if c.ClockSkew < 0 {
		return errors.New("JWT_CLOCK_SKEW must not be negative")
	}
	return nil
}
