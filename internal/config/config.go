// Package config loads process configuration from environment variables. A
// missing session secret is a fatal configuration error surfaced at startup,
// never at request time.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config holds every value the process consumes from the environment.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	AppName string `env:"APP_NAME" envDefault:"Go User Auth"`
	Env     string `env:"ENV" envDefault:"DEV"`

	// SessionSecret signs every session token. Process-wide, loaded once,
	// read-only thereafter.
	SessionSecret   string        `env:"SESSION_SECRET,required,notEmpty"`
	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"24h"`

	BcryptCost        int `env:"BCRYPT_COST" envDefault:"12"`
	MinPasswordLength int `env:"MIN_PASSWORD_LENGTH" envDefault:"8"`

	// DataFolder holds the SQLite account store. Empty selects the in-memory
	// store, for development only.
	DataFolder string `env:"FOLDER" envDefault:"./data"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// Federated provider credentials are opaque here; the federation package
	// does the negotiation. A blank client ID disables the provider.
	FedProviderName string   `env:"FED_PROVIDER_NAME" envDefault:"github"`
	FedIssuerURL    string   `env:"FED_ISSUER_URL"`
	FedClientID     string   `env:"FED_CLIENT_ID"`
	FedClientSecret string   `env:"FED_CLIENT_SECRET"`
	FedRedirectURL  string   `env:"FED_REDIRECT_URL"`
	FedScopes       []string `env:"FED_SCOPES" envSeparator:"," envDefault:"openid,profile,email"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "[config.Load] parse env")
	}
	if cfg.SessionLifetime <= 0 {
		return Config{}, errors.New("[config.Load] SESSION_LIFETIME must be positive")
	}
	return cfg, nil
}

// ListenAddr returns the address for the HTTP server.
func (c Config) ListenAddr() string {
	if c.Port != "" && c.Port[0] == ':' {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// FederationEnabled reports whether an external provider is configured.
func (c Config) FederationEnabled() bool {
	return c.FedClientID != "" && c.FedClientSecret != "" && c.FedIssuerURL != ""
}

// IsAllowedOrigin reports whether the CORS origin is permitted.
func (c Config) IsAllowedOrigin(origin string) bool {
	for _, allowed := range c.AllowedOrigins {
		if allowed == origin || allowed == "*" {
			return true
		}
	}
	return false
}
