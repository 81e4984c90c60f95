package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-user-auth/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "DEV", cfg.Env)
	require.Equal(t, 24*time.Hour, cfg.SessionLifetime)
	require.Equal(t, 12, cfg.BcryptCost)
	require.Equal(t, 8, cfg.MinPasswordLength)
	require.Equal(t, []string{"openid", "profile", "email"}, cfg.FedScopes)
	require.False(t, cfg.FederationEnabled())
}

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoadRejectsNonPositiveLifetime(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("SESSION_LIFETIME", "-1h")

	_, err := config.Load()
	require.Error(t, err)
}

func TestListenAddr(t *testing.T) {
	require.Equal(t, ":8080", config.Config{Port: "8080"}.ListenAddr())
	require.Equal(t, ":9090", config.Config{Port: ":9090"}.ListenAddr())
}

func TestFederationEnabled(t *testing.T) {
	cfg := config.Config{
		FedIssuerURL:    "https://issuer.example.com",
		FedClientID:     "client-id",
		FedClientSecret: "client-secret",
	}
	require.True(t, cfg.FederationEnabled())

	cfg.FedClientSecret = ""
	require.False(t, cfg.FederationEnabled())
}

func TestIsAllowedOrigin(t *testing.T) {
	cfg := config.Config{AllowedOrigins: []string{"https://app.example.com"}}
	require.True(t, cfg.IsAllowedOrigin("https://app.example.com"))
	require.False(t, cfg.IsAllowedOrigin("https://evil.example.com"))

	wildcard := config.Config{AllowedOrigins: []string{"*"}}
	require.True(t, wildcard.IsAllowedOrigin("https://anything.example.com"))
}
