package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/auth"
)

func TestApplyRuntimeDefaultsGeneratesCookieSecret(t *testing.T) {
	cfg := &Config{}

	generated, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.True(t, generated["sessions.cookie.secret"])
	require.GreaterOrEqual(t, len(cfg.Sessions.Cookie.Secret), auth.MinSecretLength)

	first := cfg.Sessions.Cookie.Secret
	generated, err = ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.Empty(t, generated)
	require.Equal(t, first, cfg.Sessions.Cookie.Secret)
}

func TestApplyRuntimeDefaultsKeepsConfiguredSecret(t *testing.T) {
	cfg := &Config{Sessions: SessionsConfig{Cookie: CookieConfig{Secret: "configured-secret-configured-secret"}}}

	generated, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.Empty(t, generated)
	require.Equal(t, "configured-secret-configured-secret", cfg.Sessions.Cookie.Secret)

	_, err = ApplyRuntimeDefaults(nil)
	require.Error(t, err)
}
