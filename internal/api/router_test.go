package api_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/api"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/app"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/handlers/testutil"
)

func TestNewRouterRequiresDependencies(t *testing.T) {
	_, err := api.NewRouter(api.Dependencies{})
	require.Error(t, err)

	_, err = api.NewRouter(api.Dependencies{Config: &app.Config{}})
	require.Error(t, err)

	env := testutil.NewEnv(t)
	_, err = api.NewRouter(api.Dependencies{Config: env.Config, Sessions: env.Sessions})
	require.Error(t, err)
}

func TestRouterRegistersSessionRoutes(t *testing.T) {
	env := testutil.NewEnv(t)

	routes := map[string]bool{}
	for _, route := range env.Router.Routes() {
		routes[route.Method+" "+route.Path] = true
	}

	for _, expected := range []string{
		"POST /api/auth/login",
		"POST /api/auth/logout",
		"GET /api/auth/me",
		"GET /api/auth/activity",
		"GET /api/sessions",
		"GET /api/sessions/dashboard",
		"POST /api/sessions/extend",
		"POST /api/sessions/revoke-all",
		"POST /api/sessions/:id/revoke",
		"GET /health",
		"GET /metrics",
	} {
		require.True(t, routes[expected], expected)
	}
}

func TestRouterPublicAndProtectedRoutes(t *testing.T) {
	env := testutil.NewEnv(t)
	client := env.NewClient("")

	require.Equal(t, http.StatusOK, client.Request(http.MethodGet, "/health", nil).Code)
	require.Equal(t, http.StatusUnauthorized, client.Request(http.MethodGet, "/api/auth/me", nil).Code)
	require.Equal(t, http.StatusOK, client.Request(http.MethodPost, "/api/auth/logout", nil).Code)

	w := client.Request(http.MethodGet, "/health", nil)
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	require.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestRouterMetricsCanBeDisabled(t *testing.T) {
	env := testutil.NewEnv(t, func(cfg *app.Config) {
		cfg.Monitoring.Prometheus.Enabled = false
	})

	w := env.NewClient("").Request(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterIgnoresForwardedForWithoutTrustedProxy(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithLoginLimit(1, time.Minute), testutil.WithTrustProxy(false))
	client := env.NewClient("")

	payload := map[string]string{"email": "nobody@example.com", "password": "irrelevant"}
	require.Equal(t, http.StatusUnauthorized, client.Request(http.MethodPost, "/api/auth/login", payload).Code)

	// A spoofed X-Forwarded-For must not open a fresh rate limit bucket.
	client.Header.Set("X-Forwarded-For", "198.51.100.7")
	require.Equal(t, http.StatusTooManyRequests, client.Request(http.MethodPost, "/api/auth/login", payload).Code)
}
