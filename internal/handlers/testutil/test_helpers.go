package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/api"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/app"
	iauth "github.com/bhagwatcoding/cms-winfoa-sub000/internal/auth"
	sharedtestutil "github.com/bhagwatcoding/cms-winfoa-sub000/internal/database/testutil"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/handlers"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/middleware"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/services"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/store"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/crypto"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/response"
)

// CookieSecret seals session cookies in handler tests.
const CookieSecret = "handler-tests-cookie-secret-0123456789"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	Store    store.SessionStore
	Sessions *iauth.SessionService
	Users    *services.UserService
	Config   *app.Config
}

// EnvOption customises NewEnv.
type EnvOption func(*app.Config)

// WithLoginLimit overrides the login throttling settings.
func WithLoginLimit(requests int, window time.Duration) EnvOption {
	return func(cfg *app.Config) {
		cfg.Server.LoginLimit = app.RateLimitConfig{Requests: requests, Window: window}
	}
}

// WithTrustProxy toggles whether edge headers (X-Forwarded-For, geo) are honoured.
func WithTrustProxy(trust bool) EnvOption {
	return func(cfg *app.Config) {
		cfg.Server.TrustProxy = trust
	}
}

// NewEnv provisions a fresh handler test environment with migrations applied.
// The environment sits behind a trusted edge unless WithTrustProxy(false) is given.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{
		Server: app.ServerConfig{
			Environment: "test",
			LoginLimit:  app.RateLimitConfig{Requests: 100, Window: time.Minute},
			TrustProxy:  true,
		},
		Sessions: app.SessionsConfig{
			Duration:     24 * time.Hour,
			StoreTimeout: time.Second,
			RiskLookback: 7 * 24 * time.Hour,
			Cookie:       app.CookieConfig{Name: "session_token", Secret: CookieSecret},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)
	users, err := services.NewUserService(db, audit)
	require.NoError(t, err)
	sessionStore, err := store.NewGormSessionStore(db)
	require.NoError(t, err)
	analytics, err := services.NewSessionAnalyticsService(sessionStore, services.SessionAnalyticsConfig{})
	require.NoError(t, err)

	sealer, err := iauth.NewSealer(cfg.Sessions.CookieSecrets(), "session",
		iauth.WithArgon2Parameters(crypto.LowCostArgon2Params()))
	require.NoError(t, err)
	risk, err := iauth.NewRiskEngine(users, sessionStore, cfg.RiskConfig())
	require.NoError(t, err)

	sessionCfg := cfg.SessionServiceConfig()
	sessionCfg.Risk = risk
	sessionCfg.Audit = audit
	sessions, err := iauth.NewSessionService(sessionStore, sealer, sessionCfg)
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		Config:    cfg,
		Sessions:  sessions,
		Users:     users,
		Audit:     audit,
		Analytics: analytics,
		RateStore: middleware.NewMemoryRateStore(),
		HealthChecks: []handlers.HealthCheck{
			{Name: "sessions", Ping: sessionStore.Ping},
		},
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		Store:    sessionStore,
		Sessions: sessions,
		Users:    users,
		Config:   cfg,
	}
}

// CreateUser inserts a new active user with a random email and returns the record.
func (e *Env) CreateUser(password string) *models.User {
	e.T.Helper()

	email := "user-" + uuid.NewString() + "@example.com"
	hashed, err := crypto.HashPassword(password)
	require.NoError(e.T, err)

	user := &models.User{
		Email:    email,
		Name:     "Test User",
		Password: hashed,
		IsActive: true,
	}
	require.NoError(e.T, e.DB.Create(user).Error)
	return user
}

// NewClient returns a cookie-carrying client. Each client is a separate browser.
func (e *Env) NewClient(userAgent string) *Client {
	return &Client{env: e, userAgent: userAgent, cookies: map[string]*http.Cookie{}, Header: http.Header{}}
}

// Client replays the cookies it received, like a browser would.
type Client struct {
	env       *Env
	userAgent string
	cookies   map[string]*http.Cookie
	// Header is sent with every request, e.g. edge geo headers.
	Header http.Header
}

// SessionPayload captures the session fields returned from auth and session endpoints.
type SessionPayload struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Status          string    `json:"status"`
	EffectiveStatus string    `json:"effective_status"`
	IsActive        bool      `json:"is_active"`
	ExpiresAt       time.Time `json:"expires_at"`
	Current         bool      `json:"current"`
	DeviceLabel     string    `json:"device_label"`
	Security        struct {
		RiskScore int    `json:"risk_score"`
		RiskLevel string `json:"risk_level"`
	} `json:"security"`
}

// UserPayload captures the subset of user fields returned from auth endpoints.
type UserPayload struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// LoginResult bundles the JSON response from POST /api/auth/login.
type LoginResult struct {
	User    UserPayload    `json:"user"`
	Session SessionPayload `json:"session"`
}

// Login authenticates with email and password and keeps the issued session cookie.
func (c *Client) Login(email, password string) LoginResult {
	c.env.T.Helper()

	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	w := c.Request(http.MethodPost, "/api/auth/login", payload)
	require.Equal(c.env.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(c.env.T, w)
	require.True(c.env.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(c.env.T, resp.Data, &result)
	require.NotEmpty(c.env.T, result.Session.ID)
	require.NotNil(c.env.T, c.Cookie(c.env.Config.Sessions.Cookie.Name))
	return result
}

// Cookie returns the stored cookie with the given name, if any.
func (c *Client) Cookie(name string) *http.Cookie {
	return c.cookies[name]
}

// SetCookie replaces a stored cookie, e.g. to simulate tampering.
func (c *Client) SetCookie(cookie *http.Cookie) {
	c.cookies[cookie.Name] = cookie
}

// Request executes an HTTP request against the test router, applying JSON encoding and cookies automatically.
func (c *Client) Request(method, path string, body any) *httptest.ResponseRecorder {
	c.env.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.env.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(c.env.T, err)
	req.RemoteAddr = "203.0.113.10:40000"

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for name, values := range c.Header {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
	for _, cookie := range c.cookies {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}

	w := httptest.NewRecorder()
	c.env.Router.ServeHTTP(w, req)

	c.capture(w.Result())
	return w
}

func (c *Client) capture(resp *http.Response) {
	if resp == nil {
		return
	}
	defer resp.Body.Close()

	for _, cookie := range resp.Cookies() {
		if cookie.MaxAge < 0 || strings.TrimSpace(cookie.Value) == "" {
			delete(c.cookies, cookie.Name)
			continue
		}
		c.cookies[cookie.Name] = cookie
	}
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}
