package app

import (
	"strings"
	"time"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/auth"
)

// CookieSecrets returns the sealing secrets, primary first.
func (c SessionsConfig) CookieSecrets() []string {
	secrets := make([]string, 0, 1+len(c.Cookie.PreviousSecrets))
	secrets = append(secrets, strings.TrimSpace(c.Cookie.Secret))
	for _, previous := range c.Cookie.PreviousSecrets {
		if previous = strings.TrimSpace(previous); previous != "" {
			secrets = append(secrets, previous)
		}
	}
	return secrets
}

// SessionServiceConfig converts the configuration into SessionService parameters.
// Probe, Risk and Audit are wired by the caller.
func (c *Config) SessionServiceConfig() auth.SessionConfig {
	production := c.Server.Production()

	cookie := auth.CookieConfig{
		Name:   strings.TrimSpace(c.Sessions.Cookie.Name),
		Secure: c.Sessions.Cookie.Secure || production,
	}
	if production {
		cookie.Domain = strings.TrimSpace(c.Sessions.Cookie.Domain)
	}

	return auth.SessionConfig{
		Duration:     c.Sessions.Duration,
		StoreTimeout: c.Sessions.StoreTimeout,
		Cookie:       cookie,
		Probe:        auth.HeaderProbe{DirectOnly: !c.Server.TrustProxy},
	}
}

// RiskConfig converts the configuration into RiskEngine parameters.
func (c *Config) RiskConfig() auth.RiskConfig {
	lookback := c.Sessions.RiskLookback
	if lookback <= 0 {
		lookback = auth.DefaultRiskLookback
	}
	return auth.RiskConfig{Lookback: lookback}
}

// LoginWindow returns the login throttling limit and window, with defaults applied.
func (c ServerConfig) LoginWindow() (int, time.Duration) {
	requests, window := c.LoginLimit.Requests, c.LoginLimit.Window
	if requests <= 0 {
		requests = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return requests, window
}
