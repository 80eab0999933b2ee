package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultCookieName is used when CookieConfig.Name is empty.
	DefaultCookieName = "session_token"

	maxCookieSize = 4096
)

// CookieConfig controls the attributes of the session cookie.
type CookieConfig struct {
	Name string
	// Domain is only set in production, where it should be the root domain.
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
}

func (c CookieConfig) withDefaults() CookieConfig {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		c.Name = DefaultCookieName
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if c.SameSite == 0 {
		c.SameSite = http.SameSiteLaxMode
	}
	return c
}

// cookieJar writes and reads the sealed session cookie.
type cookieJar struct {
	cfg    CookieConfig
	sealer *Sealer
}

func (j cookieJar) write(w http.ResponseWriter, token string, expires, now time.Time) error {
	if w == nil {
		return errors.New("session cookie: response writer is required")
	}
	sealed, err := j.sealer.Seal(token)
	if err != nil {
		return err
	}

	cookie := j.base()
	cookie.Value = sealed
	cookie.Expires = expires.UTC()
	cookie.MaxAge = int(expires.Sub(now) / time.Second)
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = -1
	}
	if size := len(cookie.String()); size > maxCookieSize {
		return fmt.Errorf("session cookie: %d bytes exceeds %d", size, maxCookieSize)
	}
	http.SetCookie(w, cookie)
	return nil
}

// read returns the raw token carried by the request. It fails with
// http.ErrNoCookie when absent and ErrInvalidSeal when tampered.
func (j cookieJar) read(r *http.Request) (string, error) {
	if r == nil {
		return "", http.ErrNoCookie
	}
	cookie, err := r.Cookie(j.cfg.Name)
	if err != nil {
		return "", err
	}
	if cookie.Value == "" {
		return "", http.ErrNoCookie
	}
	return j.sealer.Open(cookie.Value)
}

func (j cookieJar) clear(w http.ResponseWriter) {
	if w == nil {
		return
	}
	cookie := j.base()
	cookie.Value = ""
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
}

func (j cookieJar) base() *http.Cookie {
	return &http.Cookie{
		Name:     j.cfg.Name,
		Path:     j.cfg.Path,
		Domain:   j.cfg.Domain,
		Secure:   j.cfg.Secure,
		HttpOnly: true,
		SameSite: j.cfg.SameSite,
	}
}
