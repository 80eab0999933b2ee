// Package store persists sessions. It knows nothing about tokens, cookies or risk;
// callers pass hashes and filters and get rows or counts back.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
)

var (
	// ErrNotFound is a negative lookup result.
	ErrNotFound = errors.New("session store: not found")
	// ErrUnavailable wraps infrastructure failures (driver errors, timeouts).
	ErrUnavailable = errors.New("session store: unavailable")
	// ErrDuplicate is returned when a token hash is already stored.
	ErrDuplicate = errors.New("session store: duplicate token hash")
	// ErrUnscoped guards bulk operations against an empty filter.
	ErrUnscoped = errors.New("session store: bulk operation requires a filter")
)

// SessionStore is the persistence port for sessions.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByTokenHash(ctx context.Context, hash string, opts LookupOptions) (*models.Session, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	// FindByUser returns every session of the user, newest first.
	FindByUser(ctx context.Context, userID string) ([]models.Session, error)
	// FindWhere returns matching sessions, newest first.
	FindWhere(ctx context.Context, filter Filter) ([]models.Session, error)
	UpdateFields(ctx context.Context, id string, update Update) error
	UpdateWhere(ctx context.Context, filter Filter, update Update) (int64, error)
	DeleteWhere(ctx context.Context, filter Filter) (int64, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	// CountBy groups sessions by one dimension. An empty userID counts every user.
	CountBy(ctx context.Context, userID string, dimension Dimension) (map[string]int64, error)
	Ping(ctx context.Context) error
}

// LookupOptions narrows FindByTokenHash.
type LookupOptions struct {
	ActiveOnly   bool
	NotExpiredAt time.Time
}

// Live returns lookup options that only match sessions usable at now.
func Live(now time.Time) LookupOptions {
	return LookupOptions{ActiveOnly: true, NotExpiredAt: now}
}

// Filter selects sessions for bulk reads, updates and deletes. Zero fields are ignored.
type Filter struct {
	UserID     string
	ExcludeID  string
	Status     models.SessionStatus
	IsActive   *bool
	Verified   *bool
	RiskLevels []models.RiskLevel
	// MissingLocation matches sessions recorded with neither country nor IP.
	MissingLocation bool
	ExpiresBefore   time.Time
	ExpiresAfter    time.Time
	CreatedAfter    time.Time
}

// Scoped reports whether the filter restricts the row set.
func (f Filter) Scoped() bool {
	return f.UserID != "" ||
		f.Status != "" ||
		f.IsActive != nil ||
		f.Verified != nil ||
		len(f.RiskLevels) > 0 ||
		f.MissingLocation ||
		!f.ExpiresBefore.IsZero() ||
		!f.ExpiresAfter.IsZero() ||
		!f.CreatedAfter.IsZero()
}

// LiveFilter matches the user's sessions that are usable at now.
func LiveFilter(userID string, now time.Time) Filter {
	return Filter{
		UserID:       userID,
		Status:       models.SessionStatusActive,
		IsActive:     Bool(true),
		ExpiresAfter: now,
	}
}

// Update lists the mutable session fields. Nil fields are left untouched.
type Update struct {
	LastAccessedAt    *time.Time
	Status            *models.SessionStatus
	IsActive          *bool
	ExpiresAt         *time.Time
	LastSecurityCheck *time.Time
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.LastAccessedAt == nil &&
		u.Status == nil &&
		u.IsActive == nil &&
		u.ExpiresAt == nil &&
		u.LastSecurityCheck == nil
}

// Revocation is the update that makes a session terminally unusable.
func Revocation() Update {
	status := models.SessionStatusRevoked
	return Update{Status: &status, IsActive: Bool(false)}
}

// Dimension is a groupable session attribute.
type Dimension string

const (
	DimensionDeviceType    Dimension = "device_type"
	DimensionDeviceName    Dimension = "device_name"
	DimensionDeviceOS      Dimension = "device_os"
	DimensionDeviceBrowser Dimension = "device_browser"
	DimensionRiskLevel     Dimension = "risk_level"
	DimensionStatus        Dimension = "status"
	DimensionLoginMethod   Dimension = "login_method"
	DimensionCountry       Dimension = "country"
	DimensionCity          Dimension = "city"
	DimensionTimezone      Dimension = "timezone"
)

type dimensionMapping struct {
	column string
	field  string
}

var dimensions = map[Dimension]dimensionMapping{
	DimensionDeviceType:    {column: "device_type", field: "device.type"},
	DimensionDeviceName:    {column: "device_name", field: "device.name"},
	DimensionDeviceOS:      {column: "device_os", field: "device.os"},
	DimensionDeviceBrowser: {column: "device_browser", field: "device.browser"},
	DimensionRiskLevel:     {column: "security_risk_level", field: "security.risk_level"},
	DimensionStatus:        {column: "status", field: "status"},
	DimensionLoginMethod:   {column: "security_login_method", field: "security.login_method"},
	DimensionCountry:       {column: "location_country", field: "location.country"},
	DimensionCity:          {column: "location_city", field: "location.city"},
	DimensionTimezone:      {column: "location_timezone", field: "location.timezone"},
}

// Valid reports whether d is a known dimension.
func (d Dimension) Valid() bool {
	_, ok := dimensions[d]
	return ok
}

// Bool returns a pointer to v for optional filter and update fields.
func Bool(v bool) *bool { return &v }

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func unknownDimension(d Dimension) error {
	return fmt.Errorf("session store: unknown dimension %q", d)
}
