package models

import (
	"strings"
	"time"
)

// SessionStatus is the administrative state of a session.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusRevoked SessionStatus = "revoked"
	SessionStatusExpired SessionStatus = "expired"
)

// Valid reports whether s is one of the known statuses.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusActive, SessionStatusRevoked, SessionStatusExpired:
		return true
	}
	return false
}

// RiskLevel is the tier assigned to a session at creation.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// RiskLevels lists every tier from least to most severe.
var RiskLevels = []RiskLevel{RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical}

// Valid reports whether l is one of the known tiers.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical:
		return true
	}
	return false
}

// Elevated is true for high and critical tiers.
func (l RiskLevel) Elevated() bool {
	return l == RiskLevelHigh || l == RiskLevelCritical
}

// LoginMethod records how the user proved their identity.
type LoginMethod string

const (
	LoginMethodPassword LoginMethod = "password"
	LoginMethodOTP      LoginMethod = "otp"
	LoginMethodSSO      LoginMethod = "sso"
)

// Valid reports whether m is one of the known login methods.
func (m LoginMethod) Valid() bool {
	switch m {
	case LoginMethodPassword, LoginMethodOTP, LoginMethodSSO:
		return true
	}
	return false
}

// DeviceType is the coarse class of the client device.
type DeviceType string

const (
	DeviceTypeDesktop DeviceType = "desktop"
	DeviceTypeMobile  DeviceType = "mobile"
	DeviceTypeTablet  DeviceType = "tablet"
	DeviceTypeBot     DeviceType = "bot"
	DeviceTypeUnknown DeviceType = "unknown"
)

// Classified is true when the device type is one a person would sit behind.
func (t DeviceType) Classified() bool {
	switch t {
	case DeviceTypeDesktop, DeviceTypeMobile, DeviceTypeTablet:
		return true
	}
	return false
}

// DeviceInfo is the device that opened the session. It is never refreshed.
type DeviceInfo struct {
	Name      string     `json:"name" bson:"name"`
	Browser   string     `json:"browser" bson:"browser"`
	OS        string     `gorm:"column:os" json:"os" bson:"os"`
	Type      DeviceType `gorm:"size:16;index" json:"type" bson:"type"`
	UserAgent string     `json:"user_agent" bson:"user_agent"`
}

// Label is a short human readable description of the device.
func (d DeviceInfo) Label() string {
	parts := make([]string, 0, 2)
	if d.Browser != "" {
		parts = append(parts, d.Browser)
	}
	if d.OS != "" {
		parts = append(parts, d.OS)
	}
	if len(parts) == 0 {
		if d.Name != "" {
			return d.Name
		}
		return "Unknown device"
	}
	return strings.Join(parts, " on ")
}

// LocationInfo is where the session was opened from. It is never refreshed.
type LocationInfo struct {
	Country   string   `gorm:"size:64;index" json:"country" bson:"country"`
	City      string   `json:"city" bson:"city"`
	Timezone  string   `json:"timezone" bson:"timezone"`
	IPAddress string   `gorm:"column:ip_address" json:"ip_address" bson:"ip_address"`
	Latitude  *float64 `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty" bson:"longitude,omitempty"`
}

// Label renders "City, Country" with whatever parts are known.
func (l LocationInfo) Label() string {
	switch {
	case l.City != "" && l.Country != "":
		return l.City + ", " + l.Country
	case l.Country != "":
		return l.Country
	case l.City != "":
		return l.City
	default:
		return "Unknown location"
	}
}

// SecurityInfo is the risk assessment captured when the session was created.
type SecurityInfo struct {
	LoginMethod       LoginMethod `gorm:"size:32" json:"login_method" bson:"login_method"`
	RiskScore         int         `json:"risk_score" bson:"risk_score"`
	RiskLevel         RiskLevel   `gorm:"size:16;index" json:"risk_level" bson:"risk_level"`
	IsVerified        bool        `json:"is_verified" bson:"is_verified"`
	FailedAttempts    int         `json:"failed_attempts" bson:"failed_attempts"`
	LastSecurityCheck time.Time   `json:"last_security_check" bson:"last_security_check"`
}

// Session binds one browser to a user through the hash of a bearer token.
type Session struct {
	BaseModel `bson:",inline"`

	UserID    string `gorm:"type:uuid;not null;index" json:"user_id" bson:"user_id"`
	TokenHash string `gorm:"size:64;uniqueIndex;not null" json:"-" bson:"token_hash"`

	Status   SessionStatus `gorm:"size:16;not null;index" json:"status" bson:"status"`
	IsActive bool          `gorm:"not null;index" json:"is_active" bson:"is_active"`

	ExpiresAt      time.Time `gorm:"index;not null" json:"expires_at" bson:"expires_at"`
	LastAccessedAt time.Time `json:"last_accessed_at" bson:"last_accessed_at"`

	Device   DeviceInfo   `gorm:"embedded;embeddedPrefix:device_" json:"device" bson:"device"`
	Location LocationInfo `gorm:"embedded;embeddedPrefix:location_" json:"location" bson:"location"`
	Security SecurityInfo `gorm:"embedded;embeddedPrefix:security_" json:"security" bson:"security"`
}

// IsLive reports whether the session can authenticate a request at now.
func (s *Session) IsLive(now time.Time) bool {
	return s != nil && s.IsActive && s.Status == SessionStatusActive && s.ExpiresAt.After(now)
}

// EffectiveStatus folds natural expiry into the stored status for reporting.
func (s *Session) EffectiveStatus(now time.Time) SessionStatus {
	if s.Status == SessionStatusActive && !s.ExpiresAt.After(now) {
		return SessionStatusExpired
	}
	return s.Status
}
