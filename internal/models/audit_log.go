package models

import "gorm.io/datatypes"

// AuditLog is one activity record (login, logout, revoke ...).
type AuditLog struct {
	BaseModel

	UserID     *string        `gorm:"type:uuid;index" json:"user_id"`
	Action     string         `gorm:"not null;index" json:"action"`
	Resource   string         `gorm:"index" json:"resource"`
	ResourceID string         `gorm:"index" json:"resource_id"`
	Message    string         `json:"message"`
	Result     string         `gorm:"not null" json:"result"`
	IPAddress  string         `json:"ip_address"`
	UserAgent  string         `json:"user_agent"`
	Metadata   datatypes.JSON `json:"metadata"`
}
