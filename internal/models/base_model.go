package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel provides shared fields for all persistent models. The bson tags let the
// same structs round-trip through the document store.
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id" bson:"_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// BeforeCreate ensures UUID identifiers are generated automatically.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	m.EnsureID()
	return nil
}

// EnsureID assigns a UUID when none is set. Stores without hooks call it directly.
func (m *BaseModel) EnsureID() {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
}
