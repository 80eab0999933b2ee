package database

import (
	"gorm.io/gorm"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
)

// AutoMigrate creates or updates the relational schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.AuditLog{},
		&models.CacheEntry{},
	)
}
