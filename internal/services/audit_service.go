package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/logger"
)

// AuditEntry captures a single activity event to persist.
type AuditEntry struct {
	UserID     string
	Action     string
	Resource   string
	ResourceID string
	Message    string
	Result     string
	IPAddress  string
	UserAgent  string
	Metadata   map[string]any
}

// AuditService persists activity records.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db}, nil
}

// Log stores an audit entry, marshalling metadata into JSON form.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(entry.Action) == "" {
		return errors.New("audit service: action is required")
	}
	if strings.TrimSpace(entry.Result) == "" {
		return errors.New("audit service: result is required")
	}

	record := models.AuditLog{
		Action:     strings.TrimSpace(entry.Action),
		Resource:   strings.TrimSpace(entry.Resource),
		ResourceID: strings.TrimSpace(entry.ResourceID),
		Message:    strings.TrimSpace(entry.Message),
		Result:     strings.TrimSpace(entry.Result),
		IPAddress:  strings.TrimSpace(entry.IPAddress),
		UserAgent:  strings.TrimSpace(entry.UserAgent),
	}
	if entry.Metadata != nil {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("audit service: marshal metadata: %w", err)
		}
		record.Metadata = datatypes.JSON(encoded)
	}
	if id := strings.TrimSpace(entry.UserID); id != "" {
		record.UserID = &id
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("audit service: create log: %w", err)
	}
	return nil
}

// ListForUser returns the user's most recent audit records, newest first.
func (s *AuditService) ListForUser(ctx context.Context, userID string, limit int) ([]models.AuditLog, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var logs []models.AuditLog
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("audit service: list logs: %w", err)
	}
	return logs, nil
}

// CleanupOlderThan removes audit logs older than the supplied retention window (in days).
func (s *AuditService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	ctx = ensureContext(ctx)

	if retentionDays <= 0 {
		return 0, errors.New("audit service: retentionDays must be positive")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// recordAudit logs entry and only warns on failure; auditing never blocks the caller's outcome.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	if entry.Result == "" {
		entry.Result = "success"
	}
	if err := audit.Log(ctx, entry); err != nil {
		logger.WithModule("audit").Warn("audit write failed",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}
