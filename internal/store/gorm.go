package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/database"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
)

// GormSessionStore keeps sessions in the relational database.
type GormSessionStore struct {
	db *gorm.DB
}

var _ SessionStore = (*GormSessionStore)(nil)

// NewGormSessionStore constructs a store over an already migrated database.
func NewGormSessionStore(db *gorm.DB) (*GormSessionStore, error) {
	if db == nil {
		return nil, errors.New("session store: db is required")
	}
	return &GormSessionStore{db: db}, nil
}

// Create inserts a new session row.
func (s *GormSessionStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return errors.New("session store: session is required")
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return unavailable("create", err)
	}
	return nil
}

// FindByTokenHash loads the session bound to hash.
func (s *GormSessionStore) FindByTokenHash(ctx context.Context, hash string, opts LookupOptions) (*models.Session, error) {
	query := s.db.WithContext(ctx).Where("token_hash = ?", hash)
	if opts.ActiveOnly {
		query = query.Where("is_active = ? AND status = ?", true, models.SessionStatusActive)
	}
	if !opts.NotExpiredAt.IsZero() {
		query = query.Where("expires_at > ?", opts.NotExpiredAt.UTC())
	}
	return s.first(query, "find by token hash")
}

// FindByID loads a session by primary key.
func (s *GormSessionStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	return s.first(s.db.WithContext(ctx).Where("id = ?", id), "find by id")
}

func (s *GormSessionStore) first(query *gorm.DB, op string) (*models.Session, error) {
	var session models.Session
	if err := query.First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable(op, err)
	}
	return &session, nil
}

// FindByUser lists every session of the user, newest first.
func (s *GormSessionStore) FindByUser(ctx context.Context, userID string) ([]models.Session, error) {
	return s.FindWhere(ctx, Filter{UserID: userID})
}

// FindWhere lists matching sessions, newest first.
func (s *GormSessionStore) FindWhere(ctx context.Context, filter Filter) ([]models.Session, error) {
	var sessions []models.Session
	query := applyFilter(s.db.WithContext(ctx), filter).Order("created_at DESC")
	if err := query.Find(&sessions).Error; err != nil {
		return nil, unavailable("find", err)
	}
	return sessions, nil
}

// UpdateFields applies update to one session.
func (s *GormSessionStore) UpdateFields(ctx context.Context, id string, update Update) error {
	if update.Empty() {
		return nil
	}
	result := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", id).
		Updates(updateColumns(update))
	if result.Error != nil {
		return unavailable("update", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateWhere applies update to every matching session and returns how many changed.
func (s *GormSessionStore) UpdateWhere(ctx context.Context, filter Filter, update Update) (int64, error) {
	if !filter.Scoped() {
		return 0, ErrUnscoped
	}
	if update.Empty() {
		return 0, nil
	}
	result := applyFilter(s.db.WithContext(ctx).Model(&models.Session{}), filter).
		Updates(updateColumns(update))
	if result.Error != nil {
		return 0, unavailable("bulk update", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteWhere removes matching sessions and returns how many were deleted.
func (s *GormSessionStore) DeleteWhere(ctx context.Context, filter Filter) (int64, error) {
	if !filter.Scoped() {
		return 0, ErrUnscoped
	}
	result := applyFilter(s.db.WithContext(ctx), filter).Delete(&models.Session{})
	if result.Error != nil {
		return 0, unavailable("delete", result.Error)
	}
	return result.RowsAffected, nil
}

// Count returns the number of matching sessions.
func (s *GormSessionStore) Count(ctx context.Context, filter Filter) (int64, error) {
	var total int64
	if err := applyFilter(s.db.WithContext(ctx).Model(&models.Session{}), filter).Count(&total).Error; err != nil {
		return 0, unavailable("count", err)
	}
	return total, nil
}

// CountBy groups the user's sessions by dimension.
func (s *GormSessionStore) CountBy(ctx context.Context, userID string, dimension Dimension) (map[string]int64, error) {
	mapping, ok := dimensions[dimension]
	if !ok {
		return nil, unknownDimension(dimension)
	}

	var rows []struct {
		Bucket string
		Total  int64
	}
	query := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Select(mapping.column + " AS bucket, COUNT(*) AS total").
		Group(mapping.column)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, unavailable("count by "+string(dimension), err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Bucket] += row.Total
	}
	return counts, nil
}

// Ping checks the database connection.
func (s *GormSessionStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return unavailable("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func applyFilter(query *gorm.DB, filter Filter) *gorm.DB {
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.ExcludeID != "" {
		query = query.Where("id <> ?", filter.ExcludeID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Verified != nil {
		query = query.Where("security_is_verified = ?", *filter.Verified)
	}
	if len(filter.RiskLevels) > 0 {
		query = query.Where("security_risk_level IN ?", filter.RiskLevels)
	}
	if filter.MissingLocation {
		query = query.Where("location_country = ? AND location_ip_address = ?", "", "")
	}
	if !filter.ExpiresBefore.IsZero() {
		query = query.Where("expires_at < ?", filter.ExpiresBefore.UTC())
	}
	if !filter.ExpiresAfter.IsZero() {
		query = query.Where("expires_at > ?", filter.ExpiresAfter.UTC())
	}
	if !filter.CreatedAfter.IsZero() {
		query = query.Where("created_at >= ?", filter.CreatedAfter.UTC())
	}
	return query
}

func updateColumns(update Update) map[string]any {
	columns := make(map[string]any, 5)
	if update.LastAccessedAt != nil {
		columns["last_accessed_at"] = update.LastAccessedAt.UTC()
	}
	if update.Status != nil {
		columns["status"] = *update.Status
	}
	if update.IsActive != nil {
		columns["is_active"] = *update.IsActive
	}
	if update.ExpiresAt != nil {
		columns["expires_at"] = update.ExpiresAt.UTC()
	}
	if update.LastSecurityCheck != nil {
		columns["security_last_security_check"] = update.LastSecurityCheck.UTC()
	}
	return columns
}

func utcNow() time.Time { return time.Now().UTC() }
