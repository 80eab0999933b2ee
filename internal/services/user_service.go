package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/database"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/crypto"
	apperrors "github.com/bhagwatcoding/cms-winfoa-sub000/pkg/errors"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrUserExists is returned when the email is already registered.
	ErrUserExists = apperrors.New("USER_EXISTS", "A user with this email already exists", http.StatusConflict)
)

// CreateUserInput describes the fields accepted when creating a user.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
}

// LoginContext carries request details recorded with an authentication attempt.
type LoginContext struct {
	IPAddress string
	UserAgent string
}

// UserService resolves identities and checks credentials.
type UserService struct {
	db           *gorm.DB
	auditService *AuditService
	now          func() time.Time
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, auditService *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{
		db:           db,
		auditService: auditService,
		now:          time.Now,
	}, nil
}

// FindUserByID loads a user by primary key.
func (s *UserService) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: find user: %w", err)
	}
	return &user, nil
}

// Authenticate verifies credentials. Unknown emails, inactive accounts and wrong
// passwords all yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string, login LoginContext) (*models.User, error) {
	ctx = ensureContext(ctx)
	email = normaliseEmail(email)

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.recordLoginFailure(ctx, "", email, "unknown_email", login)
		return nil, apperrors.ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	if !user.IsActive {
		s.recordLoginFailure(ctx, user.ID, email, "inactive", login)
		return nil, apperrors.ErrInvalidCredentials
	}
	if !crypto.VerifyPassword(user.Password, password) {
		s.recordLoginFailure(ctx, user.ID, email, "bad_password", login)
		return nil, apperrors.ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"last_login_at": now,
		"last_login_ip": login.IPAddress,
	}).Error; err != nil {
		return nil, fmt.Errorf("user service: record login: %w", err)
	}
	user.LastLoginAt = &now
	user.LastLoginIP = login.IPAddress

	return &user, nil
}

// EnsureUser creates the user when the email is not registered yet. It reports
// whether a row was created.
func (s *UserService) EnsureUser(ctx context.Context, input CreateUserInput) (*models.User, bool, error) {
	ctx = ensureContext(ctx)

	email := normaliseEmail(input.Email)
	if email == "" {
		return nil, false, errors.New("user service: email is required")
	}

	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("user service: load user: %w", err)
	}

	user, err := s.Create(ctx, input)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// Create provisions a new user with a hashed password.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := normaliseEmail(input.Email)
	if email == "" {
		return nil, errors.New("user service: email is required")
	}
	if len(input.Password) < 8 {
		return nil, errors.New("user service: password must be at least 8 characters")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Name:     strings.TrimSpace(input.Name),
		Password: hashed,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:     user.ID,
		Action:     "user.create",
		Resource:   "user",
		ResourceID: user.ID,
		Metadata:   map[string]any{"email": email},
	})
	return user, nil
}

func (s *UserService) recordLoginFailure(ctx context.Context, userID, email, reason string, login LoginContext) {
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:    userID,
		Action:    "auth.login",
		Resource:  "user",
		Result:    "failure",
		IPAddress: login.IPAddress,
		UserAgent: login.UserAgent,
		Metadata:  map[string]any{"email": email, "reason": reason},
	})
}
