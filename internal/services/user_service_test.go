package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/database/testutil"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
	apperrors "github.com/bhagwatcoding/cms-winfoa-sub000/pkg/errors"
)

func newUserFixture(t *testing.T) (*UserService, *gorm.DB) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	svc, err := NewUserService(db, audit)
	require.NoError(t, err)
	return svc, db
}

func TestUserServiceCreateAndFind(t *testing.T) {
	svc, db := newUserFixture(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{Email: " Admin@Example.com ", Name: "Admin", Password: "correct-horse"})
	require.NoError(t, err)
	require.Equal(t, "admin@example.com", user.Email)
	require.NotEqual(t, "correct-horse", user.Password)

	found, err := svc.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, found.Email)

	_, err = svc.FindUserByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, ErrUserNotFound)
	_, err = svc.FindUserByID(ctx, " ")
	require.ErrorIs(t, err, ErrUserNotFound)

	var audits int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("action = ?", "user.create").Count(&audits).Error)
	require.EqualValues(t, 1, audits)
}

func TestUserServiceCreateRejectsInvalidInput(t *testing.T) {
	svc, _ := newUserFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserInput{Password: "long-enough"})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateUserInput{Email: "a@example.com", Password: "short"})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateUserInput{Email: "a@example.com", Password: "long-enough"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateUserInput{Email: "A@example.com", Password: "long-enough"})
	require.ErrorIs(t, err, ErrUserExists)
}

func TestUserServiceEnsureUserIsIdempotent(t *testing.T) {
	svc, _ := newUserFixture(t)
	ctx := context.Background()
	input := CreateUserInput{Email: "admin@example.com", Password: "correct-horse"}

	first, created, err := svc.EnsureUser(ctx, input)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := svc.EnsureUser(ctx, input)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
}

func TestUserServiceAuthenticate(t *testing.T) {
	svc, db := newUserFixture(t)
	ctx := context.Background()
	login := LoginContext{IPAddress: "10.0.0.9", UserAgent: "test"}

	user, err := svc.Create(ctx, CreateUserInput{Email: "user@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	authed, err := svc.Authenticate(ctx, "USER@example.com", "correct-horse", login)
	require.NoError(t, err)
	require.Equal(t, user.ID, authed.ID)
	require.NotNil(t, authed.LastLoginAt)
	require.Equal(t, "10.0.0.9", authed.LastLoginIP)

	_, err = svc.Authenticate(ctx, "user@example.com", "wrong-password", login)
	require.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))

	_, err = svc.Authenticate(ctx, "nobody@example.com", "correct-horse", login)
	require.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)
	_, err = svc.Authenticate(ctx, "user@example.com", "correct-horse", login)
	require.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))

	var failures int64
	require.NoError(t, db.Model(&models.AuditLog{}).
		Where("action = ? AND result = ?", "auth.login", "failure").
		Count(&failures).Error)
	require.EqualValues(t, 3, failures)
}
