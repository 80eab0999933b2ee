package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
)

var contractNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type sessionOption func(*models.Session)

func newTestSession(userID string, opts ...sessionOption) *models.Session {
	s := &models.Session{
		BaseModel:      models.BaseModel{ID: uuid.NewString(), CreatedAt: contractNow},
		UserID:         userID,
		TokenHash:      uuid.NewString(),
		Status:         models.SessionStatusActive,
		IsActive:       true,
		ExpiresAt:      contractNow.Add(24 * time.Hour),
		LastAccessedAt: contractNow,
		Device: models.DeviceInfo{
			Name:    "Chrome on Linux",
			Browser: "Chrome",
			OS:      "Linux",
			Type:    models.DeviceTypeDesktop,
		},
		Location: models.LocationInfo{Country: "IN", City: "Pune", Timezone: "Asia/Kolkata", IPAddress: "1.2.3.4"},
		Security: models.SecurityInfo{
			LoginMethod: models.LoginMethodPassword,
			RiskLevel:   models.RiskLevelLow,
			IsVerified:  true,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func createdAt(t time.Time) sessionOption {
	return func(s *models.Session) { s.CreatedAt = t }
}

func expiresAt(t time.Time) sessionOption {
	return func(s *models.Session) { s.ExpiresAt = t }
}

func revoked() sessionOption {
	return func(s *models.Session) {
		s.Status = models.SessionStatusRevoked
		s.IsActive = false
	}
}

func riskLevel(level models.RiskLevel) sessionOption {
	return func(s *models.Session) {
		s.Security.RiskLevel = level
		s.Security.IsVerified = level == models.RiskLevelLow
	}
}

// runSessionStoreContract exercises behaviour every SessionStore must share.
func runSessionStoreContract(t *testing.T, open func(t *testing.T) SessionStore) {
	ctx := context.Background()

	t.Run("create and lookup by hash", func(t *testing.T) {
		s := open(t)
		session := newTestSession(uuid.NewString())
		require.NoError(t, s.Create(ctx, session))

		found, err := s.FindByTokenHash(ctx, session.TokenHash, Live(contractNow))
		require.NoError(t, err)
		require.Equal(t, session.ID, found.ID)
		require.Equal(t, "Chrome", found.Device.Browser)
		require.Equal(t, "Pune", found.Location.City)
		require.Equal(t, models.RiskLevelLow, found.Security.RiskLevel)

		_, err = s.FindByTokenHash(ctx, "missing", LookupOptions{})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate hash", func(t *testing.T) {
		s := open(t)
		first := newTestSession(uuid.NewString())
		require.NoError(t, s.Create(ctx, first))

		second := newTestSession(first.UserID)
		second.TokenHash = first.TokenHash
		require.ErrorIs(t, s.Create(ctx, second), ErrDuplicate)
	})

	t.Run("live lookup skips expired and revoked", func(t *testing.T) {
		s := open(t)
		userID := uuid.NewString()
		expired := newTestSession(userID, expiresAt(contractNow.Add(-time.Minute)))
		gone := newTestSession(userID, revoked())
		require.NoError(t, s.Create(ctx, expired))
		require.NoError(t, s.Create(ctx, gone))

		_, err := s.FindByTokenHash(ctx, expired.TokenHash, Live(contractNow))
		require.ErrorIs(t, err, ErrNotFound)
		_, err = s.FindByTokenHash(ctx, gone.TokenHash, Live(contractNow))
		require.ErrorIs(t, err, ErrNotFound)

		found, err := s.FindByTokenHash(ctx, gone.TokenHash, LookupOptions{})
		require.NoError(t, err)
		require.Equal(t, models.SessionStatusRevoked, found.Status)
	})

	t.Run("find by user newest first", func(t *testing.T) {
		s := open(t)
		userID := uuid.NewString()
		older := newTestSession(userID, createdAt(contractNow.Add(-2*time.Hour)))
		newer := newTestSession(userID, createdAt(contractNow.Add(-time.Hour)))
		require.NoError(t, s.Create(ctx, older))
		require.NoError(t, s.Create(ctx, newer))
		require.NoError(t, s.Create(ctx, newTestSession(uuid.NewString())))

		sessions, err := s.FindByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		require.Equal(t, newer.ID, sessions[0].ID)
		require.Equal(t, older.ID, sessions[1].ID)

		recent, err := s.FindWhere(ctx, Filter{UserID: userID, CreatedAfter: contractNow.Add(-90 * time.Minute)})
		require.NoError(t, err)
		require.Len(t, recent, 1)
		require.Equal(t, newer.ID, recent[0].ID)
	})

	t.Run("update fields", func(t *testing.T) {
		s := open(t)
		session := newTestSession(uuid.NewString())
		require.NoError(t, s.Create(ctx, session))

		accessed := contractNow.Add(time.Hour)
		require.NoError(t, s.UpdateFields(ctx, session.ID, Update{LastAccessedAt: &accessed}))
		require.NoError(t, s.UpdateFields(ctx, session.ID, Revocation()))

		found, err := s.FindByID(ctx, session.ID)
		require.NoError(t, err)
		require.True(t, found.LastAccessedAt.Equal(accessed))
		require.Equal(t, models.SessionStatusRevoked, found.Status)
		require.False(t, found.IsActive)

		require.ErrorIs(t, s.UpdateFields(ctx, uuid.NewString(), Revocation()), ErrNotFound)
		require.NoError(t, s.UpdateFields(ctx, session.ID, Update{}))
	})

	t.Run("bulk update excludes one session", func(t *testing.T) {
		s := open(t)
		userID := uuid.NewString()
		keep := newTestSession(userID)
		other := newTestSession(userID)
		stranger := newTestSession(uuid.NewString())
		for _, session := range []*models.Session{keep, other, stranger} {
			require.NoError(t, s.Create(ctx, session))
		}

		filter := LiveFilter(userID, contractNow)
		filter.ExcludeID = keep.ID
		affected, err := s.UpdateWhere(ctx, filter, Revocation())
		require.NoError(t, err)
		require.EqualValues(t, 1, affected)

		live, err := s.Count(ctx, LiveFilter(userID, contractNow))
		require.NoError(t, err)
		require.EqualValues(t, 1, live)

		untouched, err := s.FindByID(ctx, stranger.ID)
		require.NoError(t, err)
		require.True(t, untouched.IsLive(contractNow))
	})

	t.Run("bulk operations need a filter", func(t *testing.T) {
		s := open(t)
		_, err := s.DeleteWhere(ctx, Filter{})
		require.ErrorIs(t, err, ErrUnscoped)
		_, err = s.UpdateWhere(ctx, Filter{ExcludeID: "x"}, Revocation())
		require.ErrorIs(t, err, ErrUnscoped)
	})

	t.Run("delete where", func(t *testing.T) {
		s := open(t)
		userID := uuid.NewString()
		live := newTestSession(userID)
		expired := newTestSession(userID, expiresAt(contractNow.Add(-time.Hour)))
		gone := newTestSession(userID, revoked())
		for _, session := range []*models.Session{live, expired, gone} {
			require.NoError(t, s.Create(ctx, session))
		}

		deleted, err := s.DeleteWhere(ctx, Filter{ExpiresBefore: contractNow})
		require.NoError(t, err)
		require.EqualValues(t, 1, deleted)

		deleted, err = s.DeleteWhere(ctx, Filter{Status: models.SessionStatusRevoked, IsActive: Bool(false)})
		require.NoError(t, err)
		require.EqualValues(t, 1, deleted)

		remaining, err := s.FindByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		require.Equal(t, live.ID, remaining[0].ID)
	})

	t.Run("count by dimension", func(t *testing.T) {
		s := open(t)
		userID := uuid.NewString()
		mobile := newTestSession(userID, riskLevel(models.RiskLevelHigh))
		mobile.Device.Type = models.DeviceTypeMobile
		for _, session := range []*models.Session{newTestSession(userID), newTestSession(userID), mobile} {
			require.NoError(t, s.Create(ctx, session))
		}
		require.NoError(t, s.Create(ctx, newTestSession(uuid.NewString())))

		byType, err := s.CountBy(ctx, userID, DimensionDeviceType)
		require.NoError(t, err)
		require.Equal(t, map[string]int64{"desktop": 2, "mobile": 1}, byType)

		byRisk, err := s.CountBy(ctx, userID, DimensionRiskLevel)
		require.NoError(t, err)
		require.Equal(t, map[string]int64{"low": 2, "high": 1}, byRisk)

		everyone, err := s.CountBy(ctx, "", DimensionCountry)
		require.NoError(t, err)
		require.Equal(t, map[string]int64{"IN": 4}, everyone)

		elevated, err := s.Count(ctx, Filter{UserID: userID, RiskLevels: []models.RiskLevel{models.RiskLevelHigh, models.RiskLevelCritical}})
		require.NoError(t, err)
		require.EqualValues(t, 1, elevated)

		verified, err := s.Count(ctx, Filter{UserID: userID, Verified: Bool(true)})
		require.NoError(t, err)
		require.EqualValues(t, 2, verified)

		_, err = s.CountBy(ctx, userID, Dimension("shoe_size"))
		require.Error(t, err)
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, open(t).Ping(ctx))
	})
}
