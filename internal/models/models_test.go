package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	require.NoError(t, base.BeforeCreate(nil))
	require.NotEmpty(t, base.ID)

	id := base.ID
	base.EnsureID()
	require.Equal(t, id, base.ID, "existing id must be kept")
}

func TestSessionIsLive(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	live := Session{
		Status:    SessionStatusActive,
		IsActive:  true,
		ExpiresAt: now.Add(time.Hour),
	}
	require.True(t, live.IsLive(now))

	cases := map[string]func(s *Session){
		"revoked":  func(s *Session) { s.Status = SessionStatusRevoked; s.IsActive = false },
		"inactive": func(s *Session) { s.IsActive = false },
		"expired":  func(s *Session) { s.ExpiresAt = now },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := live
			mutate(&s)
			require.False(t, s.IsLive(now))
		})
	}

	var missing *Session
	require.False(t, missing.IsLive(now))
}

func TestSessionEffectiveStatus(t *testing.T) {
	now := time.Now()
	s := Session{Status: SessionStatusActive, ExpiresAt: now.Add(-time.Second)}
	require.Equal(t, SessionStatusExpired, s.EffectiveStatus(now))

	s.Status = SessionStatusRevoked
	require.Equal(t, SessionStatusRevoked, s.EffectiveStatus(now))
}

func TestEnumsAreClosed(t *testing.T) {
	require.True(t, SessionStatusExpired.Valid())
	require.False(t, SessionStatus("paused").Valid())

	for _, level := range RiskLevels {
		require.True(t, level.Valid())
	}
	require.False(t, RiskLevel("severe").Valid())
	require.True(t, RiskLevelCritical.Elevated())
	require.False(t, RiskLevelMedium.Elevated())

	require.True(t, LoginMethodSSO.Valid())
	require.False(t, LoginMethod("").Valid())

	require.True(t, DeviceTypeTablet.Classified())
	require.False(t, DeviceTypeBot.Classified())
	require.False(t, DeviceType("").Classified())
}

func TestLabels(t *testing.T) {
	require.Equal(t, "Chrome on Linux", DeviceInfo{Browser: "Chrome", OS: "Linux"}.Label())
	require.Equal(t, "Pixel 8", DeviceInfo{Name: "Pixel 8"}.Label())
	require.Equal(t, "Unknown device", DeviceInfo{}.Label())

	require.Equal(t, "Pune, IN", LocationInfo{City: "Pune", Country: "IN"}.Label())
	require.Equal(t, "IN", LocationInfo{Country: "IN"}.Label())
	require.Equal(t, "Unknown location", LocationInfo{}.Label())
}

func TestCacheEntryExpired(t *testing.T) {
	now := time.Now()
	require.False(t, CacheEntry{}.Expired(now))
	require.True(t, CacheEntry{ExpiresAt: now.Add(-time.Second)}.Expired(now))
	require.False(t, CacheEntry{ExpiresAt: now.Add(time.Second)}.Expired(now))
}
