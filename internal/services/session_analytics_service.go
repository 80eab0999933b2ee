package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/store"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/logger"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/metrics"
)

const (
	recentActivityLimit = 10
	unknownBucket       = "unknown"

	// RecommendReviewHighRisk is shown whenever high or critical sessions exist.
	RecommendReviewHighRisk = "Review high-risk sessions"
	// RecommendVerifyDevices is shown when sessions were opened without a low risk rating.
	RecommendVerifyDevices = "Confirm sessions opened from unrecognised devices or locations"
	// RecommendPruneSessions is shown when many sessions are live at once.
	RecommendPruneSessions = "Sign out of sessions you no longer use"

	manyLiveSessions = 5
)

// Dashboard section names reported in SessionDashboard.Degraded.
const (
	SectionStats     = "stats"
	SectionDevices   = "devices"
	SectionLocations = "locations"
	SectionSecurity  = "security"
)

// ActivitySummary is a short description of one session for activity feeds.
type ActivitySummary struct {
	SessionID      string               `json:"session_id"`
	Device         string               `json:"device"`
	Location       string               `json:"location"`
	Status         models.SessionStatus `json:"status"`
	RiskLevel      models.RiskLevel     `json:"risk_level"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
}

// SessionStats summarises a user's sessions.
type SessionStats struct {
	TotalSessions   int64             `json:"total_sessions"`
	ActiveSessions  int64             `json:"active_sessions"`
	ExpiredSessions int64             `json:"expired_sessions"`
	RevokedSessions int64             `json:"revoked_sessions"`
	ByDeviceType    map[string]int64  `json:"by_device_type"`
	ByRiskLevel     map[string]int64  `json:"by_risk_level"`
	ByStatus        map[string]int64  `json:"by_status"`
	RecentActivity  []ActivitySummary `json:"recent_activity"`
}

func newSessionStats() SessionStats {
	return SessionStats{
		ByDeviceType:   map[string]int64{},
		ByRiskLevel:    map[string]int64{},
		ByStatus:       map[string]int64{},
		RecentActivity: []ActivitySummary{},
	}
}

// DeviceAnalytics describes the devices a user signs in from.
type DeviceAnalytics struct {
	UniqueDevices     int              `json:"unique_devices"`
	ByType            map[string]int64 `json:"by_type"`
	ByOS              map[string]int64 `json:"by_os"`
	ByBrowser         map[string]int64 `json:"by_browser"`
	TrustedDevices    int64            `json:"trusted_devices"`
	SuspiciousDevices int64            `json:"suspicious_devices"`
}

func newDeviceAnalytics() DeviceAnalytics {
	return DeviceAnalytics{
		ByType:    map[string]int64{},
		ByOS:      map[string]int64{},
		ByBrowser: map[string]int64{},
	}
}

// LocationAnalytics describes where a user signs in from.
type LocationAnalytics struct {
	UniqueCountries     int              `json:"unique_countries"`
	UniqueCities        int              `json:"unique_cities"`
	ByCountry           map[string]int64 `json:"by_country"`
	ByCity              map[string]int64 `json:"by_city"`
	ByTimezone          map[string]int64 `json:"by_timezone"`
	SuspiciousLocations int64            `json:"suspicious_locations"`
}

func newLocationAnalytics() LocationAnalytics {
	return LocationAnalytics{
		ByCountry:  map[string]int64{},
		ByCity:     map[string]int64{},
		ByTimezone: map[string]int64{},
	}
}

// SecurityAnalytics summarises risk ratings.
type SecurityAnalytics struct {
	VerifiedSessions   int64            `json:"verified_sessions"`
	UnverifiedSessions int64            `json:"unverified_sessions"`
	HighRiskSessions   int64            `json:"high_risk_sessions"`
	ByLoginMethod      map[string]int64 `json:"by_login_method"`
	Recommendations    []string         `json:"recommendations"`
}

func newSecurityAnalytics() SecurityAnalytics {
	return SecurityAnalytics{
		ByLoginMethod:   map[string]int64{},
		Recommendations: []string{},
	}
}

// SessionDashboard bundles every analytics section. Degraded names the sections
// that could not be computed and hold zero values.
type SessionDashboard struct {
	Stats       SessionStats      `json:"stats"`
	Devices     DeviceAnalytics   `json:"devices"`
	Locations   LocationAnalytics `json:"locations"`
	Security    SecurityAnalytics `json:"security"`
	Degraded    []string          `json:"degraded"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// CleanupResult reports how many rows a cleanup sweep removed.
type CleanupResult struct {
	Expired int64 `json:"expired"`
	Revoked int64 `json:"revoked"`
	Total   int64 `json:"total"`
}

// SessionAnalyticsConfig tunes the analytics service.
type SessionAnalyticsConfig struct {
	Clock func() time.Time
}

// SessionAnalyticsService aggregates the session store for reporting and runs cleanup.
// Read methods never fail hard: they return a zeroed value together with an error
// wrapping store.ErrUnavailable.
type SessionAnalyticsService struct {
	sessions store.SessionStore
	now      func() time.Time
	log      *zap.Logger
}

// NewSessionAnalyticsService constructs the analytics service.
func NewSessionAnalyticsService(sessions store.SessionStore, cfg SessionAnalyticsConfig) (*SessionAnalyticsService, error) {
	if sessions == nil {
		return nil, errors.New("session analytics: session store is required")
	}
	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}
	return &SessionAnalyticsService{
		sessions: sessions,
		now:      func() time.Time { return clock().UTC() },
		log:      logger.WithModule("analytics"),
	}, nil
}

// GetSessionStats counts the user's sessions by state, device type, risk and status.
func (s *SessionAnalyticsService) GetSessionStats(ctx context.Context, userID string) (SessionStats, error) {
	ctx = ensureContext(ctx)
	now := s.now()
	stats := newSessionStats()
	c := counter{ctx: ctx, sessions: s.sessions, userID: userID}

	stats.TotalSessions = c.count(store.Filter{UserID: userID})
	stats.ActiveSessions = c.count(store.LiveFilter(userID, now))
	stats.ExpiredSessions = c.count(store.Filter{UserID: userID, Status: models.SessionStatusActive, ExpiresBefore: now}) +
		c.count(store.Filter{UserID: userID, Status: models.SessionStatusExpired})
	stats.RevokedSessions = c.count(store.Filter{UserID: userID, Status: models.SessionStatusRevoked})
	stats.ByDeviceType = c.by(store.DimensionDeviceType)
	stats.ByRiskLevel = c.by(store.DimensionRiskLevel)
	stats.ByStatus = c.by(store.DimensionStatus)

	if c.err == nil {
		recent, err := s.sessions.FindByUser(ctx, userID)
		if err != nil {
			c.err = err
		} else {
			stats.RecentActivity = summarise(recent, now, recentActivityLimit)
		}
	}

	if c.err != nil {
		return newSessionStats(), s.degrade(SectionStats, userID, c.err)
	}
	return stats, nil
}

// GetDeviceAnalytics reports device diversity and the trusted vs suspicious split.
// A device is trusted when its type could be classified.
func (s *SessionAnalyticsService) GetDeviceAnalytics(ctx context.Context, userID string) (DeviceAnalytics, error) {
	ctx = ensureContext(ctx)
	out := newDeviceAnalytics()
	c := counter{ctx: ctx, sessions: s.sessions, userID: userID}

	byType := c.by(store.DimensionDeviceType)
	names := c.by(store.DimensionDeviceName)
	out.ByOS = c.by(store.DimensionDeviceOS)
	out.ByBrowser = c.by(store.DimensionDeviceBrowser)
	if c.err != nil {
		return newDeviceAnalytics(), s.degrade(SectionDevices, userID, c.err)
	}

	out.ByType = byType
	out.UniqueDevices = len(names)
	for kind, total := range byType {
		if models.DeviceType(kind).Classified() {
			out.TrustedDevices += total
		} else {
			out.SuspiciousDevices += total
		}
	}
	return out, nil
}

// GetLocationAnalytics reports geographic spread. A location is suspicious when
// neither country nor IP were captured.
func (s *SessionAnalyticsService) GetLocationAnalytics(ctx context.Context, userID string) (LocationAnalytics, error) {
	ctx = ensureContext(ctx)
	out := newLocationAnalytics()
	c := counter{ctx: ctx, sessions: s.sessions, userID: userID}

	out.ByCountry = c.by(store.DimensionCountry)
	out.ByCity = c.by(store.DimensionCity)
	out.ByTimezone = c.by(store.DimensionTimezone)
	out.SuspiciousLocations = c.count(store.Filter{UserID: userID, MissingLocation: true})
	if c.err != nil {
		return newLocationAnalytics(), s.degrade(SectionLocations, userID, c.err)
	}

	out.UniqueCountries = knownBuckets(out.ByCountry)
	out.UniqueCities = knownBuckets(out.ByCity)
	return out, nil
}

// GetSecurityAnalytics reports verification and risk, with recommendations.
func (s *SessionAnalyticsService) GetSecurityAnalytics(ctx context.Context, userID string) (SecurityAnalytics, error) {
	ctx = ensureContext(ctx)
	out := newSecurityAnalytics()
	c := counter{ctx: ctx, sessions: s.sessions, userID: userID}

	out.VerifiedSessions = c.count(store.Filter{UserID: userID, Verified: store.Bool(true)})
	out.UnverifiedSessions = c.count(store.Filter{UserID: userID, Verified: store.Bool(false)})
	out.HighRiskSessions = c.count(store.Filter{
		UserID:     userID,
		RiskLevels: []models.RiskLevel{models.RiskLevelHigh, models.RiskLevelCritical},
	})
	out.ByLoginMethod = c.by(store.DimensionLoginMethod)
	live := c.count(store.LiveFilter(userID, s.now()))
	if c.err != nil {
		return newSecurityAnalytics(), s.degrade(SectionSecurity, userID, c.err)
	}

	if out.HighRiskSessions > 0 {
		out.Recommendations = append(out.Recommendations, RecommendReviewHighRisk)
	}
	if out.UnverifiedSessions > 0 {
		out.Recommendations = append(out.Recommendations, RecommendVerifyDevices)
	}
	if live > manyLiveSessions {
		out.Recommendations = append(out.Recommendations, RecommendPruneSessions)
	}
	return out, nil
}

// GetSessionDashboard bundles every section. It never fails; sections that could
// not be computed are zeroed and listed in Degraded.
func (s *SessionAnalyticsService) GetSessionDashboard(ctx context.Context, userID string) SessionDashboard {
	dashboard := SessionDashboard{Degraded: []string{}, GeneratedAt: s.now()}

	var err error
	if dashboard.Stats, err = s.GetSessionStats(ctx, userID); err != nil {
		dashboard.Degraded = append(dashboard.Degraded, SectionStats)
	}
	if dashboard.Devices, err = s.GetDeviceAnalytics(ctx, userID); err != nil {
		dashboard.Degraded = append(dashboard.Degraded, SectionDevices)
	}
	if dashboard.Locations, err = s.GetLocationAnalytics(ctx, userID); err != nil {
		dashboard.Degraded = append(dashboard.Degraded, SectionLocations)
	}
	if dashboard.Security, err = s.GetSecurityAnalytics(ctx, userID); err != nil {
		dashboard.Degraded = append(dashboard.Degraded, SectionSecurity)
	}
	return dashboard
}

// CleanupExpiredSessions deletes expired rows, then revoked rows. Live sessions are
// never matched, so repeated or concurrent runs converge.
func (s *SessionAnalyticsService) CleanupExpiredSessions(ctx context.Context) (CleanupResult, error) {
	ctx = ensureContext(ctx)
	now := s.now()

	var (
		result CleanupResult
		errs   error
	)

	expired, err := s.sessions.DeleteWhere(ctx, store.Filter{ExpiresBefore: now})
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("delete expired sessions: %w", err))
	}
	result.Expired = expired

	revoked, err := s.sessions.DeleteWhere(ctx, store.Filter{
		Status:   models.SessionStatusRevoked,
		IsActive: store.Bool(false),
	})
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("delete revoked sessions: %w", err))
	}
	result.Revoked = revoked
	result.Total = result.Expired + result.Revoked

	metrics.SessionsCleaned.WithLabelValues("expired").Add(float64(result.Expired))
	metrics.SessionsCleaned.WithLabelValues("revoked").Add(float64(result.Revoked))

	if errs != nil {
		s.log.Warn("session cleanup incomplete", zap.Int64("deleted", result.Total), zap.Error(errs))
		return result, fmt.Errorf("session analytics: cleanup: %w", errs)
	}
	s.log.Info("session cleanup finished",
		zap.Int64("expired", result.Expired),
		zap.Int64("revoked", result.Revoked),
	)
	return result, nil
}

func (s *SessionAnalyticsService) degrade(section, userID string, err error) error {
	s.log.Warn("analytics section degraded",
		zap.String("section", section),
		zap.String("user_id", userID),
		zap.Error(err),
	)
	if !errors.Is(err, store.ErrUnavailable) {
		err = fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	return fmt.Errorf("session analytics: %s: %w", section, err)
}

// counter runs store counts and remembers the first failure, after which it stops querying.
type counter struct {
	ctx      context.Context
	sessions store.SessionStore
	userID   string
	err      error
}

func (c *counter) count(filter store.Filter) int64 {
	if c.err != nil {
		return 0
	}
	total, err := c.sessions.Count(c.ctx, filter)
	if err != nil {
		c.err = err
		return 0
	}
	return total
}

func (c *counter) by(dimension store.Dimension) map[string]int64 {
	if c.err != nil {
		return map[string]int64{}
	}
	raw, err := c.sessions.CountBy(c.ctx, c.userID, dimension)
	if err != nil {
		c.err = err
		return map[string]int64{}
	}
	out := make(map[string]int64, len(raw))
	for key, total := range raw {
		if key == "" {
			key = unknownBucket
		}
		out[key] += total
	}
	return out
}

func knownBuckets(buckets map[string]int64) int {
	n := 0
	for key := range buckets {
		if key != unknownBucket {
			n++
		}
	}
	return n
}

func summarise(sessions []models.Session, now time.Time, limit int) []ActivitySummary {
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	out := make([]ActivitySummary, 0, len(sessions))
	for i := range sessions {
		session := &sessions[i]
		out = append(out, ActivitySummary{
			SessionID:      session.ID,
			Device:         session.Device.Label(),
			Location:       session.Location.Label(),
			Status:         session.EffectiveStatus(now),
			RiskLevel:      session.Security.RiskLevel,
			CreatedAt:      session.CreatedAt,
			LastAccessedAt: session.LastAccessedAt,
		})
	}
	return out
}
