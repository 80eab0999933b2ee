package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/store"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/logger"
)

// DefaultRiskLookback is how far back session history counts as "seen before".
const DefaultRiskLookback = 7 * 24 * time.Hour

// Points added per risk factor.
const (
	pointsUnclassifiedDevice = 20
	pointsMissingBrowser     = 15
	pointsMissingOS          = 10
	pointsMissingCountry     = 25
	pointsMissingIP          = 20
	pointsNewDevice          = 30
	pointsNewLocation        = 25

	scoreUnknownUser = 100
)

// Tier thresholds, checked from the top.
const (
	thresholdCritical = 70
	thresholdHigh     = 50
	thresholdMedium   = 30
)

// Risk flags explain which factors contributed to a score.
const (
	FlagUnknownUser        = "unknown_user"
	FlagUnclassifiedDevice = "unclassified_device"
	FlagMissingBrowser     = "missing_browser"
	FlagMissingOS          = "missing_os"
	FlagMissingCountry     = "missing_country"
	FlagMissingIP          = "missing_ip"
	FlagNewDevice          = "new_device"
	FlagNewLocation        = "new_location"
	// FlagHistoryUnavailable adds no points; novelty was assumed.
	FlagHistoryUnavailable = "history_unavailable"
)

// RiskAssessment is the outcome of scoring one login.
type RiskAssessment struct {
	Score int
	Level models.RiskLevel
	Flags []string
}

// Verified reports whether the assessment is trusted without further checks.
func (a RiskAssessment) Verified() bool {
	return a.Level == models.RiskLevelLow
}

// RiskAssessor scores a login attempt.
type RiskAssessor interface {
	Assess(ctx context.Context, userID string, device DeviceSignal, location LocationSignal) RiskAssessment
}

// UserLookup resolves identities. Any error is treated as an unknown user.
type UserLookup interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// RiskConfig tunes the RiskEngine.
type RiskConfig struct {
	Lookback time.Duration
	Clock    func() time.Time
}

// RiskEngine scores logins from signal completeness and novelty against the
// user's recent sessions.
type RiskEngine struct {
	users    UserLookup
	sessions store.SessionStore
	lookback time.Duration
	now      func() time.Time
	log      *zap.Logger
}

var _ RiskAssessor = (*RiskEngine)(nil)

// NewRiskEngine constructs a RiskEngine.
func NewRiskEngine(users UserLookup, sessions store.SessionStore, cfg RiskConfig) (*RiskEngine, error) {
	if users == nil {
		return nil, errors.New("risk engine: user lookup is required")
	}
	if sessions == nil {
		return nil, errors.New("risk engine: session store is required")
	}

	lookback := cfg.Lookback
	if lookback <= 0 {
		lookback = DefaultRiskLookback
	}
	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &RiskEngine{
		users:    users,
		sessions: sessions,
		lookback: lookback,
		now:      clock,
		log:      logger.WithModule("risk"),
	}, nil
}

// Assess never fails: an unresolvable user scores as critical and an unreadable
// history counts as empty.
func (e *RiskEngine) Assess(ctx context.Context, userID string, device DeviceSignal, location LocationSignal) RiskAssessment {
	ctx = ensureContext(ctx)

	user, err := e.users.FindUserByID(ctx, userID)
	if err != nil || user == nil {
		if err != nil {
			e.log.Warn("identity lookup failed during risk assessment", zap.String("user_id", userID), zap.Error(err))
		}
		return RiskAssessment{
			Score: scoreUnknownUser,
			Level: models.RiskLevelCritical,
			Flags: []string{FlagUnknownUser},
		}
	}

	var b scoreBuilder
	b.addIf(!device.Type.Classified(), pointsUnclassifiedDevice, FlagUnclassifiedDevice)
	b.addIf(device.Browser == "", pointsMissingBrowser, FlagMissingBrowser)
	b.addIf(device.OS == "", pointsMissingOS, FlagMissingOS)
	b.addIf(location.Country == "", pointsMissingCountry, FlagMissingCountry)
	b.addIf(location.IPAddress == "", pointsMissingIP, FlagMissingIP)

	history, err := e.sessions.FindWhere(ctx, store.Filter{
		UserID:       userID,
		CreatedAfter: e.now().Add(-e.lookback),
	})
	if err != nil {
		e.log.Warn("session history unavailable, assuming new device and location",
			zap.String("user_id", userID), zap.Error(err))
		history = nil
		b.flags = append(b.flags, FlagHistoryUnavailable)
	}

	b.addIf(!deviceSeen(history, device), pointsNewDevice, FlagNewDevice)
	b.addIf(!locationSeen(history, location), pointsNewLocation, FlagNewLocation)

	return RiskAssessment{Score: b.score, Level: ClassifyRisk(b.score), Flags: b.flags}
}

// ClassifyRisk maps a score onto a tier.
func ClassifyRisk(score int) models.RiskLevel {
	switch {
	case score >= thresholdCritical:
		return models.RiskLevelCritical
	case score >= thresholdHigh:
		return models.RiskLevelHigh
	case score >= thresholdMedium:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}

type scoreBuilder struct {
	score int
	flags []string
}

func (b *scoreBuilder) addIf(cond bool, points int, flag string) {
	if !cond {
		return
	}
	b.score += points
	b.flags = append(b.flags, flag)
}

// deviceSeen needs a known OS so that withholding the OS can never make a device look familiar.
func deviceSeen(history []models.Session, device DeviceSignal) bool {
	if device.OS == "" {
		return false
	}
	for _, s := range history {
		if s.Device.UserAgent == device.UserAgent && s.Device.OS == device.OS {
			return true
		}
	}
	return false
}

// locationSeen needs a known country for the same reason.
func locationSeen(history []models.Session, location LocationSignal) bool {
	if location.Country == "" {
		return false
	}
	for _, s := range history {
		if s.Location.Country == location.Country && s.Location.City == location.City {
			return true
		}
	}
	return false
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
