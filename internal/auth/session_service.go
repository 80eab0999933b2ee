package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/services"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/store"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/logger"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/metrics"
)

const (
	// DefaultSessionDuration is the lifetime of a session unless extended.
	DefaultSessionDuration = 30 * 24 * time.Hour
	// DefaultStoreTimeout bounds every store call made while serving a request.
	DefaultStoreTimeout = 5 * time.Second
)

var (
	// ErrSessionNotFound indicates that no session matches the identifier or cookie.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrNotOwner is returned when a user acts on another user's session.
	ErrNotOwner = errors.New("session: not owned by requester")
)

// AuditSink receives session activity. Failures never affect the session outcome.
type AuditSink interface {
	Log(ctx context.Context, entry services.AuditEntry) error
}

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	Duration     time.Duration
	StoreTimeout time.Duration
	Cookie       CookieConfig
	Clock        func() time.Time
	Probe        Probe
	Risk         RiskAssessor
	Audit        AuditSink
}

// SessionService manages the cookie-bound session lifecycle:
// created, active, then revoked or expired.
type SessionService struct {
	sessions     store.SessionStore
	cookies      cookieJar
	duration     time.Duration
	storeTimeout time.Duration
	now          func() time.Time
	probe        Probe
	risk         RiskAssessor
	audit        AuditSink
	log          *zap.Logger
}

// NewSessionService constructs a session manager.
func NewSessionService(sessions store.SessionStore, sealer *Sealer, cfg SessionConfig) (*SessionService, error) {
	if sessions == nil {
		return nil, errors.New("session service: session store is required")
	}
	if sealer == nil {
		return nil, errors.New("session service: cookie sealer is required")
	}
	if cfg.Risk == nil {
		return nil, errors.New("session service: risk assessor is required")
	}

	duration := cfg.Duration
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}
	probe := cfg.Probe
	if probe == nil {
		probe = HeaderProbe{DirectOnly: true}
	}

	return &SessionService{
		sessions:     sessions,
		cookies:      cookieJar{cfg: cfg.Cookie.withDefaults(), sealer: sealer},
		duration:     duration,
		storeTimeout: timeout,
		now:          func() time.Time { return clock().UTC() },
		probe:        probe,
		risk:         cfg.Risk,
		audit:        cfg.Audit,
		log:          logger.WithModule("sessions"),
	}, nil
}

// CookieName returns the configured session cookie name.
func (s *SessionService) CookieName() string {
	return s.cookies.cfg.Name
}

// CreateSession scores the login, persists a session and binds it to the response cookie.
func (s *SessionService) CreateSession(w http.ResponseWriter, r *http.Request, userID string, method models.LoginMethod) (*models.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("session service: user id is required")
	}
	if r == nil {
		return nil, errors.New("session service: request is required")
	}
	if method == "" {
		method = models.LoginMethodPassword
	}
	if !method.Valid() {
		return nil, fmt.Errorf("session service: unsupported login method %q", method)
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	device, location := s.probe.Probe(r)
	assessment := s.risk.Assess(ctx, userID, device, location)

	token, err := GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("session service: %w", err)
	}

	now := s.now()
	session := &models.Session{
		BaseModel:      models.BaseModel{CreatedAt: now, UpdatedAt: now},
		UserID:         userID,
		TokenHash:      HashToken(token),
		Status:         models.SessionStatusActive,
		IsActive:       true,
		ExpiresAt:      now.Add(s.duration),
		LastAccessedAt: now,
		Device:         device.snapshot(),
		Location:       location.snapshot(),
		Security: models.SecurityInfo{
			LoginMethod:       method,
			RiskScore:         assessment.Score,
			RiskLevel:         assessment.Level,
			IsVerified:        assessment.Verified(),
			LastSecurityCheck: now,
		},
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("session service: create session: %w", err)
	}

	if err := s.cookies.write(w, token, session.ExpiresAt, now); err != nil {
		// The row is unusable without its cookie; retire it before reporting.
		if revokeErr := s.sessions.UpdateFields(ctx, session.ID, store.Revocation()); revokeErr != nil {
			s.log.Warn("failed to retire orphaned session", zap.String("session_id", session.ID), zap.Error(revokeErr))
		}
		return nil, fmt.Errorf("session service: set cookie: %w", err)
	}

	metrics.SessionsCreated.WithLabelValues(string(assessment.Level)).Inc()
	metrics.ActiveSessions.Inc()

	s.log.Info("session created",
		zap.String("user_id", userID),
		zap.String("session_id", session.ID),
		logger.TokenFingerprint(session.TokenHash),
		zap.Int("risk_score", assessment.Score),
		zap.String("risk_level", string(assessment.Level)),
		zap.Strings("risk_flags", assessment.Flags),
	)

	s.recordAudit(ctx, sessionAuditEntry(session, "session.login", map[string]any{
		"risk_score":   assessment.Score,
		"risk_level":   assessment.Level,
		"risk_flags":   assessment.Flags,
		"login_method": method,
	}))
	return session, nil
}

// GetCurrentSession returns the live session bound to the request cookie, or nil.
// Absent, tampered, unknown, expired and revoked cookies are indistinguishable
// to the caller, as are store failures.
func (s *SessionService) GetCurrentSession(r *http.Request) *models.Session {
	session, _ := s.current(r)
	if session == nil {
		return nil
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	now := s.now()
	if err := s.sessions.UpdateFields(ctx, session.ID, store.Update{LastAccessedAt: &now}); err != nil {
		s.log.Debug("failed to record session access", zap.String("session_id", session.ID), zap.Error(err))
	} else {
		session.LastAccessedAt = now
	}
	return session
}

// current resolves the request cookie to a live session and its raw token.
func (s *SessionService) current(r *http.Request) (*models.Session, string) {
	token, err := s.cookies.read(r)
	if err != nil {
		if errors.Is(err, ErrInvalidSeal) {
			metrics.SessionLookups.WithLabelValues("unsealable").Inc()
		} else {
			metrics.SessionLookups.WithLabelValues("absent").Inc()
		}
		return nil, ""
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	hash := HashToken(token)
	session, err := s.sessions.FindByTokenHash(ctx, hash, store.Live(s.now()))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.SessionLookups.WithLabelValues("miss").Inc()
		} else {
			metrics.SessionLookups.WithLabelValues("error").Inc()
			s.log.Warn("session lookup failed", logger.TokenFingerprint(hash), zap.Error(err))
		}
		return nil, ""
	}

	metrics.SessionLookups.WithLabelValues("hit").Inc()
	return session, token
}

// ValidateToken reports whether rawToken belongs to a live session. It does not touch the session.
func (s *SessionService) ValidateToken(ctx context.Context, rawToken string) bool {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return false
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	_, err := s.sessions.FindByTokenHash(ctx, HashToken(rawToken), store.Live(s.now()))
	return err == nil
}

// ExtendSession pushes the current session's expiry to now + Duration and re-issues the cookie.
func (s *SessionService) ExtendSession(w http.ResponseWriter, r *http.Request) (*models.Session, error) {
	session, token := s.current(r)
	if session == nil {
		return nil, ErrSessionNotFound
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	now := s.now()
	expires := now.Add(s.duration)
	if err := s.sessions.UpdateFields(ctx, session.ID, store.Update{
		ExpiresAt:      &expires,
		LastAccessedAt: &now,
	}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("session service: extend session: %w", err)
	}
	session.ExpiresAt = expires
	session.LastAccessedAt = now

	if err := s.cookies.write(w, token, expires, now); err != nil {
		return nil, fmt.Errorf("session service: set cookie: %w", err)
	}

	s.recordAudit(ctx, sessionAuditEntry(session, "session.extend", map[string]any{
		"expires_at": expires,
	}))
	return session, nil
}

// InvalidateSession revokes session and clears the cookie. Calling it again is a no-op.
func (s *SessionService) InvalidateSession(ctx context.Context, w http.ResponseWriter, session *models.Session) error {
	s.cookies.clear(w)
	if session == nil {
		return nil
	}

	wasLive := session.IsLive(s.now())
	if err := s.revoke(ctx, session); err != nil {
		return err
	}
	if wasLive {
		metrics.SessionsRevoked.WithLabelValues("logout").Inc()
		metrics.ActiveSessions.Dec()
		s.recordAudit(ctx, sessionAuditEntry(session, "session.logout", nil))
	}
	return nil
}

// Logout invalidates the request's session, if any. The cookie is always cleared.
func (s *SessionService) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.current(r)
	if session == nil {
		s.cookies.clear(w)
		return nil
	}
	return s.InvalidateSession(r.Context(), w, session)
}

// RevokeSession revokes one of the requester's own sessions.
func (s *SessionService) RevokeSession(ctx context.Context, sessionID, requestingUserID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrSessionNotFound
	}

	lookupCtx, cancel := s.storeContext(ctx)
	defer cancel()

	session, err := s.sessions.FindByID(lookupCtx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("session service: load session: %w", err)
	}
	if session.UserID != requestingUserID {
		return ErrNotOwner
	}
	if session.Status == models.SessionStatusRevoked {
		return nil
	}

	wasLive := session.IsLive(s.now())
	if err := s.revoke(ctx, session); err != nil {
		return err
	}

	metrics.SessionsRevoked.WithLabelValues("user").Inc()
	if wasLive {
		metrics.ActiveSessions.Dec()
	}
	s.recordAudit(ctx, sessionAuditEntry(session, "session.revoke", nil))
	return nil
}

// RevokeAllSessions revokes every live session of the user except excludeSessionID.
func (s *SessionService) RevokeAllSessions(ctx context.Context, userID, excludeSessionID string) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, errors.New("session service: user id is required")
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	filter := store.LiveFilter(userID, s.now())
	filter.ExcludeID = strings.TrimSpace(excludeSessionID)

	revoked, err := s.sessions.UpdateWhere(ctx, filter, store.Revocation())
	if err != nil {
		return 0, fmt.Errorf("session service: revoke sessions: %w", err)
	}

	if revoked > 0 {
		metrics.SessionsRevoked.WithLabelValues("bulk").Add(float64(revoked))
		metrics.ActiveSessions.Sub(float64(revoked))
	}
	s.log.Info("sessions revoked", zap.String("user_id", userID), zap.Int64("count", revoked))
	s.recordAudit(ctx, services.AuditEntry{
		UserID:   userID,
		Action:   "session.revoke_all",
		Resource: "session",
		Metadata: map[string]any{"revoked": revoked, "kept_session_id": filter.ExcludeID},
	})
	return revoked, nil
}

// GetUserSessions lists the user's sessions, newest first.
func (s *SessionService) GetUserSessions(ctx context.Context, userID string) ([]models.Session, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	sessions, err := s.sessions.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("session service: list sessions: %w", err)
	}
	return sessions, nil
}

func (s *SessionService) revoke(ctx context.Context, session *models.Session) error {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	err := s.sessions.UpdateFields(ctx, session.ID, store.Revocation())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("session service: revoke session: %w", err)
	}
	session.Status = models.SessionStatusRevoked
	session.IsActive = false
	return nil
}

func (s *SessionService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ensureContext(ctx), s.storeTimeout)
}

func (s *SessionService) recordAudit(ctx context.Context, entry services.AuditEntry) {
	if s.audit == nil {
		return
	}
	if entry.Result == "" {
		entry.Result = "success"
	}
	if err := s.audit.Log(context.WithoutCancel(ensureContext(ctx)), entry); err != nil {
		s.log.Warn("failed to record audit entry", zap.String("action", entry.Action), zap.Error(err))
	}
}

func sessionAuditEntry(session *models.Session, action string, metadata map[string]any) services.AuditEntry {
	return services.AuditEntry{
		UserID:     session.UserID,
		Action:     action,
		Resource:   "session",
		ResourceID: session.ID,
		IPAddress:  session.Location.IPAddress,
		UserAgent:  session.Device.UserAgent,
		Metadata:   metadata,
	}
}
