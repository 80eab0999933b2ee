package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/bhagwatcoding/cms-winfoa-sub000/internal/auth"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/services"
	apperrors "github.com/bhagwatcoding/cms-winfoa-sub000/pkg/errors"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/logger"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/response"
)

// SessionHandler exposes the signed-in user's sessions and their analytics.
type SessionHandler struct {
	sessions  *iauth.SessionService
	analytics *services.SessionAnalyticsService
	now       func() time.Time
	log       *zap.Logger
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(sessions *iauth.SessionService, analytics *services.SessionAnalyticsService) (*SessionHandler, error) {
	if sessions == nil {
		return nil, errors.New("session handler: session service is required")
	}
	if analytics == nil {
		return nil, errors.New("session handler: analytics service is required")
	}
	return &SessionHandler{
		sessions:  sessions,
		analytics: analytics,
		now:       time.Now,
		log:       logger.WithModule("http"),
	}, nil
}

// GET /api/sessions
func (h *SessionHandler) List(c *gin.Context) {
	current, ok := requireSession(c)
	if !ok {
		return
	}

	sessions, err := h.sessions.GetUserSessions(requestContext(c), current.UserID)
	if err != nil {
		h.log.Warn("list sessions failed", zap.String("user_id", current.UserID), zap.Error(err))
		response.Error(c, apperrors.ErrServiceUnavailable)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, newSessionView(&sessions[i], current.ID, h.now))
	}
	response.SuccessWithMeta(c, http.StatusOK, views, &response.Meta{Total: len(views)})
}

// POST /api/sessions/extend
func (h *SessionHandler) Extend(c *gin.Context) {
	session, err := h.sessions.ExtendSession(c.Writer, c.Request)
	if err != nil {
		if errors.Is(err, iauth.ErrSessionNotFound) {
			response.Error(c, apperrors.ErrUnauthorized)
			return
		}
		h.log.Error("extend session failed", zap.Error(err))
		response.Error(c, apperrors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusOK, newSessionView(session, session.ID, h.now))
}

// POST /api/sessions/:id/revoke
func (h *SessionHandler) Revoke(c *gin.Context) {
	current, ok := requireSession(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if id == current.ID {
		// Revoking the current session is a logout: the cookie goes too.
		if err := h.sessions.InvalidateSession(requestContext(c), c.Writer, current); err != nil {
			h.log.Error("revoke current session failed", zap.String("session_id", id), zap.Error(err))
			response.Error(c, apperrors.ErrInternalServer)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"revoked": true, "current": true})
		return
	}

	err := h.sessions.RevokeSession(requestContext(c), id, current.UserID)
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, gin.H{"revoked": true, "current": false})
	case errors.Is(err, iauth.ErrNotOwner):
		response.Error(c, apperrors.ErrSessionNotOwned)
	case errors.Is(err, iauth.ErrSessionNotFound):
		response.Error(c, apperrors.ErrNotFound)
	default:
		h.log.Error("revoke session failed", zap.String("session_id", id), zap.Error(err))
		response.Error(c, apperrors.ErrInternalServer)
	}
}

// POST /api/sessions/revoke-all
func (h *SessionHandler) RevokeAll(c *gin.Context) {
	current, ok := requireSession(c)
	if !ok {
		return
	}

	revoked, err := h.sessions.RevokeAllSessions(requestContext(c), current.UserID, current.ID)
	if err != nil {
		h.log.Error("revoke sessions failed", zap.String("user_id", current.UserID), zap.Error(err))
		response.Error(c, apperrors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": revoked})
}

// GET /api/sessions/dashboard
func (h *SessionHandler) Dashboard(c *gin.Context) {
	current, ok := requireSession(c)
	if !ok {
		return
	}

	dashboard := h.analytics.GetSessionDashboard(requestContext(c), current.UserID)
	var meta *response.Meta
	if len(dashboard.Degraded) > 0 {
		meta = &response.Meta{Degraded: dashboard.Degraded}
	}
	response.SuccessWithMeta(c, http.StatusOK, dashboard, meta)
}
