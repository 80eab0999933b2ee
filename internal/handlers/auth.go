package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/bhagwatcoding/cms-winfoa-sub000/internal/auth"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/services"
	apperrors "github.com/bhagwatcoding/cms-winfoa-sub000/pkg/errors"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/logger"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/metrics"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/response"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// AuthHandler manages authentication flows (login/logout/me/activity).
type AuthHandler struct {
	users    *services.UserService
	sessions *iauth.SessionService
	audit    *services.AuditService
	now      func() time.Time
	log      *zap.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(users *services.UserService, sessions *iauth.SessionService, audit *services.AuditService) (*AuthHandler, error) {
	if users == nil {
		return nil, errors.New("auth handler: user service is required")
	}
	if sessions == nil {
		return nil, errors.New("auth handler: session service is required")
	}
	if audit == nil {
		return nil, errors.New("auth handler: audit service is required")
	}
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		audit:    audit,
		now:      time.Now,
		log:      logger.WithModule("http"),
	}, nil
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User    *models.User `json:"user"`
	Session sessionView  `json:"session"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Authenticate(requestContext(c), req.Email, req.Password, services.LoginContext{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			response.Error(c, apperrors.ErrInvalidCredentials)
			return
		}
		h.log.Error("authenticate failed", zap.Error(err))
		response.Error(c, apperrors.ErrInternalServer)
		return
	}

	session, err := h.sessions.CreateSession(c.Writer, c.Request, user.ID, models.LoginMethodPassword)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		h.log.Error("create session failed", zap.String("user_id", user.ID), zap.Error(err))
		response.Error(c, apperrors.ErrInternalServer)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	response.Success(c, http.StatusOK, loginResponse{
		User:    user,
		Session: newSessionView(session, session.ID, h.now),
	})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Writer, c.Request); err != nil {
		h.log.Error("logout failed", zap.Error(err))
		response.Error(c, apperrors.ErrInternalServer)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	user, err := h.users.FindUserByID(requestContext(c), session.UserID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			response.Error(c, apperrors.ErrUnauthorized)
			return
		}
		response.Error(c, apperrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, loginResponse{
		User:    user,
		Session: newSessionView(session, session.ID, h.now),
	})
}

// GET /api/auth/activity
func (h *AuthHandler) Activity(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	limit := boundedIntQuery(c, "limit", defaultActivityLimit, maxActivityLimit)
	logs, err := h.audit.ListForUser(requestContext(c), session.UserID, limit)
	if err != nil {
		response.Error(c, apperrors.ErrInternalServer)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, logs, &response.Meta{Total: len(logs)})
}
