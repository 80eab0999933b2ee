package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/middleware"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/errors"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// requireSession returns the session attached by SessionAuth, writing a 401 when absent.
func requireSession(c *gin.Context) (*models.Session, bool) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return nil, false
	}
	return session, true
}

// sessionView is the client representation of a session.
type sessionView struct {
	*models.Session
	// EffectiveStatus reports "expired" for active rows past their expiry.
	EffectiveStatus models.SessionStatus `json:"effective_status"`
	DeviceLabel     string               `json:"device_label"`
	LocationLabel   string               `json:"location_label"`
	Current         bool                 `json:"current"`
}

func newSessionView(session *models.Session, currentID string, now func() time.Time) sessionView {
	return sessionView{
		Session:         session,
		EffectiveStatus: session.EffectiveStatus(now()),
		DeviceLabel:     session.Device.Label(),
		LocationLabel:   session.Location.Label(),
		Current:         session.ID == currentID,
	}
}
