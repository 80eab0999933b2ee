package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/errors"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/response"
)

const (
	CtxSessionKey   = "session"
	CtxUserIDKey    = "userID"
	CtxSessionIDKey = "sessionID"
)

// SessionResolver maps a request to its live session, or nil.
type SessionResolver interface {
	GetCurrentSession(r *http.Request) *models.Session
}

// SessionAuth requires a live session cookie and exposes the session to downstream handlers.
func SessionAuth(sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.GetCurrentSession(c.Request)
		if session == nil {
			// Every failed lookup looks the same to the client.
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxSessionKey, session)
		c.Set(CtxUserIDKey, session.UserID)
		c.Set(CtxSessionIDKey, session.ID)

		c.Next()
	}
}

// CurrentSession returns the session stored by SessionAuth.
func CurrentSession(c *gin.Context) (*models.Session, bool) {
	value, ok := c.Get(CtxSessionKey)
	if !ok {
		return nil, false
	}
	session, ok := value.(*models.Session)
	return session, ok && session != nil
}
