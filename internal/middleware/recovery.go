package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/errors"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/logger"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/response"
)

// Recovery turns a handler panic into the standard 500 envelope. The panic value
// is logged with the stack and never echoed to the client.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			fields := []zap.Field{
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			}
			if sessionID := c.GetString(CtxSessionIDKey); sessionID != "" {
				fields = append(fields, zap.String("session_id", sessionID))
			}
			logger.WithModule("http").Error("handler panic", fields...)

			if !c.Writer.Written() {
				response.Error(c, errors.ErrInternalServer)
			}
			c.Abort()
		}()
		c.Next()
	}
}

// NotFoundHandler answers unknown routes with the JSON error envelope.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, errors.New("ROUTE_NOT_FOUND", fmt.Sprintf("route %s %s not found", c.Request.Method, c.Request.URL.Path), http.StatusNotFound))
}
