package api

import (
	"github.com/gin-gonic/gin"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/handlers"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/middleware"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/metrics"
)

func loginLimiter(deps Dependencies) gin.HandlerFunc {
	requests, window := deps.Config.Server.LoginWindow()
	return middleware.RateLimit(deps.RateStore, requests, window,
		middleware.WithKeyPrefix("login:"),
		middleware.WithThrottleHook(func(*gin.Context) {
			metrics.AuthAttempts.WithLabelValues("throttled").Inc()
		}),
	)
}

func registerAuthRoutes(api, protected *gin.RouterGroup, handler *handlers.AuthHandler, limiter gin.HandlerFunc) {
	auth := api.Group("/auth")
	{
		auth.POST("/login", limiter, handler.Login)
		// Logout clears the cookie even when the session is already gone.
		auth.POST("/logout", handler.Logout)
	}

	protected.GET("/auth/me", handler.Me)
	protected.GET("/auth/activity", handler.Activity)
}
