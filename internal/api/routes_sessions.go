package api

import (
	"github.com/gin-gonic/gin"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/handlers"
)

func registerSessionRoutes(protected *gin.RouterGroup, handler *handlers.SessionHandler) {
	sessions := protected.Group("/sessions")
	{
		sessions.GET("", handler.List)
		sessions.GET("/dashboard", handler.Dashboard)
		sessions.POST("/extend", handler.Extend)
		sessions.POST("/revoke-all", handler.RevokeAll)
		sessions.POST("/:id/revoke", handler.Revoke)
	}
}
