package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/app"
	iauth "github.com/bhagwatcoding/cms-winfoa-sub000/internal/auth"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/handlers"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/middleware"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/services"
)

// Dependencies bundles the services the HTTP layer is built on.
type Dependencies struct {
	Config    *app.Config
	Sessions  *iauth.SessionService
	Users     *services.UserService
	Audit     *services.AuditService
	Analytics *services.SessionAnalyticsService
	// RateStore backs login throttling. Nil disables it.
	RateStore    middleware.RateStore
	HealthChecks []handlers.HealthCheck
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Config == nil {
		return nil, errors.New("config must be provided")
	}
	if deps.Sessions == nil {
		return nil, errors.New("session service must be provided")
	}

	authHandler, err := handlers.NewAuthHandler(deps.Users, deps.Sessions, deps.Audit)
	if err != nil {
		return nil, err
	}
	sessionHandler, err := handlers.NewSessionHandler(deps.Sessions, deps.Analytics)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	if !deps.Config.Server.TrustProxy {
		// ClientIP must not be spoofable through X-Forwarded-For.
		if err := r.SetTrustedProxies(nil); err != nil {
			return nil, err
		}
	}

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(deps.Config.Server.Production()))
	r.NoRoute(middleware.NotFoundHandler)

	registerHealthRoutes(r, deps.Config, handlers.NewHealthHandler(deps.HealthChecks...))

	api := r.Group("/api")
	protected := api.Group("")
	protected.Use(middleware.SessionAuth(deps.Sessions))

	registerAuthRoutes(api, protected, authHandler, loginLimiter(deps))
	registerSessionRoutes(protected, sessionHandler)

	return r, nil
}
