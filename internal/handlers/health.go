package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/logger"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler reports readiness of the database, the session store and the cache.
type HealthHandler struct {
	checks []HealthCheck
}

// NewHealthHandler constructs a health handler. Checks with a nil Ping are skipped.
func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	filtered := make([]HealthCheck, 0, len(checks))
	for _, check := range checks {
		if check.Ping != nil && check.Name != "" {
			filtered = append(filtered, check)
		}
	}
	return &HealthHandler{checks: filtered}
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(requestContext(c), healthCheckTimeout)
	defer cancel()

	healthy := true
	results := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			healthy = false
			results[check.Name] = "unavailable"
			logger.WithModule("http").Warn("health check failed", zap.String("check", check.Name), zap.Error(err))
			continue
		}
		results[check.Name] = "ok"
	}

	status := http.StatusOK
	label := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		label = "degraded"
	}
	c.JSON(status, gin.H{
		"success":    healthy,
		"status":     label,
		"checks":     results,
		"checked_at": time.Now().UTC(),
	})
}
