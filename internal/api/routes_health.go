package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/app"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, health *handlers.HealthHandler) {
	r.GET("/health", health.Health)
	r.GET("/api/health", health.Health)

	if !cfg.Monitoring.Prometheus.Enabled {
		return
	}
	endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}
	r.GET(endpoint, gin.WrapH(promhttp.Handler()))
}
