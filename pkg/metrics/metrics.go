package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure|throttled).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cms_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// ActiveSessions tracks sessions created minus sessions revoked by this process.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cms_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// SessionsCreated counts new sessions by assessed risk level.
	SessionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cms_sessions_created_total",
			Help: "Sessions created, partitioned by risk level",
		},
		[]string{"risk_level"},
	)

	// SessionsRevoked counts revocations by trigger (logout|user|bulk).
	SessionsRevoked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cms_sessions_revoked_total",
			Help: "Sessions revoked, partitioned by trigger",
		},
		[]string{"trigger"},
	)

	// SessionLookups counts cookie validations by outcome (hit|miss|absent|unsealable|error).
	SessionLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cms_session_lookups_total",
			Help: "Session cookie lookups by outcome",
		},
		[]string{"outcome"},
	)

	// SessionsCleaned counts rows removed by the cleanup sweep (expired|revoked).
	SessionsCleaned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cms_sessions_cleaned_total",
			Help: "Session rows deleted by cleanup",
		},
		[]string{"reason"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cms_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
