package maintenance

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/services"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultSessionSpec        = "@hourly"
	defaultAuditSpec          = "@daily"
	defaultCacheSpec          = "@every 15m"
)

// SessionCleaner deletes expired and revoked sessions.
type SessionCleaner interface {
	CleanupExpiredSessions(ctx context.Context) (services.CleanupResult, error)
}

// AuditPruner enforces the audit log retention window.
type AuditPruner interface {
	CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// CachePurger drops lapsed cache entries. Only the SQL cache needs this; Redis expires keys itself.
type CachePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleaner coordinates background maintenance tasks such as purging expired sessions,
// pruning stale audit logs, and dropping lapsed cache entries.
type Cleaner struct {
	sessions  SessionCleaner
	audit     AuditPruner
	cache     CachePurger
	cron      *cron.Cron
	log       *zap.Logger
	retention int

	sessionSchedule string
	auditSchedule   string
	cacheSchedule   string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithSessionSchedule overrides the cron specification for session cleanup.
func WithSessionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sessionSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// WithCachePurger enables purging of the SQL cache table.
func WithCachePurger(purger CachePurger) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = purger
	}
}

// WithCacheSchedule overrides the cron specification for cache purging.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding cleanup job being skipped.
func NewCleaner(sessions SessionCleaner, audit AuditPruner, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sessions:        sessions,
		audit:           audit,
		retention:       defaultAuditRetentionDays,
		sessionSchedule: defaultSessionSpec,
		auditSchedule:   defaultAuditSpec,
		cacheSchedule:   defaultCacheSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

func (c *Cleaner) enabled() bool {
	return c.sessions != nil || c.audit != nil || c.cache != nil
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled() {
		return nil
	}

	if c.sessions != nil {
		if _, err := c.cron.AddFunc(c.sessionSchedule, func() {
			_ = c.cleanSessions(context.Background())
		}); err != nil {
			return fmt.Errorf("maintenance: schedule session cleanup: %w", err)
		}
	}

	if c.audit != nil {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			_ = c.pruneAudit(context.Background())
		}); err != nil {
			return fmt.Errorf("maintenance: schedule audit cleanup: %w", err)
		}
	}

	if c.cache != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			_ = c.purgeCache(context.Background())
		}); err != nil {
			return fmt.Errorf("maintenance: schedule cache purge: %w", err)
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. A failing routine
// does not stop the others; their errors are combined.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.sessions != nil {
		errs = multierr.Append(errs, c.cleanSessions(ctx))
	}
	if c.audit != nil {
		errs = multierr.Append(errs, c.pruneAudit(ctx))
	}
	if c.cache != nil {
		errs = multierr.Append(errs, c.purgeCache(ctx))
	}
	return errs
}

func (c *Cleaner) cleanSessions(ctx context.Context) error {
	result, err := c.sessions.CleanupExpiredSessions(ctx)
	if err != nil {
		c.log.Warn("session cleanup failed", zap.Int64("deleted", result.Total), zap.Error(err))
		return err
	}
	c.log.Debug("session cleanup complete", zap.Int64("deleted", result.Total))
	return nil
}

func (c *Cleaner) pruneAudit(ctx context.Context) error {
	deleted, err := c.audit.CleanupOlderThan(ctx, c.retention)
	if err != nil {
		c.log.Warn("audit cleanup failed", zap.Error(err))
		return err
	}
	c.log.Debug("audit cleanup complete", zap.Int64("deleted", deleted), zap.Int("retention_days", c.retention))
	return nil
}

func (c *Cleaner) purgeCache(ctx context.Context) error {
	deleted, err := c.cache.PurgeExpired(ctx)
	if err != nil {
		c.log.Warn("cache purge failed", zap.Error(err))
		return fmt.Errorf("maintenance: purge cache: %w", err)
	}
	c.log.Debug("cache purge complete", zap.Int64("deleted", deleted))
	return nil
}
