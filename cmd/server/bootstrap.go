package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/api"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/app"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/app/maintenance"
	iauth "github.com/bhagwatcoding/cms-winfoa-sub000/internal/auth"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/cache"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/database"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/handlers"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/middleware"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/services"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/store"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/logger"
)

const cookiePurpose = "session"

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB           *gorm.DB
	Mongo        *mongo.Client
	Redis        *cache.RedisClient
	SessionStore store.SessionStore
	SessionSvc   *iauth.SessionService
	UserSvc      *services.UserService
	AuditSvc     *services.AuditService
	AnalyticsSvc *services.SessionAnalyticsService
	Cleaner      *maintenance.Cleaner
	RateStore    middleware.RateStore
	Router       *gin.Engine
}

// bootstrapRuntime initialises databases, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	if err := stack.initialiseSessionStore(ctx, cfg, log); err != nil {
		return nil, err
	}

	dbCache := cache.NewDatabaseStore(stack.DB)
	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisClient(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed rate limiting", zap.Error(err))
		} else {
			log.Info("redis connected", zap.String("addr", redisAddress(cfg.Cache)))
		}
	}
	if stack.Redis != nil {
		stack.RateStore = middleware.NewCacheRateStore(stack.Redis)
	} else {
		stack.RateStore = middleware.NewCacheRateStore(dbCache)
	}

	stack.AuditSvc, err = services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	stack.UserSvc, err = services.NewUserService(stack.DB, stack.AuditSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}

	if err := bootstrapAdmin(ctx, cfg.Bootstrap, stack.UserSvc, log); err != nil {
		return nil, err
	}

	sealer, err := iauth.NewSealer(cfg.Sessions.CookieSecrets(), cookiePurpose)
	if err != nil {
		return nil, fmt.Errorf("initialise cookie sealer: %w", err)
	}

	risk, err := iauth.NewRiskEngine(stack.UserSvc, stack.SessionStore, cfg.RiskConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise risk engine: %w", err)
	}

	sessionCfg := cfg.SessionServiceConfig()
	sessionCfg.Risk = risk
	sessionCfg.Audit = stack.AuditSvc

	stack.SessionSvc, err = iauth.NewSessionService(stack.SessionStore, sealer, sessionCfg)
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	stack.AnalyticsSvc, err = services.NewSessionAnalyticsService(stack.SessionStore, services.SessionAnalyticsConfig{})
	if err != nil {
		return nil, fmt.Errorf("initialise analytics service: %w", err)
	}

	if cfg.Sessions.Cleanup.Enabled {
		opts := []maintenance.Option{
			maintenance.WithAuditRetentionDays(cfg.Sessions.Cleanup.AuditRetentionDays),
			maintenance.WithSessionSchedule(cfg.Sessions.Cleanup.SessionSchedule),
			maintenance.WithAuditSchedule(cfg.Sessions.Cleanup.AuditSchedule),
		}
		if stack.Redis == nil {
			// Redis expires its own keys; only the SQL cache table needs sweeping.
			opts = append(opts,
				maintenance.WithCachePurger(dbCache),
				maintenance.WithCacheSchedule(cfg.Sessions.Cleanup.CacheSchedule),
			)
		}
		stack.Cleaner = maintenance.NewCleaner(stack.AnalyticsSvc, stack.AuditSvc, opts...)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:       cfg,
		Sessions:     stack.SessionSvc,
		Users:        stack.UserSvc,
		Audit:        stack.AuditSvc,
		Analytics:    stack.AnalyticsSvc,
		RateStore:    stack.RateStore,
		HealthChecks: stack.healthChecks(),
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func (s *runtimeStack) initialiseSessionStore(ctx context.Context, cfg *app.Config, log *zap.Logger) error {
	switch cfg.SessionStore() {
	case app.SessionStoreMongoDB:
		client, db, err := database.OpenMongo(ctx, cfg.MongoDB.MongoConfig())
		if err != nil {
			return fmt.Errorf("open mongodb: %w", err)
		}
		s.Mongo = client

		s.SessionStore, err = store.NewMongoSessionStore(ctx, db)
		if err != nil {
			return fmt.Errorf("initialise mongodb session store: %w", err)
		}
		log.Info("session store ready", zap.String("backend", app.SessionStoreMongoDB), zap.String("database", db.Name()))
	default:
		sessions, err := store.NewGormSessionStore(s.DB)
		if err != nil {
			return fmt.Errorf("initialise sql session store: %w", err)
		}
		s.SessionStore = sessions
		log.Info("session store ready", zap.String("backend", app.SessionStoreSQL))
	}
	return nil
}

func (s *runtimeStack) healthChecks() []handlers.HealthCheck {
	checks := []handlers.HealthCheck{
		{Name: "database", Ping: func(ctx context.Context) error {
			sqlDB, err := s.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		{Name: "sessions", Ping: s.SessionStore.Ping},
	}
	if s.Redis != nil {
		checks = append(checks, handlers.HealthCheck{Name: "redis", Ping: s.Redis.Ping})
	}
	return checks
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		<-stopCtx.Done()
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.Mongo != nil {
		if err := s.Mongo.Disconnect(ctx); err != nil {
			log.Warn("mongodb shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}

// bootstrapAdmin seeds the configured administrator so a fresh database has a usable login.
func bootstrapAdmin(ctx context.Context, cfg app.BootstrapConfig, users *services.UserService, log *zap.Logger) error {
	if !cfg.Enabled() {
		return nil
	}

	user, created, err := users.EnsureUser(ctx, services.CreateUserInput{
		Email:    cfg.AdminEmail,
		Name:     cfg.AdminName,
		Password: cfg.AdminPassword,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		log.Info("administrator created", zap.String("user_id", user.ID), zap.String("email", user.Email))
	}
	return nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func redisAddress(cfg app.CacheConfig) string {
	if cfg.Redis.URL != "" {
		return "url"
	}
	return cfg.Redis.Address
}
