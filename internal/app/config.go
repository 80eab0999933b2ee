package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Session store backends.
const (
	SessionStoreSQL     = "sql"
	SessionStoreMongoDB = "mongodb"
)

// EnvironmentProduction switches on Secure cookies and the cookie Domain attribute.
const EnvironmentProduction = "production"

// Config represents the runtime configuration for the CMS backend.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Sessions   SessionsConfig   `mapstructure:"sessions"`
	MongoDB    MongoDBConfig    `mapstructure:"mongodb"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Bootstrap  BootstrapConfig  `mapstructure:"bootstrap"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int             `mapstructure:"port"`
	LogLevel    string          `mapstructure:"log_level"`
	Environment string          `mapstructure:"environment"`
	LoginLimit  RateLimitConfig `mapstructure:"login_rate_limit"`
	// TrustProxy lets X-Forwarded-For and X-Real-IP decide the client address.
	TrustProxy bool `mapstructure:"trust_proxy"`
}

// Production reports whether the server runs in the production environment.
func (c ServerConfig) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), EnvironmentProduction)
}

// RateLimitConfig bounds requests per client within a window.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver          string            `mapstructure:"driver"`
	Path            string            `mapstructure:"path"`
	DSN             string            `mapstructure:"dsn"`
	Postgres        DBAuthConfig      `mapstructure:"postgres"`
	MySQL           DBAuthConfig      `mapstructure:"mysql"`
	Options         map[string]string `mapstructure:"options"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration     `mapstructure:"conn_max_lifetime"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// SessionsConfig controls the session lifecycle.
type SessionsConfig struct {
	Store        string        `mapstructure:"store"`
	Duration     time.Duration `mapstructure:"duration"`
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
	RiskLookback time.Duration `mapstructure:"risk_lookback"`
	Cookie       CookieConfig  `mapstructure:"cookie"`
	Cleanup      CleanupConfig `mapstructure:"cleanup"`
}

// CookieConfig configures the session cookie and its sealing secrets.
type CookieConfig struct {
	Name   string `mapstructure:"name"`
	Domain string `mapstructure:"domain"`
	Secure bool   `mapstructure:"secure"`
	Secret string `mapstructure:"secret"`
	// PreviousSecrets still open cookies sealed before a rotation.
	PreviousSecrets []string `mapstructure:"previous_secrets"`
}

// CleanupConfig schedules background maintenance.
type CleanupConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	SessionSchedule    string `mapstructure:"session_schedule"`
	AuditSchedule      string `mapstructure:"audit_schedule"`
	CacheSchedule      string `mapstructure:"cache_schedule"`
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
}

// MongoDBConfig configures the MongoDB session store.
type MongoDBConfig struct {
	URI             string        `mapstructure:"uri"`
	Database        string        `mapstructure:"database"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxPoolSize     uint64        `mapstructure:"max_pool_size"`
	MinPoolSize     uint64        `mapstructure:"min_pool_size"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryInterval   time.Duration `mapstructure:"retry_interval"`
}

// CacheConfig describes cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	URL       string        `mapstructure:"url"`
	Address   string        `mapstructure:"address"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TLS       bool          `mapstructure:"tls"`
	Timeout   time.Duration `mapstructure:"timeout"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// BootstrapConfig seeds an administrator on a fresh database.
type BootstrapConfig struct {
	AdminEmail    string `mapstructure:"admin_email"`
	AdminName     string `mapstructure:"admin_name"`
	AdminPassword string `mapstructure:"admin_password"`
}

// Enabled reports whether an administrator should be seeded.
func (c BootstrapConfig) Enabled() bool {
	return strings.TrimSpace(c.AdminEmail) != "" && c.AdminPassword != ""
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("CMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// Validate checks settings that would otherwise fail deep inside start-up.
// Call it after ApplyRuntimeDefaults.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil")
	}

	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "", "sqlite", "postgres", "postgresql", "mysql", "mariadb":
	default:
		return fmt.Errorf("config: unsupported database.driver %q", c.Database.Driver)
	}

	switch c.SessionStore() {
	case SessionStoreSQL:
	case SessionStoreMongoDB:
		if strings.TrimSpace(c.MongoDB.URI) == "" {
			return errors.New("config: mongodb.uri is required when sessions.store is mongodb")
		}
	default:
		return fmt.Errorf("config: unsupported sessions.store %q", c.Sessions.Store)
	}

	if c.Sessions.Duration < 0 || c.Sessions.StoreTimeout < 0 || c.Sessions.RiskLookback < 0 {
		return errors.New("config: session durations must not be negative")
	}
	if strings.TrimSpace(c.Sessions.Cookie.Secret) == "" {
		return errors.New("config: sessions.cookie.secret is required")
	}
	if c.Server.LoginLimit.Requests < 0 || c.Server.LoginLimit.Window < 0 {
		return errors.New("config: server.login_rate_limit must not be negative")
	}
	return nil
}

// SessionStore returns the normalised session store backend name.
func (c *Config) SessionStore() string {
	store := strings.ToLower(strings.TrimSpace(c.Sessions.Store))
	if store == "" {
		return SessionStoreSQL
	}
	return store
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("server.login_rate_limit.requests", 10)
	v.SetDefault("server.login_rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/cms.sqlite")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.max_idle_conns", 0)
	v.SetDefault("database.conn_max_lifetime", "0s")

	v.SetDefault("sessions.store", SessionStoreSQL)
	v.SetDefault("sessions.duration", "720h") // 30 days
	v.SetDefault("sessions.store_timeout", "5s")
	v.SetDefault("sessions.risk_lookback", "168h") // 7 days
	v.SetDefault("sessions.cookie.name", "session_token")
	v.SetDefault("sessions.cookie.domain", "")
	v.SetDefault("sessions.cookie.secure", false)
	v.SetDefault("sessions.cookie.secret", "")
	v.SetDefault("sessions.cookie.previous_secrets", []string{})
	v.SetDefault("sessions.cleanup.enabled", true)
	v.SetDefault("sessions.cleanup.session_schedule", "@hourly")
	v.SetDefault("sessions.cleanup.audit_schedule", "@daily")
	v.SetDefault("sessions.cleanup.cache_schedule", "@every 15m")
	v.SetDefault("sessions.cleanup.audit_retention_days", 90)

	v.SetDefault("mongodb.uri", "")
	v.SetDefault("mongodb.database", "cms")
	v.SetDefault("mongodb.connect_timeout", "10s")
	v.SetDefault("mongodb.max_pool_size", 100)
	v.SetDefault("mongodb.min_pool_size", 0)
	v.SetDefault("mongodb.max_conn_idle_time", "5m")
	v.SetDefault("mongodb.retry_attempts", 3)
	v.SetDefault("mongodb.retry_interval", "2s")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.url", "")
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")
	v.SetDefault("cache.redis.key_prefix", "cms:")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")

	v.SetDefault("bootstrap.admin_email", "")
	v.SetDefault("bootstrap.admin_name", "Administrator")
	v.SetDefault("bootstrap.admin_password", "")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
