package app

import (
	"strings"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/database"
)

// ConnectionConfig converts the database section into database.Config, picking
// the host credentials that match the driver.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	cfg := database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:            strings.TrimSpace(c.Path),
		DSN:             strings.TrimSpace(c.DSN),
		Options:         c.Options,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}

	var creds DBAuthConfig
	switch cfg.Driver {
	case "postgres", "postgresql":
		creds = c.Postgres
	case "mysql", "mariadb":
		creds = c.MySQL
	default:
		return cfg
	}
	cfg.Host = strings.TrimSpace(creds.Host)
	cfg.Port = creds.Port
	cfg.Name = strings.TrimSpace(creds.Database)
	cfg.User = strings.TrimSpace(creds.Username)
	cfg.Password = creds.Password
	return cfg
}

// MongoConfig converts the mongodb section into database.MongoConfig.
func (c MongoDBConfig) MongoConfig() database.MongoConfig {
	return database.MongoConfig{
		URI:             strings.TrimSpace(c.URI),
		Database:        strings.TrimSpace(c.Database),
		ConnectTimeout:  c.ConnectTimeout,
		MaxPoolSize:     c.MaxPoolSize,
		MinPoolSize:     c.MinPoolSize,
		MaxConnIdleTime: c.MaxConnIdleTime,
		RetryAttempts:   c.RetryAttempts,
		RetryInterval:   c.RetryInterval,
	}
}
