package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/logger"
)

// ErrMongoUnreachable is returned when every connection attempt failed.
var ErrMongoUnreachable = errors.New("database: mongodb unreachable")

// MongoConfig describes how to reach the document store.
type MongoConfig struct {
	URI             string
	Database        string
	ConnectTimeout  time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
	RetryAttempts   int
	RetryInterval   time.Duration
}

func (c MongoConfig) withDefaults() MongoConfig {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = 100
	}
	if c.MinPoolSize == 0 {
		c.MinPoolSize = 1
	}
	if c.MaxConnIdleTime <= 0 {
		c.MaxConnIdleTime = 5 * time.Minute
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 2 * time.Second
	}
	return c
}

// OpenMongo connects to MongoDB, retrying while the server warms up, and returns
// the configured database handle. The caller owns the client and must Disconnect it.
func OpenMongo(ctx context.Context, cfg MongoConfig) (*mongo.Client, *mongo.Database, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, nil, errors.New("mongodb uri is required")
	}
	if strings.TrimSpace(cfg.Database) == "" {
		return nil, nil, errors.New("mongodb database name is required")
	}
	cfg = cfg.withDefaults()
	log := logger.WithModule("store")

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetRetryWrites(true).
		SetRetryReads(true)

	var lastErr error
	for attempt := 1; attempt <= cfg.RetryAttempts; attempt++ {
		client, err := mongo.Connect(opts)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
			err = client.Ping(pingCtx, readpref.Primary())
			cancel()
			if err == nil {
				return client, client.Database(cfg.Database), nil
			}
			_ = client.Disconnect(context.Background())
		}
		lastErr = err
		log.Warn("mongodb connection attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.RetryAttempts),
			zap.Error(err),
		)

		if attempt == cfg.RetryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, nil, fmt.Errorf("%w: %w", ErrMongoUnreachable, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, nil, fmt.Errorf("%w: %w", ErrMongoUnreachable, lastErr)
}
