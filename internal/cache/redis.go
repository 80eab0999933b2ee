package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig captures the connection parameters for the Redis backend. URL,
// when set, takes precedence over the discrete fields.
type RedisConfig struct {
	URL      string
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool
	Timeout  time.Duration
	// KeyPrefix namespaces every key written by this process.
	KeyPrefix string
}

const (
	defaultRedisTimeout = 5 * time.Second
	defaultKeyPrefix    = "cms:"
)

// ErrRedisUnavailable is returned when the initial ping fails.
var ErrRedisUnavailable = errors.New("redis: server unavailable")

// RedisClient implements Store on top of go-redis.
type RedisClient struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisClient)(nil)

// NewRedisClient creates the client and pings the server so misconfiguration
// surfaces during start-up.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*RedisClient, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ensureContext(ctx), opts.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}

	return newRedisStore(client, cfg.KeyPrefix), nil
}

func newRedisStore(client *redis.Client, prefix string) *RedisClient {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisClient{client: client, prefix: prefix}
}

func redisOptions(cfg RedisConfig) (*redis.Options, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}

	var opts *redis.Options
	if url := strings.TrimSpace(cfg.URL); url != "" {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("redis: parse url: %w", err)
		}
		opts = parsed
	} else {
		address := strings.TrimSpace(cfg.Address)
		if address == "" {
			return nil, errors.New("redis: address is required")
		}
		opts = &redis.Options{
			Addr:     address,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
		if cfg.TLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
	}

	opts.DialTimeout = timeout
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout
	return opts, nil
}

// Close releases the connection pool.
func (c *RedisClient) Close() error {
	return c.client.Close()
}

// Ping checks that the server responds.
func (c *RedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ensureContext(ctx)).Err()
}

// IncrementWithTTL increments key and starts its window on the first hit.
// It returns the current count and the remaining time-to-live.
func (c *RedisClient) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	ctx = ensureContext(ctx)
	if window <= 0 {
		window = time.Minute
	}
	prefixed := c.prefixed(key)

	count, err := c.client.Incr(ctx, prefixed).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis: incr: %w", err)
	}
	if count == 1 {
		if err := c.client.PExpire(ctx, prefixed, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis: pexpire: %w", err)
		}
	}

	ttl, err := c.client.PTTL(ctx, prefixed).Result()
	if err != nil || ttl < 0 {
		return count, window, nil
	}
	return count, ttl, nil
}

// Set stores value. A non-positive ttl keeps the value until deleted.
func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ensureContext(ctx), c.prefixed(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set: %w", err)
	}
	return nil
}

// Get retrieves the value associated with a key.
func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ensureContext(ctx), c.prefixed(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get: %w", err)
	}
	return value, true, nil
}

// Delete removes keys from the store.
func (c *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = c.prefixed(key)
	}
	if err := c.client.Del(ensureContext(ctx), prefixed...).Err(); err != nil {
		return fmt.Errorf("redis: del: %w", err)
	}
	return nil
}

func (c *RedisClient) prefixed(key string) string {
	return c.prefix + key
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
