package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"download-gate/pkg/config"
	"download-gate/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// ErrKeyNotFound is returned when a key or hash field does not exist
var ErrKeyNotFound = errors.New("key not found")

// connectTimeout bounds how long NewClient keeps retrying the initial ping
var connectTimeout = 30 * time.Second

// Client wraps redis client with additional functionality
type Client struct {
	client *redis.Client
}

// NewClient creates a new Redis client and waits until the server answers a PING
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = connectTimeout

	err := backoff.RetryNotify(
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return rdb.Ping(ctx).Err()
		},
		policy,
		func(err error, next time.Duration) {
			logger.Warnf("Redis at %s not reachable yet, retrying in %s: %v", cfg.Addr(), next, err)
		},
	)
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis successfully")

	return &Client{
		client: rdb,
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	result := c.client.Ping(ctx)
	if result.Err() != nil {
		return fmt.Errorf("failed to ping Redis: %w", result.Err())
	}
	return nil
}

// HSetWithExpiry writes hash fields and the key expiry in one MULTI/EXEC transaction
func (c *Client) HSetWithExpiry(ctx context.Context, key string, expiration time.Duration, values ...interface{}) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, values...)
		pipe.Expire(ctx, key, expiration)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set hash with expiry: %w", err)
	}
	return nil
}

// HGet gets a field value from a hash
func (c *Client) HGet(ctx context.Context, key, field string) (string, error) {
	result := c.client.HGet(ctx, key, field)
	if result.Err() != nil {
		if errors.Is(result.Err(), redis.Nil) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to get hash field: %w", result.Err())
	}
	return result.Val(), nil
}

// HGetAll gets all field-value pairs from a hash; a missing key yields an empty map
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	result := c.client.HGetAll(ctx, key)
	if result.Err() != nil {
		return nil, fmt.Errorf("failed to get all hash fields: %w", result.Err())
	}
	return result.Val(), nil
}

// HIncrBy increments a hash field and returns the new value
func (c *Client) HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error) {
	result := c.client.HIncrBy(ctx, key, field, incr)
	if result.Err() != nil {
		return 0, fmt.Errorf("failed to increment hash field: %w", result.Err())
	}
	return result.Val(), nil
}

// Exists reports whether a key exists
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	result := c.client.Exists(ctx, key)
	if result.Err() != nil {
		return false, fmt.Errorf("failed to check key existence: %w", result.Err())
	}
	return result.Val() > 0, nil
}

// TTL returns the remaining time to live of a key
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	result := c.client.TTL(ctx, key)
	if result.Err() != nil {
		return 0, fmt.Errorf("failed to get ttl: %w", result.Err())
	}
	return result.Val(), nil
}

// Delete deletes keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	result := c.client.Del(ctx, keys...)
	if result.Err() != nil {
		return fmt.Errorf("failed to delete keys: %w", result.Err())
	}
	return nil
}

// LoadScript loads a Lua script into the server script cache.
// An error means server-side scripting is not usable on this connection.
func (c *Client) LoadScript(ctx context.Context, script *redis.Script) error {
	err := script.Load(ctx, c.client).Err()
	if err != nil {
		return fmt.Errorf("failed to load script: %w", err)
	}
	return nil
}

// RunScript executes a Lua script via EVALSHA, falling back to EVAL when the script cache misses
func (c *Client) RunScript(ctx context.Context, script *redis.Script, keys []string, args ...interface{}) (interface{}, error) {
	result, err := script.Run(ctx, c.client, keys, args...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to run script: %w", err)
	}
	return result, nil
}
