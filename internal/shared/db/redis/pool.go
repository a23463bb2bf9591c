package redis

import (
	"net/url"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/golangci/golangci-billing/internal/shared/config"
	"github.com/pkg/errors"
)

type PoolOptions struct {
	MaxIdle     int
	IdleTimeout time.Duration
}

var DefaultPoolOptions = PoolOptions{
	MaxIdle:     10,
	IdleTimeout: 4 * time.Minute,
}

// GetPool builds a pool from REDIS_URL or REDIS_{HOST,PASSWORD}. Pool sizing
// comes from REDIS_MAX_IDLE and REDIS_IDLE_TIMEOUT.
func GetPool(cfg config.Config) (*redis.Pool, error) {
	redisURL, err := GetURL(cfg)
	if err != nil {
		return nil, err
	}

	return NewPoolWithOptions(redisURL, PoolOptions{
		MaxIdle:     cfg.GetInt("REDIS_MAX_IDLE", DefaultPoolOptions.MaxIdle),
		IdleTimeout: cfg.GetDuration("REDIS_IDLE_TIMEOUT", DefaultPoolOptions.IdleTimeout),
	}), nil
}

func NewPool(redisURL string) *redis.Pool {
	return NewPoolWithOptions(redisURL, DefaultPoolOptions)
}

func NewPoolWithOptions(redisURL string, opts PoolOptions) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     opts.MaxIdle,
		IdleTimeout: opts.IdleTimeout,
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(redisURL)
		},
		TestOnBorrow: func(c redis.Conn, usedAt time.Time) error {
			if time.Since(usedAt) < time.Minute {
				return nil
			}

			_, err := c.Do("PING")
			return err
		},
	}
}

func GetURL(cfg config.Config) (string, error) {
	if redisURL := cfg.GetString("REDIS_URL"); redisURL != "" {
		return redisURL, nil
	}

	host := cfg.GetString("REDIS_HOST")
	if host == "" {
		return "", errors.New("no REDIS_URL or REDIS_HOST in config")
	}

	u := url.URL{
		Scheme: "redis",
		Host:   host,
	}
	if password := cfg.GetString("REDIS_PASSWORD"); password != "" {
		u.User = url.UserPassword("h", password)
	}

	return u.String(), nil
}
