package cache

import (
	"net"
	"strconv"
	"time"
)

// RedisConfig is the connection setup for RedisCache.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	MinIdle     int
	DialTimeout time.Duration
	PingTimeout time.Duration
	Prefix      string
}

type RedisOption func(*RedisConfig)

func defaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:        "localhost:6379",
		PoolSize:    10,
		MinIdle:     2,
		DialTimeout: 5 * time.Second,
		PingTimeout: 5 * time.Second,
		Prefix:      "signals",
	}
}

func WithRedisAddr(host string, port int) RedisOption {
	return func(c *RedisConfig) {
		if host != "" && port > 0 {
			c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
		}
	}
}

func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password, c.DB = password, db
	}
}

func WithRedisPool(size, minIdle int) RedisOption {
	return func(c *RedisConfig) {
		if size > 0 {
			c.PoolSize = size
		}
		if minIdle >= 0 {
			c.MinIdle = minIdle
		}
	}
}

func WithRedisTimeouts(dial, ping time.Duration) RedisOption {
	return func(c *RedisConfig) {
		if dial > 0 {
			c.DialTimeout = dial
		}
		if ping > 0 {
			c.PingTimeout = ping
		}
	}
}

// WithRedisPrefix namespaces every key; empty keeps the default.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		if prefix != "" {
			c.Prefix = prefix
		}
	}
}
