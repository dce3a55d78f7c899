package clickhouse

import "time"

// Config is the connection and session setup of a Client.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string

	// HTTP switches from the native protocol (9000) to HTTP (8123).
	HTTP bool

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	MaxExecution time.Duration

	AsyncInsert     bool
	WaitAsyncInsert bool

	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

type ClientOption func(*Config)

func defaultConfig() *Config {
	return &Config{
		Port:         9000,
		Database:     "default",
		User:         "default",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		ConnLifetime: 5 * time.Minute,
	}
}

// WithAddr sets the server address. A non-positive port keeps the default.
func WithAddr(host string, port int) ClientOption {
	return func(c *Config) {
		c.Host = host
		if port > 0 {
			c.Port = port
		}
	}
}

func WithDatabase(db string) ClientOption {
	return func(c *Config) {
		if db != "" {
			c.Database = db
		}
	}
}

func WithCredentials(user, password string) ClientOption {
	return func(c *Config) {
		if user != "" {
			c.User = user
		}
		c.Password = password
	}
}

func WithTimeouts(dial, read time.Duration) ClientOption {
	return func(c *Config) {
		if dial > 0 {
			c.DialTimeout = dial
		}
		if read > 0 {
			c.ReadTimeout = read
		}
	}
}

func WithHTTP(on bool) ClientOption {
	return func(c *Config) { c.HTTP = on }
}

// WithAsyncInsert sets async_insert for the session; wait also sets
// wait_for_async_insert.
func WithAsyncInsert(on, wait bool) ClientOption {
	return func(c *Config) {
		c.AsyncInsert = on
		c.WaitAsyncInsert = on && wait
	}
}

func WithMaxExecutionTime(d time.Duration) ClientOption {
	return func(c *Config) { c.MaxExecution = d }
}

func WithPool(maxOpen, maxIdle int, lifetime time.Duration) ClientOption {
	return func(c *Config) {
		if maxOpen > 0 {
			c.MaxOpenConns = maxOpen
		}
		if maxIdle >= 0 {
			c.MaxIdleConns = maxIdle
		}
		if lifetime > 0 {
			c.ConnLifetime = lifetime
		}
	}
}
