package clickhouse

import (
	"net/url"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	cfg := Config{
		Host:        "ch.local",
		Port:        9000,
		Database:    "signals",
		User:        "default",
		Password:    "p@ss",
		DialTimeout: 5 * time.Second,
		AsyncInsert: true,
	}
	u, err := url.Parse(BuildDSN(cfg))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Scheme != "clickhouse" || u.Host != "ch.local:9000" || u.Path != "/signals" {
		t.Fatalf("unexpected dsn %s", u)
	}
	if pw, _ := u.User.Password(); pw != "p@ss" {
		t.Fatalf("password = %q", pw)
	}
	q := u.Query()
	if q.Get("dial_timeout") != "5s" || q.Get("async_insert") != "1" {
		t.Fatalf("query = %v", q)
	}
	if q.Has("wait_for_async_insert") {
		t.Fatalf("wait flag set without WaitAsyncInsert")
	}

	cfg.HTTP = true
	if u, _ := url.Parse(BuildDSN(cfg)); u.Scheme != "http" {
		t.Fatalf("scheme = %s", u.Scheme)
	}
}

func TestOptions(t *testing.T) {
	cfg := defaultConfig()
	for _, opt := range []ClientOption{
		WithAddr("ch", 0),
		WithCredentials("", "secret"),
		WithAsyncInsert(false, true),
		WithPool(20, -1, 0),
	} {
		opt(cfg)
	}
	if cfg.Host != "ch" || cfg.Port != 9000 || cfg.User != "default" || cfg.Password != "secret" {
		t.Fatalf("connection = %+v", cfg)
	}
	if cfg.WaitAsyncInsert {
		t.Fatalf("wait set without async insert")
	}
	if cfg.MaxOpenConns != 20 || cfg.MaxIdleConns != 5 || cfg.ConnLifetime != 5*time.Minute {
		t.Fatalf("pool = %+v", cfg)
	}
}
