package util

import (
	"strconv"
	"strings"
	"time"
)

// ParseDuration accepts Go duration syntax ("90s", "5m") or a bare number of
// seconds. Negative values are rejected.
func ParseDuration(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, d >= 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n >= 0 {
		return time.Duration(n) * time.Second, true
	}
	return 0, false
}

// ParseDurationDefault returns def when s is empty or invalid.
func ParseDurationDefault(s string, def time.Duration) time.Duration {
	if d, ok := ParseDuration(s); ok {
		return d
	}
	return def
}
