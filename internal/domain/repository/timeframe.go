package repository

import "time"

// Interval is a candle resolution in exchange notation.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
)

var intervalDurations = map[Interval]time.Duration{
	Interval1m:  time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval1h:  time.Hour,
	Interval4h:  4 * time.Hour,
	Interval1d:  24 * time.Hour,
}

// IsValidInterval returns true if iv is a supported interval.
func IsValidInterval(iv Interval) bool {
	_, ok := intervalDurations[iv]
	return ok
}

// Duration returns the bar width of iv, or zero when unsupported.
func (iv Interval) Duration() time.Duration {
	return intervalDurations[iv]
}

// Seconds returns the bar width in seconds.
func (iv Interval) Seconds() int64 {
	return int64(iv.Duration() / time.Second)
}
