package timeutil

import (
	"math"
	"strings"
	"time"
)

// ParseDurationOrDefault parses a duration such as "90s" and returns def on
// empty, invalid or negative input.
func ParseDurationOrDefault(value string, def time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

// CeilSeconds rounds d up to whole seconds for display.
func CeilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}

// Millis converts a millisecond count from configuration into a duration.
func Millis(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
