package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDurationOrDefault(t *testing.T) {
	assert.Equal(t, 90*time.Second, ParseDurationOrDefault(" 90s ", time.Minute))
	assert.Equal(t, time.Minute, ParseDurationOrDefault("", time.Minute))
	assert.Equal(t, time.Minute, ParseDurationOrDefault("soon", time.Minute))
	assert.Equal(t, time.Minute, ParseDurationOrDefault("-5s", time.Minute))
}

func TestCeilSeconds(t *testing.T) {
	assert.Equal(t, int64(0), CeilSeconds(0))
	assert.Equal(t, int64(0), CeilSeconds(-time.Second))
	assert.Equal(t, int64(1), CeilSeconds(time.Millisecond))
	assert.Equal(t, int64(42), CeilSeconds(42*time.Second))
	assert.Equal(t, int64(43), CeilSeconds(42*time.Second+time.Nanosecond))
}

func TestMillis(t *testing.T) {
	assert.Equal(t, 10*time.Second, Millis(10000))
	assert.Equal(t, time.Duration(0), Millis(-1))
}
