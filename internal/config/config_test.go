package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpersFallBackToDefaults(t *testing.T) {
	assert.Equal(t, "def", envStr("CFG_TEST_UNSET", "def"))
	assert.Equal(t, 7, envInt("CFG_TEST_UNSET", 7))
	assert.True(t, envBool("CFG_TEST_UNSET", true))
	assert.Equal(t, time.Minute, envDur("CFG_TEST_UNSET", time.Minute))
}

func TestEnvHelpersParseValues(t *testing.T) {
	t.Setenv("CFG_TEST_STR", "hello")
	t.Setenv("CFG_TEST_INT", "42")
	t.Setenv("CFG_TEST_BOOL", "yes")
	t.Setenv("CFG_TEST_DUR", "90s")

	assert.Equal(t, "hello", envStr("CFG_TEST_STR", "def"))
	assert.Equal(t, 42, envInt("CFG_TEST_INT", 7))
	assert.True(t, envBool("CFG_TEST_BOOL", false))
	assert.Equal(t, 90*time.Second, envDur("CFG_TEST_DUR", time.Minute))
}

func TestEnvHelpersIgnoreGarbage(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "not-a-number")
	t.Setenv("CFG_TEST_BOOL", "maybe")
	t.Setenv("CFG_TEST_DUR", "soon")

	assert.Equal(t, 7, envInt("CFG_TEST_INT", 7))
	assert.False(t, envBool("CFG_TEST_BOOL", false))
	assert.Equal(t, time.Minute, envDur("CFG_TEST_DUR", time.Minute))
}

func TestLoadSweeperConfigDefaults(t *testing.T) {
	cfg := LoadSweeperConfig()
	assert.Equal(t, time.Hour, cfg.Reminder24hEvery)
	assert.Equal(t, 30*time.Minute, cfg.Reminder2hEvery)
	assert.Equal(t, 24*time.Hour, cfg.NoShowEvery)
}

func TestLoadRateLimitConfigClampsTTL(t *testing.T) {
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 5*time.Minute, cfg.TTL)
}
