package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8090", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Dedup config
	assert.Equal(t, 1000, cfg.Dedup.MaxPending)
	assert.Equal(t, 30*time.Second, cfg.Dedup.DefaultTimeout)
	assert.Equal(t, 5*time.Second, cfg.Dedup.GraceWindow)

	// Cache config
	assert.Equal(t, 4096, cfg.Cache.Capacity)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)

	// Queue config
	assert.Equal(t, 50.0, cfg.Queue.DrainRate)

	// Breaker config
	assert.EqualValues(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.Breaker.OpenTimeout)
	assert.Equal(t, 60*time.Second, cfg.Breaker.Interval)
	assert.EqualValues(t, 1, cfg.Breaker.MaxRequests)

	// Probe config
	assert.True(t, cfg.Probe.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Probe.Interval)
	assert.Equal(t, 3*time.Second, cfg.Probe.Timeout)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8090", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	// Setup environment variables
	envVars := map[string]string{
		"PORT":               "9000",
		"HOST":               "127.0.0.1",
		"DEDUP_MAX_PENDING":  "250",
		"DEDUP_TIMEOUT":      "10s",
		"DEDUP_GRACE_WINDOW": "2s",
		"CACHE_CAPACITY":     "512",
		"CACHE_TTL":          "1m",
		"QUEUE_DRAIN_RPS":    "25",
		"PROBE_ENABLED":      "false",
		"PROBE_INTERVAL":     "5s",
		"DEPS_FILE":          "/etc/fitos/deps.yaml",
		"LOG_LEVEL":          "debug",
		"LOG_DEV":            "true",
		"RATE_LIMIT_RPS":     "500",
		"RATE_LIMIT_BURST":   "1000",
		"RATE_LIMIT_ENABLED": "false",
	}

	// Set environment variables
	for key, value := range envVars {
		err := os.Setenv(key, value)
		require.NoError(t, err)
		defer os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	// Verify server config
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)

	// Verify dedup config
	assert.Equal(t, 250, cfg.Dedup.MaxPending)
	assert.Equal(t, 10*time.Second, cfg.Dedup.DefaultTimeout)
	assert.Equal(t, 2*time.Second, cfg.Dedup.GraceWindow)

	// Verify cache config
	assert.Equal(t, 512, cfg.Cache.Capacity)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)

	// Verify queue config
	assert.Equal(t, 25.0, cfg.Queue.DrainRate)

	// Verify probe config
	assert.False(t, cfg.Probe.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Probe.Interval)

	// Verify deps config
	assert.Equal(t, "/etc/fitos/deps.yaml", cfg.Deps.File)

	// Verify logging config
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	// Verify rate limit config
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	// Only set some environment variables
	err := os.Setenv("PORT", "3000")
	require.NoError(t, err)
	defer os.Unsetenv("PORT")

	err = os.Setenv("DEDUP_TIMEOUT", "45s")
	require.NoError(t, err)
	defer os.Unsetenv("DEDUP_TIMEOUT")

	cfg, err := Load()
	require.NoError(t, err)

	// Verify overridden values
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Dedup.DefaultTimeout)

	// Verify default values still apply
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 1000, cfg.Dedup.MaxPending)
	assert.Equal(t, 5*time.Second, cfg.Dedup.GraceWindow)
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	err := os.Setenv("DEDUP_TIMEOUT", "not-a-duration")
	require.NoError(t, err)
	defer os.Unsetenv("DEDUP_TIMEOUT")

	_, err = Load()
	assert.Error(t, err)
}

func TestBreakerConfig(t *testing.T) {
	tests := []struct {
		name          string
		threshold     string
		openTimeout   string
		wantThreshold uint32
		wantTimeout   time.Duration
	}{
		{
			name:          "default values",
			threshold:     "",
			openTimeout:   "",
			wantThreshold: 5,
			wantTimeout:   30 * time.Second,
		},
		{
			name:          "sensitive breaker",
			threshold:     "1",
			openTimeout:   "5s",
			wantThreshold: 1,
			wantTimeout:   5 * time.Second,
		},
		{
			name:          "tolerant breaker",
			threshold:     "20",
			openTimeout:   "2m",
			wantThreshold: 20,
			wantTimeout:   2 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clean environment
			os.Unsetenv("BREAKER_FAILURE_THRESHOLD")
			os.Unsetenv("BREAKER_OPEN_TIMEOUT")

			// Set test values
			if tt.threshold != "" {
				err := os.Setenv("BREAKER_FAILURE_THRESHOLD", tt.threshold)
				require.NoError(t, err)
				defer os.Unsetenv("BREAKER_FAILURE_THRESHOLD")
			}
			if tt.openTimeout != "" {
				err := os.Setenv("BREAKER_OPEN_TIMEOUT", tt.openTimeout)
				require.NoError(t, err)
				defer os.Unsetenv("BREAKER_OPEN_TIMEOUT")
			}

			cfg := LoadOrDefault()

			assert.Equal(t, tt.wantThreshold, cfg.Breaker.FailureThreshold)
			assert.Equal(t, tt.wantTimeout, cfg.Breaker.OpenTimeout)
		})
	}
}
