package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite://flavorshare.db")
	t.Setenv("JWT_SECRET", "0123456789abcdef-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	for _, key := range []string{"REDIS_URL", "JWT_EXPIRY", "SERVER_PORT", "ENVIRONMENT", "CORS_ORIGINS",
		"RATE_LIMIT_MAX_REQUESTS", "RATE_LIMIT_WINDOW", "RATE_LIMIT_BLOCK_TIME", "S3_BUCKET", "MAX_UPLOAD_BYTES",
		"EVENT_SPOOL_PATH", "EVENT_REPLAY_INTERVAL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 168*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, ":5000", cfg.ServerPort)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, 100, cfg.RateLimitMaxRequests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 5*time.Minute, cfg.RateLimitBlockTime)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "./data/events.wal", cfg.EventSpoolPath)
	assert.Equal(t, 30*time.Second, cfg.EventReplayInterval)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.UploadsEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "not-a-number")
	t.Setenv("RATE_LIMIT_WINDOW", "bogus")
	t.Setenv("S3_BUCKET", "recipes")
	t.Setenv("S3_PUBLIC_BASE_URL", "https://cdn.example/")
	t.Setenv("EVENT_SPOOL_PATH", "none")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, ":8080", cfg.ServerPort)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 100, cfg.RateLimitMaxRequests, "invalid ints fall back to the default")
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow, "invalid durations fall back to the default")
	assert.True(t, cfg.UploadsEnabled())
	assert.Equal(t, "https://cdn.example", cfg.S3PublicBaseURL)
	assert.Empty(t, cfg.EventSpoolPath, "none disables the spool")
}

func TestLoad_RequiresSettings(t *testing.T) {
	testCases := []struct {
		name   string
		dbURL  string
		secret string
	}{
		{"missing database url", "", "0123456789abcdef-secret"},
		{"missing secret", "sqlite://x.db", ""},
		{"short secret", "sqlite://x.db", "short"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", tc.dbURL)
			t.Setenv("JWT_SECRET", tc.secret)

			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}
