package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Server.Port)
	assert.Equal(t, 24*time.Hour, c.Session.TTL)
	assert.False(t, c.Policy.LockSetup)
	assert.True(t, c.Policy.RejectPastStart)
	assert.Equal(t, 5.0, c.Limit.RPS)
	assert.Equal(t, 10, c.Limit.Burst)
	assert.Empty(t, c.Server.CORSOrigins)
	assert.Empty(t, c.Redis.URL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("LOCK_SETUP", "true")
	t.Setenv("REJECT_PAST_START", "false")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("APP_ENV", "production")

	c, err := Load()
	require.NoError(t, err)

	assert.True(t, c.Policy.LockSetup)
	assert.False(t, c.Policy.RejectPastStart)
	assert.Equal(t, 90*time.Minute, c.Session.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.Server.CORSOrigins)
	assert.False(t, c.Development())
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOCK_SETUP", "maybe")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingDatabaseURL)
	assert.Contains(t, err.Error(), "LOCK_SETUP")
}
