package app

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 4*time.Hour, cfg.CourseNotifyDebounce)
	assert.Equal(t, 30*24*time.Hour, cfg.UsersInactiveAfter)
	assert.Equal(t, "rub", cfg.StripeCurrency)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTTL)
	assert.False(t, cfg.AutoMigrate)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("COURSE_NOTIFY_DEBOUNCE", "30m")
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTO_MIGRATE", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.CourseNotifyDebounce)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.AutoMigrate)
}

func TestConfigValidate(t *testing.T) {
	base := Config{
		JWTSecret:          "0123456789abcdef",
		JWTAccessTTL:       time.Minute,
		JWTRefreshTTL:      time.Hour,
		UsersInactiveAfter: time.Hour,
	}
	require.NoError(t, base.Validate())

	short := base
	short.JWTSecret = "short"
	assert.Error(t, short.Validate())

	inverted := base
	inverted.JWTRefreshTTL = time.Second
	assert.Error(t, inverted.Validate())

	negative := base
	negative.CourseNotifyDebounce = -time.Second
	assert.Error(t, negative.Validate())
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", AppEnv: "test"}, &buf)

	logger.Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "test", line["env"])
}
