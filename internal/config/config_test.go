package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8083", cfg.HTTPAddr)
	assert.Equal(t, 64, cfg.WSSendBuffer)
	assert.Equal(t, 5*time.Minute, cfg.DBConnLifetime)
	assert.True(t, cfg.RunMigrations)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CHAT_HTTP_ADDR", ":9999")
	t.Setenv("CHAT_JWT_SECRET", "s3cret")
	t.Setenv("CHAT_WS_SEND_BUFFER", "8")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 8, cfg.WSSendBuffer)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\njwt:\n  secret: from-file\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "from-file", cfg.JWTSecret)
}

func TestValidateRequiresSecret(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.JWTSecret = ""

	assert.Error(t, cfg.Validate())
}
