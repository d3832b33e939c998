package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.ListenAddr)
	assert.NotEmpty(t, cfg.DBPath)
	assert.NotEmpty(t, cfg.BlobBackend)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("DB_PATH", "/custom/db.sqlite")
	t.Setenv("VISION_BACKEND", "claude")
	t.Setenv("CLAUDE_API_KEY", "sk-test123")
	t.Setenv("SCHEDULER_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/custom/db.sqlite", cfg.DBPath)
	assert.Equal(t, "claude", cfg.VisionBackend)
	assert.Equal(t, "sk-test123", cfg.ClaudeAPIKey)
	assert.False(t, cfg.SchedulerEnabled)
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolkeepr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":7000"
blob_backend: s3
s3_bucket: tool-blobs
s3_path_style: true
`), 0600))

	t.Setenv("TOOLKEEPR_CONFIG", path)
	t.Setenv("LISTEN_ADDR", ":7001")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7001", cfg.ListenAddr, "environment wins over the file")
	assert.Equal(t, "s3", cfg.BlobBackend)
	assert.Equal(t, "tool-blobs", cfg.S3Bucket)
	assert.True(t, cfg.S3PathStyle)
	assert.Equal(t, "us-east-1", cfg.S3Region, "unset keys keep their default")
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("TOOLKEEPR_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnvBoolInvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_FLAG", "maybe")
	assert.True(t, getEnvBool("SOME_FLAG", true))
}
