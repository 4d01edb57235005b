package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "public/mcap", cfg.CaptureDir)
	assert.Equal(t, "rrd", cfg.RecordingDir)
	assert.Equal(t, "thumbnails", cfg.ThumbnailDir)
	assert.Equal(t, DefaultSkipTopics, cfg.SkipTopics)
	assert.Equal(t, 100, cfg.KeyframeScanCap)
	assert.Equal(t, "local", cfg.StorageType)
	assert.False(t, cfg.PrivateGalleries)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CAPTURE_DIR", "/data/captures")
	t.Setenv("KEYFRAME_SCAN_CAP", "250")
	t.Setenv("PRIVATE_GALLERIES", "true")
	t.Setenv("SKIP_TOPICS", "/a/one, /b/two ,")
	t.Setenv("DEFAULT_TOKEN_EXPIRATION", "30m")

	cfg := Load()

	assert.Equal(t, "/data/captures", cfg.CaptureDir)
	assert.Equal(t, 250, cfg.KeyframeScanCap)
	assert.True(t, cfg.PrivateGalleries)
	assert.Equal(t, []string{"/a/one", "/b/two"}, cfg.SkipTopics)
	assert.Equal(t, 30*time.Minute, cfg.DefaultTokenExpiration)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("KEYFRAME_SCAN_CAP", "not-a-number")
	t.Setenv("PRIVATE_GALLERIES", "maybe")
	t.Setenv("MAX_TOKEN_EXPIRATION", "soon")

	cfg := Load()

	assert.Equal(t, 100, cfg.KeyframeScanCap)
	assert.False(t, cfg.PrivateGalleries)
	assert.Equal(t, 24*time.Hour, cfg.MaxTokenExpiration)
}
