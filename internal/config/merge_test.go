package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daethyra/ExecEye/internal/config"
)

// writeOverlay is a test helper that writes YAML content to a temp file
// and returns its path.
func writeOverlay(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestShallowMergeYAML_SingleSectionOverride(t *testing.T) {
	target := config.New()
	overlay := writeOverlay(t, `
cache:
  capacity: 250
  ttl: 30m
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))

	assert.Equal(t, 250, target.Cache.Capacity)
	assert.Equal(t, 30*time.Minute, target.Cache.TTL)
	assert.Equal(t, config.New().Search, target.Search, "absent sections are untouched")
	assert.Equal(t, config.New().Storage, target.Storage)
}

func TestShallowMergeYAML_PartialSectionKeepsDefaults(t *testing.T) {
	target := config.New()
	overlay := writeOverlay(t, `
storage:
  path: /var/lib/execeye/results.db
search:
  timeout: 3s
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))

	assert.Equal(t, "/var/lib/execeye/results.db", target.Storage.Path)
	assert.Equal(t, config.New().Storage.PoolSize, target.Storage.PoolSize)
	assert.Equal(t, 3*time.Second, target.Search.Timeout)
	assert.Equal(t, config.New().Search.BaseURL, target.Search.BaseURL)
}

func TestShallowMergeYAML_UnknownKeysIgnored(t *testing.T) {
	target := config.New()
	overlay := writeOverlay(t, `
plugins:
  aws: {}
logging:
  level: debug
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))
	assert.Equal(t, "debug", target.Logging.Level)
}

func TestShallowMergeYAML_EmptyFile(t *testing.T) {
	target := config.New()
	overlay := writeOverlay(t, "# nothing here\n")

	require.NoError(t, config.ShallowMergeYAML(target, overlay))
	assert.Equal(t, config.New(), target)
}

func TestShallowMergeYAML_Errors(t *testing.T) {
	t.Run("nil target", func(t *testing.T) {
		err := config.ShallowMergeYAML(nil, "irrelevant.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil target")
	})

	t.Run("missing file", func(t *testing.T) {
		err := config.ShallowMergeYAML(config.New(), filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading overlay file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		err := config.ShallowMergeYAML(config.New(), writeOverlay(t, "cache: [unclosed"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing overlay YAML")
	})

	t.Run("wrong section type", func(t *testing.T) {
		err := config.ShallowMergeYAML(config.New(), writeOverlay(t, "cache:\n  capacity: lots\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `applying overlay section "cache"`)
	})
}
