package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menoncello/coding-standard-sub000/internal/reload"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"./standards"}, cfg.Watch.Roots)
	assert.Equal(t, 300, cfg.Watch.DebounceMs)
	assert.True(t, cfg.Reload.Enabled)
	assert.True(t, cfg.Reload.ValidateBeforeUpdate)
	assert.True(t, cfg.Reload.EnableRollback)
	assert.Equal(t, "overwrite", cfg.Reload.ConflictResolution)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "standards.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
watch:
  roots:
    - /srv/standards
  debounce_ms: 150
  throttle_ms: 25
reload:
  enabled: false
  max_concurrent_operations: 7
  conflict_resolution: merge
log:
  level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/srv/standards"}, cfg.Watch.Roots)
	assert.Equal(t, 150, cfg.Watch.DebounceMs)
	assert.Equal(t, 25, cfg.Watch.ThrottleMs)
	assert.False(t, cfg.Reload.Enabled)
	assert.Equal(t, 7, cfg.Reload.MaxConcurrentOperations)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Unset keys keep their defaults.
	assert.True(t, cfg.Reload.EnableRollback)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestWatcherConfigConversion(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	wc := cfg.WatcherConfig()
	assert.Equal(t, 300*time.Millisecond, wc.Debounce)
	assert.Equal(t, 100*time.Millisecond, wc.Throttle)
	assert.Equal(t, 2*time.Second, wc.MaxBatchWait)
	assert.Equal(t, []string{"./standards"}, wc.Roots)
	require.NoError(t, wc.Validate())
}

func TestReloadConfigConversion(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	rc := cfg.ReloadConfig()
	assert.Equal(t, 30*time.Second, rc.OperationTimeout)
	assert.Equal(t, reload.ConflictOverwrite, rc.OnConflict)
	require.NoError(t, rc.Validate())
}
