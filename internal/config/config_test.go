package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "hornkb", cfg.Name)
	assert.Equal(t, 100000, cfg.Knowledge.FactLimit)
	assert.Equal(t, ".kb", cfg.Watch.Extension)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hornkb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
knowledge:
  fact_limit: 500
logging:
  level: debug
  format: json
watch:
  debounce: 2s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Knowledge.FactLimit)
	assert.Equal(t, 64, cfg.Knowledge.DepthWarn, "unset fields keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hornkb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("knowledge: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
