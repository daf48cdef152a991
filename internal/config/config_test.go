package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
logger:
  level: debug
  json: true
store:
  dir: /var/lib/logkv
  segment_size_limit: 1048576
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.Logger.JSON)
	assert.Equal(t, "/var/lib/logkv", cfg.Store.Dir)
	assert.Equal(t, uint64(1048576), cfg.Store.SegmentSizeLimit)
	// untouched keys keep their defaults
	assert.Equal(t, "sequence", cfg.Store.KeyStrategy)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
logger:
  level: loud
store:
  key_strategy: random
`), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_strategy")
	assert.Contains(t, err.Error(), "logger.level")
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("store: [unterminated"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Dir = ""
	cfg.Store.SegmentSizeLimit = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.dir")
	assert.Contains(t, err.Error(), "segment_size_limit")
}

func TestDefaultFile(t *testing.T) {
	t.Setenv("CONFIG_DIR", "/etc/logkv")
	path, err := DefaultFile()
	require.NoError(t, err)
	require.Equal(t, "/etc/logkv/"+FileName, path)

	t.Setenv("CONFIG_DIR", "")
	t.Setenv("HOME", "/home/someone")
	path, err = DefaultFile()
	require.NoError(t, err)
	require.Equal(t, "/home/someone/.logkv/"+FileName, path)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LoggerConfig{Level: "warn", JSON: true}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("dropped")
	logger.Warn().Str("segment", "1").Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "1", line["segment"])

	_, err = NewLogger(LoggerConfig{Level: "loud"}, &buf)
	require.Error(t, err)
}
