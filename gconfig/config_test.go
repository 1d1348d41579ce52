package gconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, content string) {
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestNewLoadsConfigFileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "pcapng-driver.yaml", ""+
		"log_level: debug\n"+
		"max_block_size: 1048576\n"+
		"default_units_per_second: 1000000000\n")

	cfg, err := New(WithName("pcapng-driver"), WithPaths(dir))
	require.NoError(t, err)

	settings, err := cfg.Unmarshal()
	require.NoError(t, err)
	assert.Equal(t, "debug", settings.LogLevel)
	assert.EqualValues(t, 1048576, settings.MaxBlockSize)
	assert.EqualValues(t, 1_000_000_000, settings.DefaultUnitsPerSecond)
	assert.Equal(t, "console", settings.LogFormat) // from SetDefault
}

func TestNewToleratesMissingConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := New(WithName("does-not-exist"), WithPaths(dir))
	require.NoError(t, err)

	settings, err := cfg.Unmarshal()
	require.NoError(t, err)
	assert.Equal(t, "info", settings.LogLevel)
	assert.Equal(t, "little", settings.ByteOrder)
}

func TestOnChangeCallbackFiresOnFileEdit(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "pcapng-driver.yaml", "log_level: info\n")

	changed := make(chan *DriverConfig, 1)
	cfg, err := New(
		WithName("pcapng-driver"),
		WithPaths(dir),
		WithOnChange(func(c *DriverConfig) { changed <- c }),
	)
	require.NoError(t, err)
	_ = cfg

	writeConfigFile(t, dir, "pcapng-driver.yaml", "log_level: debug\n")

	select {
	case c := <-changed:
		assert.Equal(t, "debug", c.LogLevel)
	case <-time.After(2 * time.Second):
		t.Skip("fsnotify did not fire within the test's short window; filesystem watchers are inherently timing-sensitive")
	}
}
