package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config dir at an empty temp dir and clears env.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, env := range []string{EnvConfig, EnvMode, EnvSeed, EnvLogLevel, EnvLogFormat, EnvLogFile, EnvProxyAddr, EnvMetricsAddr} {
		t.Setenv(env, "")
	}
}

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()
	assert.Equal(t, DefaultMode, cfg.Mode)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultProxyAddr, cfg.ProxyAddr)
	assert.Equal(t, SourceDefault, cfg.Sources["mode"])
	assert.False(t, cfg.HasSeed())
}

func TestLoadEnvConfig(t *testing.T) {
	isolate(t)
	t.Setenv(EnvMode, "aggressive")
	t.Setenv(EnvSeed, "42")
	t.Setenv(EnvLogFile, "/tmp/netmonkey.log")

	cfg := NewDefault()
	LoadEnvConfig(cfg)

	assert.Equal(t, "aggressive", cfg.Mode)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.True(t, cfg.HasSeed())
	assert.Equal(t, "/tmp/netmonkey.log", cfg.LogFile)
	assert.Equal(t, SourceEnv, cfg.Sources["mode"])
	assert.Equal(t, SourceDefault, cfg.Sources["logLevel"])
}

func TestLoadEnvConfig_IgnoresBadSeed(t *testing.T) {
	isolate(t)
	t.Setenv(EnvSeed, "not-a-number")

	cfg := NewDefault()
	LoadEnvConfig(cfg)
	assert.False(t, cfg.HasSeed())
}

func TestMergeConfig(t *testing.T) {
	t.Run("merges non-zero values", func(t *testing.T) {
		target := NewDefault()
		MergeConfig(target, &CLIConfig{Mode: "test", ProxyAddr: ":9999"}, SourceLocal)

		assert.Equal(t, "test", target.Mode)
		assert.Equal(t, ":9999", target.ProxyAddr)
		assert.Equal(t, SourceLocal, target.Sources["proxyAddr"])
		assert.Equal(t, SourceDefault, target.Sources["logLevel"])
	})

	t.Run("explicit zero seed counts", func(t *testing.T) {
		target := NewDefault()
		MergeConfig(target, &CLIConfig{SetFields: map[string]bool{"seed": true}}, SourceGlobal)
		assert.True(t, target.HasSeed())
		assert.Equal(t, int64(0), target.Seed)
	})

	t.Run("explicit false json overrides", func(t *testing.T) {
		target := NewDefault()
		target.JSON = true
		MergeConfig(target, &CLIConfig{SetFields: map[string]bool{"json": true}}, SourceLocal)
		assert.False(t, target.JSON)
	})

	t.Run("nil source", func(t *testing.T) {
		target := NewDefault()
		MergeConfig(target, nil, SourceLocal)
		assert.Equal(t, DefaultMode, target.Mode)
	})
}

func TestLoadAll_Precedence(t *testing.T) {
	isolate(t)

	globalDir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), GlobalConfigDir)
	require.NoError(t, os.MkdirAll(globalDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(globalDir, "config.yaml"),
		[]byte("mode: aggressive\nlogLevel: debug\nseed: 7\n"), 0o600))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".netmonkeyrc.yaml"),
		[]byte("mode: test\nconfigFile: faults.yaml\n"), 0o600))

	t.Setenv(EnvLogLevel, "warn")

	cfg, err := LoadAll(dir)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Mode)
	assert.Equal(t, SourceLocal, cfg.Sources["mode"])
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, SourceEnv, cfg.Sources["logLevel"])
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, SourceGlobal, cfg.Sources["seed"])
	assert.Equal(t, "faults.yaml", cfg.ConfigFile)
}

func TestLoadConfigFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfigFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("mode: [unterminated\n"), 0o600))
	_, err = LoadConfigFile(bad)

	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, bad, cerr.Path)
}
