package cliconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// GlobalConfigDir is the directory for global config
	GlobalConfigDir = "netmonkey"
)

// LocalConfigFileNames are the names to search for local config (in order).
var LocalConfigFileNames = []string{".netmonkeyrc.yaml", ".netmonkeyrc.yml"}

// GlobalConfigFileNames are the names to search for global config (in order).
var GlobalConfigFileNames = []string{"config.yaml", "config.yml"}

// FindLocalConfig searches for a local settings file in dir.
// Returns empty string if none exists.
func FindLocalConfig(dir string) string {
	for _, name := range LocalConfigFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// FindGlobalConfig returns the path to the global config file.
// Returns empty string if not found.
func FindGlobalConfig() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	for _, name := range GlobalConfigFileNames {
		path := filepath.Join(configDir, GlobalConfigDir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadConfigFile loads a CLIConfig from a YAML file.
func LoadConfigFile(path string) (*CLIConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		cerr := &ConfigError{Path: path, Message: err.Error()}
		var typeErr *yaml.TypeError
		if !errors.As(err, &typeErr) {
			cerr.Line = yamlErrorLine(err)
		}
		return nil, cerr
	}

	var keys map[string]any
	if err := yaml.Unmarshal(data, &keys); err == nil {
		cfg.SetFields = make(map[string]bool, len(keys))
		for k := range keys {
			cfg.SetFields[k] = true
		}
	}

	cfg.Sources = make(map[string]string)
	return &cfg, nil
}

// ConfigError represents a configuration file error with location info.
type ConfigError struct {
	Path    string
	Line    int
	Message string
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", e.Path, e.Line, e.Message)
	}
	return e.Path + ": " + e.Message
}

func yamlErrorLine(err error) int {
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr != nil {
		return 0
	}
	return line
}

// LoadAll loads configuration from all sources except flags and merges them.
// Precedence: env > local config > global config > defaults.
// An unreadable settings file is an error; a missing one is not.
func LoadAll(dir string) (*CLIConfig, error) {
	cfg := NewDefault()

	if path := FindGlobalConfig(); path != "" {
		globalCfg, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		MergeConfig(cfg, globalCfg, SourceGlobal)
	}

	if path := FindLocalConfig(dir); path != "" {
		localCfg, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		MergeConfig(cfg, localCfg, SourceLocal)
	}

	LoadEnvConfig(cfg)

	return cfg, nil
}
