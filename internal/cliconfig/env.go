package cliconfig

import (
	"os"
	"strconv"
)

// Environment variable names
const (
	EnvConfig      = "NETMONKEY_CONFIG"
	EnvMode        = "NETMONKEY_MODE"
	EnvSeed        = "NETMONKEY_SEED"
	EnvLogLevel    = "NETMONKEY_LOG_LEVEL"
	EnvLogFormat   = "NETMONKEY_LOG_FORMAT"
	EnvLogFile     = "NETMONKEY_LOG_FILE"
	EnvProxyAddr   = "NETMONKEY_PROXY_ADDR"
	EnvMetricsAddr = "NETMONKEY_METRICS_ADDR"
)

// LoadEnvConfig loads configuration from environment variables.
// It only sets values that are present in the environment.
func LoadEnvConfig(cfg *CLIConfig) {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]string)
	}

	setString := func(env, key string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
			cfg.Sources[key] = SourceEnv
		}
	}

	setString(EnvConfig, "configFile", &cfg.ConfigFile)
	setString(EnvMode, "mode", &cfg.Mode)
	setString(EnvLogLevel, "logLevel", &cfg.LogLevel)
	setString(EnvLogFormat, "logFormat", &cfg.LogFormat)
	setString(EnvLogFile, "logFile", &cfg.LogFile)
	setString(EnvProxyAddr, "proxyAddr", &cfg.ProxyAddr)
	setString(EnvMetricsAddr, "metricsAddr", &cfg.MetricsAddr)

	// NETMONKEY_SEED
	if v := os.Getenv(EnvSeed); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = seed
			cfg.Sources["seed"] = SourceEnv
		}
	}
}
