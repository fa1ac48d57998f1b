package cliconfig

// Default settings.
const (
	DefaultMode      = "default"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultProxyAddr = "127.0.0.1:8080"
)

// NewDefault creates a new CLIConfig with default values.
func NewDefault() *CLIConfig {
	cfg := &CLIConfig{
		Mode:      DefaultMode,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		ProxyAddr: DefaultProxyAddr,
		Sources:   make(map[string]string),
	}

	cfg.Sources["mode"] = SourceDefault
	cfg.Sources["logLevel"] = SourceDefault
	cfg.Sources["logFormat"] = SourceDefault
	cfg.Sources["proxyAddr"] = SourceDefault

	return cfg
}
