package cliconfig

// CLIConfig holds the resolved netmonkey CLI settings.
type CLIConfig struct {
	// ConfigFile is the fault file to load.
	ConfigFile string `yaml:"configFile,omitempty" json:"configFile,omitempty"`

	// Mode is the engine mode: default, aggressive or test.
	Mode string `yaml:"mode" json:"mode"`

	// Seed seeds the engine's random source. Only used when "seed" is in Sources.
	Seed int64 `yaml:"seed" json:"seed"`

	// Logging settings
	LogLevel  string `yaml:"logLevel" json:"logLevel"`
	LogFormat string `yaml:"logFormat" json:"logFormat"`
	LogFile   string `yaml:"logFile,omitempty" json:"logFile,omitempty"`

	// Proxy settings
	ProxyAddr   string `yaml:"proxyAddr" json:"proxyAddr"`
	MetricsAddr string `yaml:"metricsAddr,omitempty" json:"metricsAddr,omitempty"`

	// Output settings
	JSON bool `yaml:"json" json:"json"`

	// Sources tracks where each value came from.
	Sources map[string]string `yaml:"-" json:"-"`

	// SetFields records which keys were present in a loaded file, so an
	// explicit false or zero can be told apart from an absent key.
	SetFields map[string]bool `yaml:"-" json:"-"`
}

// HasSeed reports whether a seed was configured by any source.
func (c *CLIConfig) HasSeed() bool {
	_, ok := c.Sources["seed"]
	return ok
}

// ConfigSource identifies where a config value originated.
const (
	SourceDefault = "default"
	SourceEnv     = "env"
	SourceGlobal  = "global"
	SourceLocal   = "local"
	SourceFlag    = "flag"
)
