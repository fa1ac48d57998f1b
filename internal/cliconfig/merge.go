package cliconfig

// MergeConfig merges source config into target, updating sources tracking.
// Only non-zero values from source are applied.
func MergeConfig(target, source *CLIConfig, sourceType string) {
	if source == nil {
		return
	}
	if target.Sources == nil {
		target.Sources = make(map[string]string)
	}

	mergeString := func(key, src string, dst *string) {
		if src != "" {
			*dst = src
			target.Sources[key] = sourceType
		}
	}

	mergeString("configFile", source.ConfigFile, &target.ConfigFile)
	mergeString("mode", source.Mode, &target.Mode)
	mergeString("logLevel", source.LogLevel, &target.LogLevel)
	mergeString("logFormat", source.LogFormat, &target.LogFormat)
	mergeString("logFile", source.LogFile, &target.LogFile)
	mergeString("proxyAddr", source.ProxyAddr, &target.ProxyAddr)
	mergeString("metricsAddr", source.MetricsAddr, &target.MetricsAddr)

	// A seed of 0 is valid, so presence comes from SetFields.
	if source.Seed != 0 || source.SetFields["seed"] {
		target.Seed = source.Seed
		target.Sources["seed"] = sourceType
	}
	if boolIsSet(source, "json") {
		target.JSON = source.JSON
		target.Sources["json"] = sourceType
	}
}

// boolIsSet reports whether a boolean field identified by its YAML key was
// explicitly set in the source config. Without SetFields only true counts.
func boolIsSet(cfg *CLIConfig, yamlKey string) bool {
	if cfg.SetFields != nil {
		return cfg.SetFields[yamlKey]
	}
	switch yamlKey {
	case "json":
		return cfg.JSON
	}
	return false
}
