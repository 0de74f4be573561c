package config

// SourceConfig declares a source to register at startup. Sources discovered
// through ingestion do not need a file here, declared ones are registered
// before the first scheduling pass.
type SourceConfig struct {
	Source SourceInfo `yaml:"source"`
}

// SourceInfo contains the source identity and polling settings.
type SourceInfo struct {
	Name             string  `yaml:"name"`
	URL              string  `yaml:"url"`
	Kind             string  `yaml:"kind"`
	RefreshFrequency int64   `yaml:"refresh_frequency"`
	Weight           float64 `yaml:"weight"`
}
