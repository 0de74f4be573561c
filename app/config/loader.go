package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/monkeydioude/patishie/app/database"
)

// Loader handles loading and validation of source configurations
type Loader struct {
	sourcesDir       string
	defaultFrequency int64
}

// NewLoader creates a new configuration loader
func NewLoader(sourcesDir string, defaultFrequency int64) *Loader {
	return &Loader{sourcesDir: sourcesDir, defaultFrequency: defaultFrequency}
}

// LoadAll loads all YAML configuration files from the sources directory
func (l *Loader) LoadAll() (map[string]*SourceConfig, error) {
	configs := make(map[string]*SourceConfig)

	if _, err := os.Stat(l.sourcesDir); os.IsNotExist(err) {
		return configs, nil
	}

	files, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		config, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if err := l.validate(config); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", file, err)
		}

		configs[file] = config
		slog.Info("Loaded source configuration", "file", file, "source", config.Source.Name)
	}

	return configs, nil
}

// loadFile loads a single YAML configuration file
func (l *Loader) loadFile(path string) (*SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config SourceConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	l.setDefaults(&config)

	return &config, nil
}

// setDefaults applies default values to configuration
func (l *Loader) setDefaults(config *SourceConfig) {
	if config.Source.Kind == "" {
		config.Source.Kind = string(database.SourceKindRSS)
	}
	if config.Source.RefreshFrequency == 0 {
		config.Source.RefreshFrequency = l.defaultFrequency
	}
	if config.Source.Weight == 0 {
		config.Source.Weight = 1
	}
}

// validate validates the configuration
func (l *Loader) validate(config *SourceConfig) error {
	if config.Source.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if config.Source.URL == "" {
		return fmt.Errorf("source URL is required")
	}
	if !database.SourceKind(config.Source.Kind).Valid() {
		return fmt.Errorf("invalid source kind: %s", config.Source.Kind)
	}
	if config.Source.RefreshFrequency < 0 {
		return fmt.Errorf("refresh frequency must be non-negative")
	}
	if config.Source.Weight < 0 {
		return fmt.Errorf("weight must be non-negative")
	}

	return nil
}
