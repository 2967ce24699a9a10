package config

import (
	"fmt"

	lconfig "github.com/lixenwraith/config"
)

// SaveToFile writes the configuration as TOML to path
func (c *Config) SaveToFile(path string) error {
	if path == "" {
		return fmt.Errorf("cannot save config: path is empty")
	}

	lcfg, err := lconfig.NewBuilder().
		WithFile(path).
		WithTarget(c).
		WithFileFormat("toml").
		Build()
	if err != nil {
		return fmt.Errorf("failed to create config builder: %w", err)
	}

	if err := lcfg.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Example returns a starter document used by the --init-config flag
func Example() *Config {
	cfg := defaults()
	cfg.Sources = []SourceConfig{
		{
			Type: "file",
			Name: "system-logs",
			File: &FileSourceOptions{
				Include: []string{"/var/log/*.log"},
				StartAt: "end",
			},
		},
		{
			Type: "http",
			Name: "receiver",
			HTTP: &HTTPSourceOptions{Port: 4318, Interface: "0.0.0.0"},
		},
	}
	cfg.Processors = []ProcessorConfig{
		{
			Type: "resource",
			Name: "host",
			Resource: &ResourceProcessorOptions{
				Attributes: []AttributeAction{{Action: ActionUpsert, Key: "host.name", Value: "${HOSTNAME}"}},
			},
		},
		{
			Type: "filter",
			Name: "drop-debug",
			Filter: &FilterProcessorOptions{
				Exclude: &MatchConfig{MatchType: MatchExact, Exact: []string{"DEBUG"}},
			},
		},
	}
	cfg.Exporters = []ExporterConfig{
		{
			Type: "localcache",
			Name: "cache",
			LocalCache: &LocalCacheExporterOptions{
				Directory: "/var/lib/lognarrator/cache",
				MaxSizeMB: 10,
			},
		},
	}
	return cfg
}
