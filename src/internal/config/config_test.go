package config

import (
	"os"
	"path/filepath"
	"testing"

	"lognarrator/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func validConfig() *Config {
	return &Config{
		Sources: []SourceConfig{
			{Type: "file", Name: "app", File: &FileSourceOptions{Include: []string{"/var/log/app.log"}}},
		},
		Processors: []ProcessorConfig{
			{Type: "filter", Filter: &FilterProcessorOptions{
				Include: &MatchConfig{Exact: []string{"error", "warn"}},
			}},
		},
		Exporters: []ExporterConfig{
			{Type: "localcache", Name: "cache", LocalCache: &LocalCacheExporterOptions{Directory: "/tmp/cache"}},
		},
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "end", cfg.Sources[0].File.StartAt)
	assert.Equal(t, int64(100), cfg.Sources[0].File.PollIntervalMS)
	assert.Equal(t, "filter-0", cfg.Processors[0].Name)
	assert.Equal(t, MatchExact, cfg.Processors[0].Filter.Include.MatchType)
	assert.Equal(t, int64(core.DefaultCacheMaxSizeMB), cfg.Exporters[0].LocalCache.MaxSizeMB)
	assert.Equal(t, int64(core.DefaultChannelSize), cfg.Pipeline.BufferSize)
	assert.Equal(t, int64(core.DefaultMaxParallelExports), cfg.Pipeline.MaxParallelExports)
	assert.Equal(t, "stderr", cfg.Logging.Output)
}

func TestValidate_Aliases(t *testing.T) {
	cfg := &Config{
		Sources: []SourceConfig{
			{Type: "otlp/http", Name: "recv", HTTP: &HTTPSourceOptions{Port: 4318}},
		},
		Exporters: []ExporterConfig{
			{Type: "lognarrator/signed-cloud", Name: "cloud", Cloud: &CloudExporterOptions{
				Endpoint: "https://ingest.example.com/v1/logs",
				ClientID: "edge-1",
				KeyPath:  "/etc/lognarrator/key.private",
			}},
		},
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http", cfg.Sources[0].Type)
	assert.Equal(t, "0.0.0.0", cfg.Sources[0].HTTP.Interface)
	assert.Equal(t, "cloud", cfg.Exporters[0].Type)
	assert.Equal(t, int64(100), cfg.Exporters[0].Cloud.BatchSize)
	assert.Equal(t, int64(30), cfg.Exporters[0].Cloud.FlushIntervalSeconds)
	assert.Equal(t, int64(core.DefaultCloudMaxRetries), cfg.Exporters[0].Cloud.MaxRetries)
}

func TestValidate_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "UnknownSourceType",
			mutate: func(c *Config) { c.Sources[0].Type = "syslog" },
			errMsg: "unknown type 'syslog'",
		},
		{
			name:   "MissingSourceName",
			mutate: func(c *Config) { c.Sources[0].Name = "" },
			errMsg: "missing name",
		},
		{
			name: "TypeMismatch",
			mutate: func(c *Config) {
				c.Sources[0].Type = "docker"
			},
			errMsg: "type mismatch",
		},
		{
			name:   "MissingInclude",
			mutate: func(c *Config) { c.Sources[0].File.Include = nil },
			errMsg: "requires 'include'",
		},
		{
			name:   "BadStartAt",
			mutate: func(c *Config) { c.Sources[0].File.StartAt = "middle" },
			errMsg: "start_at",
		},
		{
			name: "BadRegexp",
			mutate: func(c *Config) {
				c.Processors[0].Filter.Include = &MatchConfig{MatchType: MatchRegexp, Regexp: []string{"["}}
			},
			errMsg: "invalid regex pattern",
		},
		{
			name:   "MissingExporterDirectory",
			mutate: func(c *Config) { c.Exporters[0].LocalCache.Directory = "" },
			errMsg: "requires 'directory'",
		},
		{
			name: "DuplicateExporterName",
			mutate: func(c *Config) {
				c.Exporters = append(c.Exporters, c.Exporters[0])
			},
			errMsg: "duplicate name",
		},
		{
			name: "ExtractWithoutGroups",
			mutate: func(c *Config) {
				c.Processors = append(c.Processors, ProcessorConfig{
					Type: "transform",
					Transform: &TransformProcessorOptions{Transforms: []TransformRule{
						{TransformType: TransformExtract, Field: "message", Parameters: map[string]string{"pattern": `\d+`}},
					}},
				})
			},
			errMsg: "no named groups",
		},
		{
			name: "UnknownAction",
			mutate: func(c *Config) {
				c.Processors = append(c.Processors, ProcessorConfig{
					Type:     "resource",
					Resource: &ResourceProcessorOptions{Attributes: []AttributeAction{{Action: "merge", Key: "k"}}},
				})
			},
			errMsg: "unknown action 'merge'",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrConfiguration)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestCheckUnknownKeys(t *testing.T) {
	t.Run("Clean", func(t *testing.T) {
		path := writeFile(t, "ok.toml", `
[[sources]]
type = "file"
name = "app"
[sources.file]
include = ["/var/log/app.log"]

[[exporters]]
type = "localcache"
name = "cache"
[exporters.localcache]
directory = "/tmp/cache"
`)
		assert.NoError(t, checkUnknownKeys(path))
	})

	t.Run("UnknownField", func(t *testing.T) {
		path := writeFile(t, "bad.toml", `
[[sources]]
type = "file"
name = "app"
colour = "blue"
[sources.file]
include = ["/var/log/app.log"]
`)
		err := checkUnknownKeys(path)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrConfiguration)
		assert.Contains(t, err.Error(), "colour")
	})

	t.Run("Missing", func(t *testing.T) {
		err := checkUnknownKeys(filepath.Join(t.TempDir(), "absent.toml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "agent.yaml", `
logging:
  level: debug
sources:
  - type: journald
    name: units
    journald:
      units: [sshd.service, nginx.service]
processors:
  - type: transform
    name: scrub
    transform:
      transforms:
        - transform_type: mask
          field: message
          parameters:
            pattern: '\d{4}-\d{4}'
exporters:
  - type: database
    name: buffer
    database:
      db_path: /var/lib/lognarrator/buffer.db
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, []string{"sshd.service", "nginx.service"}, cfg.Sources[0].Journald.Units)
	assert.Equal(t, int64(core.DefaultDatabaseBatchSize), cfg.Exporters[0].Database.BatchSize)
}

func TestLoad_YAMLUnknownField(t *testing.T) {
	path := writeFile(t, "agent.yml", `
sources:
  - type: file
    name: app
    file:
      include: [/var/log/app.log]
      follow_symlinks: true
`)

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
