package config

// ExporterConfig selects one exporter variant by Type
type ExporterConfig struct {
	Type string `toml:"type" yaml:"type"`
	Name string `toml:"name" yaml:"name"`

	Cloud      *CloudExporterOptions      `toml:"cloud,omitempty" yaml:"cloud,omitempty"`
	LocalCache *LocalCacheExporterOptions `toml:"localcache,omitempty" yaml:"localcache,omitempty"`
	Database   *DatabaseExporterOptions   `toml:"database,omitempty" yaml:"database,omitempty"`
}

// CloudExporterOptions configures the signed batch uploader
type CloudExporterOptions struct {
	Endpoint             string `toml:"endpoint" yaml:"endpoint"`
	ClientID             string `toml:"client_id" yaml:"client_id"`
	KeyPath              string `toml:"key_path" yaml:"key_path"`
	BatchSize            int64  `toml:"batch_size" yaml:"batch_size"`
	FlushIntervalSeconds int64  `toml:"flush_interval_seconds" yaml:"flush_interval_seconds"`
	TimeoutSeconds       int64  `toml:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries           int64  `toml:"max_retries" yaml:"max_retries"`
	Compress             bool   `toml:"compress" yaml:"compress"`

	// Batches that could not be delivered are written here as cache files
	FallbackDirectory string `toml:"fallback_directory" yaml:"fallback_directory"`
}

type LocalCacheExporterOptions struct {
	Directory string `toml:"directory" yaml:"directory"`
	MaxSizeMB int64  `toml:"max_size_mb" yaml:"max_size_mb"`
}

type DatabaseExporterOptions struct {
	DBPath         string `toml:"db_path" yaml:"db_path"`
	BatchSize      int64  `toml:"batch_size" yaml:"batch_size"`
	RetentionHours int64  `toml:"retention_hours" yaml:"retention_hours"`
}
