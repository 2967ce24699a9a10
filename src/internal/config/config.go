package config

// Config is the root document. It is loaded once and treated as read-only afterwards.
type Config struct {
	Logging    *LogConfig        `toml:"logging" yaml:"logging"`
	Pipeline   PipelineSettings  `toml:"pipeline" yaml:"pipeline"`
	Sources    []SourceConfig    `toml:"sources" yaml:"sources"`
	Processors []ProcessorConfig `toml:"processors" yaml:"processors"`
	Exporters  []ExporterConfig  `toml:"exporters" yaml:"exporters"`
}

// PipelineSettings tunes the channel plumbing between stages
type PipelineSettings struct {
	// Capacity of the ingest and export channels
	BufferSize int64 `toml:"buffer_size" yaml:"buffer_size"`

	// Upper bound of simultaneous exporter calls for one entry
	MaxParallelExports int64 `toml:"max_parallel_exports" yaml:"max_parallel_exports"`

	// How long stop waits for in-flight entries before cancelling the stages
	DrainTimeoutMS int64 `toml:"drain_timeout_ms" yaml:"drain_timeout_ms"`
}
