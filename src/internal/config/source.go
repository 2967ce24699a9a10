package config

// SourceConfig selects one source variant by Type. Exactly one option block must be set.
type SourceConfig struct {
	Type string `toml:"type" yaml:"type"`
	Name string `toml:"name" yaml:"name"`

	File     *FileSourceOptions     `toml:"file,omitempty" yaml:"file,omitempty"`
	Journald *JournaldSourceOptions `toml:"journald,omitempty" yaml:"journald,omitempty"`
	Docker   *DockerSourceOptions   `toml:"docker,omitempty" yaml:"docker,omitempty"`
	HTTP     *HTTPSourceOptions     `toml:"http,omitempty" yaml:"http,omitempty"`
}

// FileSourceOptions tails files matching Include
type FileSourceOptions struct {
	Include                []string `toml:"include" yaml:"include"`
	ExcludeFilenamePattern string   `toml:"exclude_filename_pattern" yaml:"exclude_filename_pattern"`

	// "beginning" or "end"
	StartAt string `toml:"start_at" yaml:"start_at"`

	PollIntervalMS   int64 `toml:"poll_interval_ms" yaml:"poll_interval_ms"`
	RescanIntervalMS int64 `toml:"rescan_interval_ms" yaml:"rescan_interval_ms"`
}

type JournaldSourceOptions struct {
	// Journal storage directory, empty for the system default
	Directory string   `toml:"directory" yaml:"directory"`
	Units     []string `toml:"units" yaml:"units"`
}

type DockerSourceOptions struct {
	Containers       []string `toml:"containers" yaml:"containers"`
	AllContainers    bool     `toml:"all_containers" yaml:"all_containers"`
	Host             string   `toml:"host" yaml:"host"`
	RescanIntervalMS int64    `toml:"rescan_interval_ms" yaml:"rescan_interval_ms"`
}

// HTTPSourceOptions configures the ingestion receiver
type HTTPSourceOptions struct {
	Port         int64  `toml:"port" yaml:"port"`
	Interface    string `toml:"interface" yaml:"interface"`
	MaxBodyBytes int64  `toml:"max_body_bytes" yaml:"max_body_bytes"`

	RateLimit *RateLimitConfig    `toml:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	Auth      *ReceiverAuthConfig `toml:"auth,omitempty" yaml:"auth,omitempty"`
}

// RateLimitConfig limits requests per client address
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int64   `toml:"burst_size" yaml:"burst_size"`
}

// ReceiverAuthConfig enables JWT bearer authentication on the ingest route
type ReceiverAuthConfig struct {
	JWTSigningKey string `toml:"jwt_signing_key" yaml:"jwt_signing_key"`
	Issuer        string `toml:"issuer" yaml:"issuer"`
	Audience      string `toml:"audience" yaml:"audience"`
}
