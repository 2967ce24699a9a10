package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"lognarrator/src/internal/core"

	lconfig "github.com/lixenwraith/config"
)

// Type discriminators accepted in configuration documents, including the
// long-form names used by earlier agent releases.
var (
	sourceTypeAliases = map[string]string{
		"file":      "file",
		"journald":  "journald",
		"docker":    "docker",
		"http":      "http",
		"otlp/http": "http",
	}
	processorTypes = map[string]bool{
		"resource": true, "filter": true, "batch": true, "transform": true,
	}
	exporterTypeAliases = map[string]string{
		"cloud":                    "cloud",
		"lognarrator":              "cloud",
		"lognarrator/signed-cloud": "cloud",
		"localcache":               "localcache",
		"database":                 "database",
	}
)

// validateConfig checks the whole document, normalizes type aliases and fills
// per-component defaults. Every failure wraps core.ErrConfiguration.
func validateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", core.ErrConfiguration)
	}

	if cfg.Logging == nil {
		cfg.Logging = DefaultLogConfig()
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if err := validateLogConfig(cfg.Logging); err != nil {
		return fmt.Errorf("%w: logging: %v", core.ErrConfiguration, err)
	}

	if err := validatePipelineSettings(&cfg.Pipeline); err != nil {
		return fmt.Errorf("%w: pipeline: %v", core.ErrConfiguration, err)
	}

	names := make(map[string]string)
	for i := range cfg.Sources {
		if err := validateSourceConfig(i, &cfg.Sources[i], names); err != nil {
			return fmt.Errorf("%w: %v", core.ErrConfiguration, err)
		}
	}
	for i := range cfg.Processors {
		if err := validateProcessorConfig(i, &cfg.Processors[i]); err != nil {
			return fmt.Errorf("%w: %v", core.ErrConfiguration, err)
		}
	}
	for i := range cfg.Exporters {
		if err := validateExporterConfig(i, &cfg.Exporters[i], names); err != nil {
			return fmt.Errorf("%w: %v", core.ErrConfiguration, err)
		}
	}

	return nil
}

func validatePipelineSettings(p *PipelineSettings) error {
	if p.BufferSize < 0 || p.MaxParallelExports < 0 || p.DrainTimeoutMS < 0 {
		return fmt.Errorf("values must not be negative")
	}
	if p.BufferSize == 0 {
		p.BufferSize = core.DefaultChannelSize
	}
	if p.MaxParallelExports == 0 {
		p.MaxParallelExports = core.DefaultMaxParallelExports
	}
	if p.DrainTimeoutMS == 0 {
		p.DrainTimeoutMS = core.DefaultDrainTimeout.Milliseconds()
	}
	return nil
}

func checkName(kind string, index int, name string, names map[string]string) error {
	if err := lconfig.NonEmpty(name); err != nil {
		return fmt.Errorf("%s[%d]: missing name", kind, index)
	}
	if prev, exists := names[kind+"/"+name]; exists {
		return fmt.Errorf("%s[%d]: duplicate name '%s' (also %s)", kind, index, name, prev)
	}
	names[kind+"/"+name] = fmt.Sprintf("%s[%d]", kind, index)
	return nil
}

func validateSourceConfig(index int, s *SourceConfig, names map[string]string) error {
	if err := lconfig.NonEmpty(s.Type); err != nil {
		return fmt.Errorf("source[%d]: missing type", index)
	}
	canonical, ok := sourceTypeAliases[s.Type]
	if !ok {
		return fmt.Errorf("source[%d]: unknown type '%s'", index, s.Type)
	}
	s.Type = canonical

	if err := checkName("source", index, s.Name, names); err != nil {
		return err
	}

	populated := 0
	var populatedType string
	if s.File != nil {
		populated++
		populatedType = "file"
	}
	if s.Journald != nil {
		populated++
		populatedType = "journald"
	}
	if s.Docker != nil {
		populated++
		populatedType = "docker"
	}
	if s.HTTP != nil {
		populated++
		populatedType = "http"
	}

	if populated == 0 {
		return fmt.Errorf("source[%d] '%s': no configuration provided for type '%s'", index, s.Name, s.Type)
	}
	if populated > 1 {
		return fmt.Errorf("source[%d] '%s': multiple configurations provided, only one allowed", index, s.Name)
	}
	if populatedType != s.Type {
		return fmt.Errorf("source[%d] '%s': type mismatch - type is '%s' but config is for '%s'",
			index, s.Name, s.Type, populatedType)
	}

	switch s.Type {
	case "file":
		return validateFileSource(index, s.File)
	case "journald":
		return nil
	case "docker":
		return validateDockerSource(index, s.Docker)
	case "http":
		return validateHTTPSource(index, s.HTTP)
	}
	return nil
}

func validateFileSource(index int, opts *FileSourceOptions) error {
	if len(opts.Include) == 0 {
		return fmt.Errorf("source[%d]: file source requires 'include'", index)
	}
	for i, p := range opts.Include {
		if err := lconfig.NonEmpty(p); err != nil {
			return fmt.Errorf("source[%d]: include[%d] is empty", index, i)
		}
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("source[%d]: include[%d] '%s': %w", index, i, p, err)
		}
	}

	if opts.ExcludeFilenamePattern != "" {
		if _, err := regexp.Compile(opts.ExcludeFilenamePattern); err != nil {
			return fmt.Errorf("source[%d]: invalid exclude_filename_pattern: %w", index, err)
		}
	}

	switch opts.StartAt {
	case "":
		opts.StartAt = "end"
	case "beginning", "end":
	default:
		return fmt.Errorf("source[%d]: start_at must be 'beginning' or 'end', got '%s'", index, opts.StartAt)
	}

	if opts.PollIntervalMS == 0 {
		opts.PollIntervalMS = core.DefaultFilePollInterval.Milliseconds()
	}
	if opts.PollIntervalMS < 10 {
		return fmt.Errorf("source[%d]: poll_interval_ms must be at least 10ms", index)
	}
	if opts.RescanIntervalMS == 0 {
		opts.RescanIntervalMS = core.DefaultFileRescanInterval.Milliseconds()
	}
	if opts.RescanIntervalMS < 10 {
		return fmt.Errorf("source[%d]: rescan_interval_ms must be at least 10ms", index)
	}
	return nil
}

func validateDockerSource(index int, opts *DockerSourceOptions) error {
	if !opts.AllContainers && len(opts.Containers) == 0 {
		return fmt.Errorf("source[%d]: docker source requires 'containers' or 'all_containers'", index)
	}
	if opts.RescanIntervalMS == 0 {
		opts.RescanIntervalMS = core.DefaultDockerRescan.Milliseconds()
	}
	if opts.RescanIntervalMS < 100 {
		return fmt.Errorf("source[%d]: rescan_interval_ms must be at least 100ms", index)
	}
	return nil
}

func validateHTTPSource(index int, opts *HTTPSourceOptions) error {
	if err := lconfig.Port(opts.Port); err != nil {
		return fmt.Errorf("source[%d]: %w", index, err)
	}

	if opts.Interface == "" {
		opts.Interface = core.DefaultReceiverInterface
	}
	if opts.Interface != core.DefaultReceiverInterface {
		if err := lconfig.IPAddress(opts.Interface); err != nil {
			return fmt.Errorf("source[%d]: %w", index, err)
		}
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = core.DefaultMaxBodyBytes
	}

	if rl := opts.RateLimit; rl != nil {
		if rl.RequestsPerSecond <= 0 {
			return fmt.Errorf("source[%d]: rate_limit.requests_per_second must be positive", index)
		}
		if rl.BurstSize <= 0 {
			rl.BurstSize = int64(rl.RequestsPerSecond) + 1
		}
	}

	if opts.Auth != nil {
		if err := lconfig.NonEmpty(opts.Auth.JWTSigningKey); err != nil {
			return fmt.Errorf("source[%d]: auth requires 'jwt_signing_key'", index)
		}
		if len(opts.Auth.JWTSigningKey) < 32 {
			return fmt.Errorf("source[%d]: jwt_signing_key must be at least 32 characters", index)
		}
	}
	return nil
}

func validateProcessorConfig(index int, p *ProcessorConfig) error {
	if err := lconfig.NonEmpty(p.Type); err != nil {
		return fmt.Errorf("processor[%d]: missing type", index)
	}
	if !processorTypes[p.Type] {
		return fmt.Errorf("processor[%d]: unknown type '%s'", index, p.Type)
	}
	if p.Name == "" {
		p.Name = fmt.Sprintf("%s-%d", p.Type, index)
	}

	switch p.Type {
	case "resource":
		if p.Resource == nil {
			return fmt.Errorf("processor[%d] '%s': missing 'resource' options", index, p.Name)
		}
		for i, a := range p.Resource.Attributes {
			if err := lconfig.NonEmpty(a.Key); err != nil {
				return fmt.Errorf("processor[%d] '%s': attributes[%d] missing key", index, p.Name, i)
			}
			switch a.Action {
			case ActionInsert, ActionUpdate, ActionUpsert, ActionDelete:
			default:
				return fmt.Errorf("processor[%d] '%s': attributes[%d] unknown action '%s'", index, p.Name, i, a.Action)
			}
		}

	case "filter":
		if p.Filter == nil {
			return fmt.Errorf("processor[%d] '%s': missing 'filter' options", index, p.Name)
		}
		for label, m := range map[string]*MatchConfig{"include": p.Filter.Include, "exclude": p.Filter.Exclude} {
			if m == nil {
				continue
			}
			if err := validateMatchConfig(m); err != nil {
				return fmt.Errorf("processor[%d] '%s': %s: %w", index, p.Name, label, err)
			}
		}

	case "batch":
		if p.Batch == nil {
			p.Batch = &BatchProcessorOptions{}
		}
		if p.Batch.TimeoutMS < 0 || p.Batch.SendBatchSize < 0 {
			return fmt.Errorf("processor[%d] '%s': batch values must not be negative", index, p.Name)
		}

	case "transform":
		if p.Transform == nil {
			return fmt.Errorf("processor[%d] '%s': missing 'transform' options", index, p.Name)
		}
		for i, r := range p.Transform.Transforms {
			if err := validateTransformRule(r); err != nil {
				return fmt.Errorf("processor[%d] '%s': transforms[%d]: %w", index, p.Name, i, err)
			}
		}
	}
	return nil
}

func validateMatchConfig(m *MatchConfig) error {
	switch m.MatchType {
	case "":
		if len(m.Regexp) > 0 && len(m.Exact) == 0 {
			m.MatchType = MatchRegexp
		} else {
			m.MatchType = MatchExact
		}
	case MatchExact, MatchRegexp:
	default:
		return fmt.Errorf("unknown match_type '%s'", m.MatchType)
	}
	for i, pattern := range m.Regexp {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid regex pattern[%d] '%s': %w", i, pattern, err)
		}
	}
	return nil
}

func validateTransformRule(r TransformRule) error {
	if err := lconfig.NonEmpty(r.Field); err != nil {
		return fmt.Errorf("missing field")
	}
	switch r.TransformType {
	case TransformMask, TransformExtract:
		pattern, ok := r.Parameters["pattern"]
		if !ok || pattern == "" {
			return fmt.Errorf("%s requires parameter 'pattern'", r.TransformType)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern '%s': %w", pattern, err)
		}
		if r.TransformType == TransformExtract && len(namedGroups(re)) == 0 {
			return fmt.Errorf("extract pattern '%s' has no named groups", pattern)
		}
	case TransformRename:
		if strings.TrimSpace(r.Parameters["new_name"]) == "" {
			return fmt.Errorf("rename requires parameter 'new_name'")
		}
	case TransformConvert:
	default:
		return fmt.Errorf("unknown transform_type '%s'", r.TransformType)
	}
	return nil
}

func namedGroups(re *regexp.Regexp) []string {
	var groups []string
	for _, n := range re.SubexpNames() {
		if n != "" {
			groups = append(groups, n)
		}
	}
	return groups
}

func validateExporterConfig(index int, e *ExporterConfig, names map[string]string) error {
	if err := lconfig.NonEmpty(e.Type); err != nil {
		return fmt.Errorf("exporter[%d]: missing type", index)
	}
	canonical, ok := exporterTypeAliases[e.Type]
	if !ok {
		return fmt.Errorf("exporter[%d]: unknown type '%s'", index, e.Type)
	}
	e.Type = canonical

	if err := checkName("exporter", index, e.Name, names); err != nil {
		return err
	}

	switch e.Type {
	case "cloud":
		if e.Cloud == nil {
			return fmt.Errorf("exporter[%d] '%s': missing 'cloud' options", index, e.Name)
		}
		return validateCloudExporter(index, e.Cloud)
	case "localcache":
		if e.LocalCache == nil {
			return fmt.Errorf("exporter[%d] '%s': missing 'localcache' options", index, e.Name)
		}
		if err := lconfig.NonEmpty(e.LocalCache.Directory); err != nil {
			return fmt.Errorf("exporter[%d]: localcache requires 'directory'", index)
		}
		if e.LocalCache.MaxSizeMB < 0 {
			return fmt.Errorf("exporter[%d]: max_size_mb must be positive", index)
		}
		if e.LocalCache.MaxSizeMB == 0 {
			e.LocalCache.MaxSizeMB = core.DefaultCacheMaxSizeMB
		}
	case "database":
		if e.Database == nil {
			return fmt.Errorf("exporter[%d] '%s': missing 'database' options", index, e.Name)
		}
		if err := lconfig.NonEmpty(e.Database.DBPath); err != nil {
			return fmt.Errorf("exporter[%d]: database requires 'db_path'", index)
		}
		if e.Database.BatchSize <= 0 {
			e.Database.BatchSize = core.DefaultDatabaseBatchSize
		}
		if e.Database.RetentionHours <= 0 {
			e.Database.RetentionHours = int64(core.DefaultDatabaseRetention.Hours())
		}
	}
	return nil
}

func validateCloudExporter(index int, opts *CloudExporterOptions) error {
	if err := lconfig.NonEmpty(opts.Endpoint); err != nil {
		return fmt.Errorf("exporter[%d]: cloud requires 'endpoint'", index)
	}
	if !strings.HasPrefix(opts.Endpoint, "http://") && !strings.HasPrefix(opts.Endpoint, "https://") {
		return fmt.Errorf("exporter[%d]: endpoint must be an http(s) URL: %s", index, opts.Endpoint)
	}
	if err := lconfig.NonEmpty(opts.ClientID); err != nil {
		return fmt.Errorf("exporter[%d]: cloud requires 'client_id'", index)
	}
	if err := lconfig.NonEmpty(opts.KeyPath); err != nil {
		return fmt.Errorf("exporter[%d]: cloud requires 'key_path'", index)
	}

	if opts.BatchSize <= 0 {
		opts.BatchSize = core.DefaultCloudBatchSize
	}
	if opts.FlushIntervalSeconds <= 0 {
		opts.FlushIntervalSeconds = int64(core.DefaultCloudFlushInterval.Seconds())
	}
	if opts.TimeoutSeconds <= 0 {
		opts.TimeoutSeconds = int64(core.DefaultCloudTimeout.Seconds())
	}
	// Negative disables retries
	switch {
	case opts.MaxRetries == 0:
		opts.MaxRetries = core.DefaultCloudMaxRetries
	case opts.MaxRetries < 0:
		opts.MaxRetries = 0
	}
	return nil
}
