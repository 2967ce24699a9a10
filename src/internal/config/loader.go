package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lognarrator/src/internal/core"

	"github.com/BurntSushi/toml"
	lconfig "github.com/lixenwraith/config"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix     = "LOGNARRATOR_"
	maxConfigSize = 4 * 1024 * 1024
)

func defaults() *Config {
	return &Config{
		Logging: DefaultLogConfig(),
		Pipeline: PipelineSettings{
			BufferSize:         core.DefaultChannelSize,
			MaxParallelExports: core.DefaultMaxParallelExports,
			DrainTimeoutMS:     core.DefaultDrainTimeout.Milliseconds(),
		},
	}
}

// Load reads the configuration document at path, or the default location when
// path is empty. TOML documents are layered with environment and CLI
// overrides; YAML documents are decoded as-is.
func Load(path string, cliArgs []string) (*Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path)
	default:
		return loadTOML(path, cliArgs)
	}
}

// Validate normalizes and checks a programmatically built configuration
func (c *Config) Validate() error {
	return validateConfig(c)
}

func loadTOML(path string, cliArgs []string) (*Config, error) {
	if err := checkUnknownKeys(path); err != nil {
		return nil, err
	}

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix(envPrefix).
		WithFile(path).
		WithArgs(cliArgs).
		WithEnvTransform(customEnvTransform).
		WithSecurityOptions(lconfig.SecurityOptions{
			PreventPathTraversal: true,
			MaxFileSize:          maxConfigSize,
		}).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load config: %v", core.ErrConfiguration, err)
	}

	finalConfig := &Config{}
	if err := cfg.Scan("", finalConfig); err != nil {
		return nil, fmt.Errorf("%w: failed to scan config: %v", core.ErrConfiguration, err)
	}

	return finalConfig, validateConfig(finalConfig)
}

// checkUnknownKeys rejects documents carrying keys that map to no field
func checkUnknownKeys(path string) error {
	md, err := toml.DecodeFile(path, &Config{})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: config file not found: %s", core.ErrConfiguration, path)
		}
		return fmt.Errorf("%w: failed to parse %s: %v", core.ErrConfiguration, path, err)
	}

	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return fmt.Errorf("%w: unknown keys in %s: %s", core.ErrConfiguration, path, strings.Join(keys, ", "))
}

func loadYAML(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: config file not found: %s", core.ErrConfiguration, path)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrConfiguration, err)
	}
	defer f.Close()

	cfg := defaults()
	dec := yaml.NewDecoder(io.LimitReader(f, maxConfigSize))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", core.ErrConfiguration, path, err)
	}

	return cfg, validateConfig(cfg)
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = envPrefix + env
	return env
}

// GetConfigPath resolves the config location from the environment
func GetConfigPath() string {
	if configFile := os.Getenv(envPrefix + "CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv(envPrefix + "CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv(envPrefix + "CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "lognarrator.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "lognarrator.toml")
	}

	return "lognarrator.toml"
}
