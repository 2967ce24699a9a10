package config

import (
	"fmt"
	"slices"
)

// LogConfig configures the agent's own diagnostics, not the collected logs
type LogConfig struct {
	Output  string            `toml:"output" yaml:"output"` // file|stdout|stderr|both|none
	Level   string            `toml:"level" yaml:"level"`   // debug|info|warn|error
	File    *LogFileConfig    `toml:"file" yaml:"file"`
	Console *LogConsoleConfig `toml:"console" yaml:"console"`
}

// LogFileConfig is used when Output is "file" or "both"
type LogFileConfig struct {
	Directory      string  `toml:"directory" yaml:"directory"`
	Name           string  `toml:"name" yaml:"name"`
	MaxSizeMB      int64   `toml:"max_size_mb" yaml:"max_size_mb"`
	MaxTotalSizeMB int64   `toml:"max_total_size_mb" yaml:"max_total_size_mb"`
	RetentionHours float64 `toml:"retention_hours" yaml:"retention_hours"`
}

// LogConsoleConfig selects the console stream. Target "split" sends
// debug/info to stdout and warn/error to stderr.
type LogConsoleConfig struct {
	Target string `toml:"target" yaml:"target"`
	Format string `toml:"format" yaml:"format"` // txt|json
}

var (
	logOutputs        = []string{"file", "stdout", "stderr", "both", "none"}
	logLevels         = []string{"debug", "info", "warn", "error"}
	logConsoleTargets = []string{"", "stdout", "stderr", "split"}
	logConsoleFormats = []string{"", "txt", "json"}
)

func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Output: "stderr",
		Level:  "info",
		File: &LogFileConfig{
			Directory:      "./log",
			Name:           "lognarrator",
			MaxSizeMB:      100,
			MaxTotalSizeMB: 1000,
			RetentionHours: 168,
		},
		Console: &LogConsoleConfig{
			Target: "stderr",
			Format: "txt",
		},
	}
}

func validateLogConfig(cfg *LogConfig) error {
	if (cfg.Output == "file" || cfg.Output == "both") && cfg.File == nil {
		return fmt.Errorf("log output '%s' requires a [logging.file] section", cfg.Output)
	}

	switch {
	case !slices.Contains(logOutputs, cfg.Output):
		return fmt.Errorf("invalid log output mode: %s", cfg.Output)
	case !slices.Contains(logLevels, cfg.Level):
		return fmt.Errorf("invalid log level: %s", cfg.Level)
	case cfg.Console == nil:
		return nil
	case !slices.Contains(logConsoleTargets, cfg.Console.Target):
		return fmt.Errorf("invalid console target: %s", cfg.Console.Target)
	case !slices.Contains(logConsoleFormats, cfg.Console.Format):
		return fmt.Errorf("invalid console format: %s", cfg.Console.Format)
	}
	return nil
}
