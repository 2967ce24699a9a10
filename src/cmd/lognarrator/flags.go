package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lixenwraith/log"
	"github.com/spf13/pflag"
)

// FlagConfig holds the parsed command line
type FlagConfig struct {
	ConfigFile      string
	LogLevel        string
	LogOutput       string
	GenerateKeys    string
	InitConfig      string
	ShowVersion     bool
	Quiet           bool
	ShutdownTimeout time.Duration

	// Remaining arguments, handed to the config loader as overrides
	Overrides []string
}

const defaultShutdownTimeout = 15 * time.Second

// ParseFlags parses args, which excludes the program name
func ParseFlags(args []string) (*FlagConfig, error) {
	fc := &FlagConfig{}

	fs := pflag.NewFlagSet("lognarrator", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() { fmt.Fprint(os.Stderr, helpText) }
	// Dotted overrides such as --pipeline.buffer_size=500 pass through to the loader
	fs.ParseErrorsWhitelist.UnknownFlags = true

	fs.StringVarP(&fc.ConfigFile, "config", "c", "", "Config file path")
	fs.StringVar(&fc.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	fs.StringVar(&fc.LogOutput, "log-output", "", "Log output: file, stdout, stderr, both, none (overrides config)")
	fs.StringVar(&fc.GenerateKeys, "generate-keys", "", "Write a signing keypair to <path>.private and <path>.public, then exit")
	fs.StringVar(&fc.InitConfig, "init-config", "", "Write an example config file to the given path, then exit")
	fs.BoolVarP(&fc.ShowVersion, "version", "v", false, "Show version information")
	fs.BoolVarP(&fc.Quiet, "quiet", "q", false, "Suppress all console output")
	fs.DurationVar(&fc.ShutdownTimeout, "shutdown-timeout", defaultShutdownTimeout, "Upper bound for graceful shutdown")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	for _, arg := range args {
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, ".") && fs.Lookup(flagName(arg)) == nil {
			fc.Overrides = append(fc.Overrides, arg)
		}
	}

	if err := fc.validate(); err != nil {
		return nil, err
	}
	return fc, nil
}

func (fc *FlagConfig) validate() error {
	if fc.LogOutput != "" {
		validOutputs := map[string]bool{
			"file": true, "stdout": true, "stderr": true,
			"both": true, "none": true,
		}
		if !validOutputs[fc.LogOutput] {
			return fmt.Errorf("invalid log-output: %s (valid: file, stdout, stderr, both, none)", fc.LogOutput)
		}
	}

	if fc.LogLevel != "" {
		if _, err := parseLogLevel(fc.LogLevel); err != nil {
			return fmt.Errorf("invalid log-level: %s (valid: debug, info, warn, error)", fc.LogLevel)
		}
	}

	if fc.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown-timeout must be positive")
	}
	return nil
}

func flagName(arg string) string {
	name := strings.TrimPrefix(arg, "--")
	if i := strings.IndexByte(name, '='); i >= 0 {
		name = name[:i]
	}
	return name
}

func parseLogLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int(log.LevelDebug), nil
	case "info":
		return int(log.LevelInfo), nil
	case "warn", "warning":
		return int(log.LevelWarn), nil
	case "error":
		return int(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
