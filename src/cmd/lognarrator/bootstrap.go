package main

import (
	"fmt"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/service"
	"lognarrator/src/internal/version"

	"github.com/lixenwraith/log"
)

// bootstrapCollector creates and starts the collector
func bootstrapCollector(cfg *config.Config) (*service.Collector, error) {
	collector, err := service.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := collector.Start(); err != nil {
		return nil, err
	}

	for _, src := range cfg.Sources {
		logger.Debug("msg", "Source configured",
			"component", "main",
			"type", src.Type,
			"name", src.Name)
	}
	for _, exp := range cfg.Exporters {
		logger.Debug("msg", "Exporter configured",
			"component", "main",
			"type", exp.Type,
			"name", exp.Name)
	}

	logger.Info("msg", "LogNarrator started",
		"version", version.Short(),
		"sources", len(cfg.Sources),
		"exporters", len(cfg.Exporters))
	return collector, nil
}

// applyFlagOverrides lets the logging flags win over every config source
func applyFlagOverrides(cfg *config.Config, fc *FlagConfig) {
	if cfg.Logging == nil {
		cfg.Logging = config.DefaultLogConfig()
	}
	if fc.LogLevel != "" {
		cfg.Logging.Level = fc.LogLevel
	}
	if fc.LogOutput != "" {
		cfg.Logging.Output = fc.LogOutput
	}
}

// initializeLogger sets up the logger based on configuration
func initializeLogger(cfg *config.LogConfig, quiet bool) error {
	logger = log.NewLogger()

	configArgs, err := loggerArgs(cfg, quiet)
	if err != nil {
		return err
	}
	return logger.InitWithDefaults(configArgs...)
}

// loggerArgs maps the logging section to logger init arguments
func loggerArgs(cfg *config.LogConfig, quiet bool) ([]string, error) {
	if quiet {
		return []string{
			"disable_file=true",
			"enable_stdout=false",
			"level=255",
		}, nil
	}

	levelValue, err := parseLogLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	configArgs := []string{fmt.Sprintf("level=%d", levelValue)}

	switch cfg.Output {
	case "none":
		configArgs = append(configArgs, "disable_file=true", "enable_stdout=false")

	case "stdout", "stderr":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target="+cfg.Output)

	case "file":
		configArgs = append(configArgs, "enable_stdout=false")
		configArgs = append(configArgs, fileArgs(cfg)...)

	case "both":
		configArgs = append(configArgs, "enable_stdout=true")
		configArgs = append(configArgs, fileArgs(cfg)...)
		configArgs = append(configArgs, consoleArgs(cfg)...)

	default:
		return nil, fmt.Errorf("invalid log output mode: %s", cfg.Output)
	}

	if cfg.Console != nil && cfg.Console.Format != "" {
		configArgs = append(configArgs, "format="+cfg.Console.Format)
	}
	return configArgs, nil
}

func fileArgs(cfg *config.LogConfig) []string {
	if cfg.File == nil {
		return nil
	}
	args := []string{
		"directory=" + cfg.File.Directory,
		"name=" + cfg.File.Name,
		fmt.Sprintf("max_size_mb=%d", cfg.File.MaxSizeMB),
		fmt.Sprintf("max_total_size_mb=%d", cfg.File.MaxTotalSizeMB),
	}
	if cfg.File.RetentionHours > 0 {
		args = append(args, fmt.Sprintf("retention_period_hrs=%.1f", cfg.File.RetentionHours))
	}
	return args
}

func consoleArgs(cfg *config.LogConfig) []string {
	target := "stderr"
	if cfg.Console != nil && cfg.Console.Target != "" {
		target = cfg.Console.Target
	}

	// Split routes info/debug to stdout and warn/error to stderr
	if target == "split" {
		return []string{"stdout_split_mode=true", "stdout_target=split"}
	}
	return []string{"stdout_target=" + target}
}
