package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/signing"
	"lognarrator/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/spf13/pflag"
)

var logger *log.Logger

func main() {
	flagCfg, err := ParseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	setQuiet(flagCfg.Quiet)

	if flagCfg.ShowVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	if flagCfg.GenerateKeys != "" {
		privPath, pubPath, err := signing.GenerateKeyPair(flagCfg.GenerateKeys)
		if err != nil {
			FatalError(1, "Failed to generate keys: %v\n", err)
		}
		Print("Private key: %s\nPublic key:  %s\n", privPath, pubPath)
		os.Exit(0)
	}

	if flagCfg.InitConfig != "" {
		if err := config.Example().SaveToFile(flagCfg.InitConfig); err != nil {
			FatalError(1, "Failed to write config: %v\n", err)
		}
		Print("Example configuration written to %s\n", flagCfg.InitConfig)
		os.Exit(0)
	}

	cfg, err := config.Load(flagCfg.ConfigFile, flagCfg.Overrides)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			FatalError(2, "Config file not found: %s\n", configPath(flagCfg))
		}
		FatalError(1, "Failed to load config: %v\n", err)
	}
	applyFlagOverrides(cfg, flagCfg)

	if err := initializeLogger(cfg.Logging, flagCfg.Quiet); err != nil {
		FatalError(1, "Failed to initialize logger: %v\n", err)
	}
	defer shutdownLogger()

	logger.Info("msg", "LogNarrator starting",
		"version", version.String(),
		"config_file", configPath(flagCfg),
		"log_output", cfg.Logging.Output)

	collector, err := bootstrapCollector(cfg)
	if err != nil {
		logger.Error("msg", "Failed to start collector", "error", err)
		shutdownLogger()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if enableStatusReporter() {
		go statusReporter(ctx, collector, statusInterval)
	}

	sig := waitForSignal(ctx)
	logger.Info("msg", "Shutdown signal received, starting graceful shutdown",
		"signal", fmt.Sprint(sig))
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- collector.Stop()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("msg", "Shutdown completed with errors", "error", err)
			shutdownLogger()
			os.Exit(1)
		}
		logger.Info("msg", "Shutdown complete")
	case <-time.After(flagCfg.ShutdownTimeout):
		logger.Error("msg", "Shutdown timeout exceeded, forcing exit",
			"timeout", flagCfg.ShutdownTimeout)
		shutdownLogger()
		os.Exit(1)
	}
}

func configPath(fc *FlagConfig) string {
	if fc.ConfigFile != "" {
		return fc.ConfigFile
	}
	return config.GetConfigPath()
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			Error("Logger shutdown error: %v\n", err)
		}
	}
}
