package main

import (
	"context"
	"os"
	"time"

	"lognarrator/src/internal/service"
)

const statusInterval = 30 * time.Second

func enableStatusReporter() bool {
	return os.Getenv("LOGNARRATOR_DISABLE_STATUS_REPORTER") != "1"
}

// statusReporter periodically logs pipeline counters
func statusReporter(ctx context.Context, collector *service.Collector, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("msg", "Panic in status reporter",
							"component", "status_reporter",
							"panic", r)
					}
				}()
				logPipelineStatus(collector.GetStats())
			}()
		}
	}
}

func logPipelineStatus(stats map[string]any) {
	pipeline, ok := stats["pipeline"].(map[string]any)
	if !ok {
		return
	}

	fields := []any{
		"msg", "Pipeline status",
		"component", "status_reporter",
	}
	for _, key := range []string{
		"uptime_seconds",
		"total_ingested",
		"total_dropped",
		"total_exported",
		"total_export_errors",
	} {
		if v, ok := pipeline[key]; ok {
			fields = append(fields, key, v)
		}
	}
	logger.Info(fields...)

	exporters, _ := pipeline["exporters"].([]map[string]any)
	for _, exp := range exporters {
		logger.Debug("msg", "Exporter status",
			"component", "status_reporter",
			"exporter", exp["name"],
			"type", exp["type"],
			"exported", exp["total_exported"],
			"failed", exp["total_failed"],
			"buffered", exp["buffered"])
	}
}
