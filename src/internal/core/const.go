package core

import "time"

const (
	// DefaultChannelSize bounds the ingest and export channels of a pipeline
	DefaultChannelSize = 1000
	// DefaultMaxParallelExports bounds concurrent exporter calls per entry
	DefaultMaxParallelExports = 10
	DefaultDrainTimeout       = 5 * time.Second

	DefaultReceiverInterface = "0.0.0.0"
	DefaultMaxBodyBytes      = 4 * 1024 * 1024

	DefaultCloudBatchSize     = 100
	DefaultCloudFlushInterval = 30 * time.Second
	DefaultCloudTimeout       = 10 * time.Second
	DefaultCloudMaxRetries    = 3

	DefaultCacheMaxSizeMB     = 10
	DefaultDatabaseBatchSize  = 100
	DefaultDatabaseRetention  = 168 * time.Hour
	DefaultMaskReplacement    = "*****"
	DefaultFilePollInterval   = 100 * time.Millisecond
	DefaultFileRescanInterval = time.Second
	DefaultDockerRescan       = 10 * time.Second
)
