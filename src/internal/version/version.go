package version

import (
	"fmt"
	"runtime"
)

// Build metadata, overridden with -ldflags "-X lognarrator/src/internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String describes the build for --version and startup logs
func String() string {
	return fmt.Sprintf("lognarrator %s (%s, %s, %s/%s)",
		Version, GitCommit, BuildTime, runtime.GOOS, runtime.GOARCH)
}

// Short is the bare tag, also sent in the cloud exporter's User-Agent
func Short() string {
	return Version
}
