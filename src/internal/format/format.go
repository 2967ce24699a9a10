package format

import (
	"lognarrator/src/internal/core"
)

// Formatter turns a LogEntry into one serialized line
type Formatter interface {
	// Format returns the serialized entry without a trailing newline
	Format(entry core.LogEntry) ([]byte, error)

	// Extension is the file extension used for files holding this format
	Extension() string
}
