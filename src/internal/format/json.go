package format

import (
	"encoding/json"
	"fmt"
	"time"

	"lognarrator/src/internal/core"
)

// cacheLine is the on-disk shape of one cached entry
type cacheLine struct {
	Timestamp  string            `json:"timestamp"`
	Source     string            `json:"source"`
	Level      string            `json:"level,omitempty"`
	Message    string            `json:"message"`
	// Always written so an empty map and a nil map stay distinct on disk
	Attributes map[string]string `json:"attributes"`
}

// JSONFormatter writes the local cache line format
type JSONFormatter struct{}

// NewJSONFormatter creates the cache line formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format serializes entry as a single JSON object
func (f *JSONFormatter) Format(entry core.LogEntry) ([]byte, error) {
	line := cacheLine{
		Timestamp:  entry.Time.UTC().Format(time.RFC3339Nano),
		Source:     entry.Source,
		Level:      entry.Level,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}

	out, err := json.Marshal(line)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entry: %w", err)
	}
	return out, nil
}

func (f *JSONFormatter) Extension() string {
	return "jsonl"
}

// ParseLine reverses Format
func ParseLine(data []byte) (core.LogEntry, error) {
	var line cacheLine
	if err := json.Unmarshal(data, &line); err != nil {
		return core.LogEntry{}, fmt.Errorf("invalid cache line: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, line.Timestamp)
	if err != nil {
		return core.LogEntry{}, fmt.Errorf("invalid cache line timestamp %q: %w", line.Timestamp, err)
	}

	return core.LogEntry{
		Time:       ts,
		Source:     line.Source,
		Level:      line.Level,
		Message:    line.Message,
		Attributes: line.Attributes,
	}, nil
}
