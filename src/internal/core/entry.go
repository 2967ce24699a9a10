package core

import (
	"time"
)

// LogEntry is a single log record flowing through the pipeline.
type LogEntry struct {
	Time       time.Time         `json:"time"`
	Source     string            `json:"source"`
	Level      string            `json:"level,omitempty"`
	Message    string            `json:"message"`
	Attributes map[string]string `json:"attributes,omitempty"`
	RawSize    int64             `json:"-"`
}

// Clone returns a copy that shares no mutable state with e.
func (e LogEntry) Clone() LogEntry {
	c := e
	if e.Attributes != nil {
		c.Attributes = make(map[string]string, len(e.Attributes))
		for k, v := range e.Attributes {
			c.Attributes[k] = v
		}
	}
	return c
}

// SetAttribute sets key on the entry, allocating the map on first use.
func (e *LogEntry) SetAttribute(key, value string) {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
}
