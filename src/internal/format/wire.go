package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"lognarrator/src/internal/core"
)

// Record is the canonical wire shape of one entry sent to the cloud endpoint
type Record struct {
	Timestamp   int64             `json:"timestamp"`
	Severity    string            `json:"severity"`
	SeverityNum int               `json:"severity_num"`
	Body        string            `json:"body"`
	Attributes  map[string]string `json:"attributes"`
	Resource    map[string]string `json:"resource"`
}

// Batch is the signed payload
type Batch struct {
	Records []Record `json:"records"`
}

var severityNumbers = map[string]int{
	"TRACE": 1,
	"DEBUG": 5,
	"INFO":  9,
	"WARN":  13,
	"ERROR": 17,
	"FATAL": 21,
}

// NormalizeSeverity uppercases level and maps aliases; empty becomes INFO
func NormalizeSeverity(level string) string {
	s := strings.ToUpper(strings.TrimSpace(level))
	switch s {
	case "":
		return "INFO"
	case "WARNING":
		return "WARN"
	case "ERR":
		return "ERROR"
	case "CRITICAL", "CRIT", "PANIC", "EMERG", "ALERT":
		return "FATAL"
	}
	return s
}

// SeverityNumber maps a severity name to its numeric rank; unknown names rank as INFO
func SeverityNumber(severity string) int {
	if n, ok := severityNumbers[NormalizeSeverity(severity)]; ok {
		return n
	}
	return severityNumbers["INFO"]
}

// ToRecord maps an entry to its wire record
func ToRecord(entry core.LogEntry) Record {
	severity := NormalizeSeverity(entry.Level)
	attrs := entry.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}

	return Record{
		Timestamp:   entry.Time.UnixMilli(),
		Severity:    severity,
		SeverityNum: SeverityNumber(severity),
		Body:        entry.Message,
		Attributes:  attrs,
		Resource:    map[string]string{"source": entry.Source},
	}
}

// MarshalBatch serializes entries in order. Map keys are emitted sorted, so
// equal input always produces equal bytes.
func MarshalBatch(entries []core.LogEntry) ([]byte, error) {
	batch := Batch{Records: make([]Record, 0, len(entries))}
	for _, e := range entries {
		batch.Records = append(batch.Records, ToRecord(e))
	}

	data, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch: %w", err)
	}
	return data, nil
}
