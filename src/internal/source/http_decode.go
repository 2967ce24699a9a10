package source

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"lognarrator/src/internal/core"

	"github.com/valyala/fastjson"
)

// decodeEntries accepts a wire batch ({"records":[...]}), an OTLP JSON export
// ({"resourceLogs":[...]}), an array of entries, a single entry or NDJSON.
func decodeEntries(p *fastjson.Parser, body []byte, sourceName string) ([]core.LogEntry, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty request body")
	}

	v, err := p.ParseBytes(body)
	if err != nil {
		return decodeNDJSON(body, sourceName)
	}

	switch v.Type() {
	case fastjson.TypeArray:
		items, _ := v.Array()
		entries := make([]core.LogEntry, 0, len(items))
		for i, item := range items {
			entry, err := decodeEntry(item, sourceName)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			entries = append(entries, entry)
		}
		return entries, nil

	case fastjson.TypeObject:
		if records := v.Get("records"); records != nil {
			return decodeRecords(records, sourceName)
		}
		if resourceLogs := v.Get("resourceLogs"); resourceLogs != nil {
			return decodeOTLP(resourceLogs, sourceName)
		}
		entry, err := decodeEntry(v, sourceName)
		if err != nil {
			return nil, err
		}
		return []core.LogEntry{entry}, nil
	}

	return nil, fmt.Errorf("unsupported JSON payload type %s", v.Type())
}

func decodeNDJSON(body []byte, sourceName string) ([]core.LogEntry, error) {
	var p fastjson.Parser
	var entries []core.LogEntry

	for i, line := range bytes.Split(body, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		v, err := p.ParseBytes(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		entry, err := decodeEntry(v, sourceName)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("no valid log entries found")
	}
	return entries, nil
}

// decodeEntry reads the entry shape used by the cache files and by clients
func decodeEntry(v *fastjson.Value, sourceName string) (core.LogEntry, error) {
	if v.Type() != fastjson.TypeObject {
		return core.LogEntry{}, fmt.Errorf("entry must be an object")
	}

	entry := core.LogEntry{
		Time:    decodeTime(firstOf(v, "timestamp", "time")),
		Source:  sourceName,
		Level:   string(firstOf(v, "level", "severity").GetStringBytes()),
		Message: string(firstOf(v, "message", "msg", "body").GetStringBytes()),
	}
	if entry.Message == "" {
		return core.LogEntry{}, fmt.Errorf("missing required field: message")
	}

	if origin := v.GetStringBytes("source"); len(origin) > 0 {
		entry.SetAttribute("sender.source", string(origin))
	}
	copyStringMap(&entry, v.Get("attributes"))
	entry.RawSize = int64(len(entry.Message))
	return entry, nil
}

func decodeRecords(records *fastjson.Value, sourceName string) ([]core.LogEntry, error) {
	items, err := records.Array()
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}

	entries := make([]core.LogEntry, 0, len(items))
	for i, r := range items {
		body := string(r.GetStringBytes("body"))
		if body == "" {
			return nil, fmt.Errorf("record %d: missing body", i)
		}
		entry := core.LogEntry{
			Time:    decodeTime(r.Get("timestamp")),
			Source:  sourceName,
			Level:   string(r.GetStringBytes("severity")),
			Message: body,
			RawSize: int64(len(body)),
		}
		copyStringMap(&entry, r.Get("attributes"))
		if origin := r.GetStringBytes("resource", "source"); len(origin) > 0 {
			entry.SetAttribute("sender.source", string(origin))
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// decodeOTLP flattens OTLP/JSON resourceLogs into entries. Resource
// attributes are merged under record attributes.
func decodeOTLP(resourceLogs *fastjson.Value, sourceName string) ([]core.LogEntry, error) {
	resources, err := resourceLogs.Array()
	if err != nil {
		return nil, fmt.Errorf("resourceLogs: %w", err)
	}

	var entries []core.LogEntry
	for _, rl := range resources {
		resourceAttrs := otlpAttributes(rl.GetArray("resource", "attributes"))
		for _, sl := range rl.GetArray("scopeLogs") {
			for _, lr := range sl.GetArray("logRecords") {
				entry := core.LogEntry{
					Time:    otlpTime(lr),
					Source:  sourceName,
					Level:   string(lr.GetStringBytes("severityText")),
					Message: otlpValue(lr.Get("body")),
				}
				for k, val := range resourceAttrs {
					entry.SetAttribute(k, val)
				}
				for k, val := range otlpAttributes(lr.GetArray("attributes")) {
					entry.SetAttribute(k, val)
				}
				entry.RawSize = int64(len(entry.Message))
				entries = append(entries, entry)
			}
		}
	}
	return entries, nil
}

func otlpTime(lr *fastjson.Value) time.Time {
	for _, key := range []string{"timeUnixNano", "observedTimeUnixNano"} {
		raw := lr.Get(key)
		if raw == nil {
			continue
		}
		var nanos int64
		switch raw.Type() {
		case fastjson.TypeString:
			nanos, _ = strconv.ParseInt(string(raw.GetStringBytes()), 10, 64)
		case fastjson.TypeNumber:
			nanos = raw.GetInt64()
		}
		if nanos > 0 {
			return time.Unix(0, nanos)
		}
	}
	return time.Now()
}

func otlpAttributes(items []*fastjson.Value) map[string]string {
	out := make(map[string]string, len(items))
	for _, kv := range items {
		key := string(kv.GetStringBytes("key"))
		if key == "" {
			continue
		}
		out[key] = otlpValue(kv.Get("value"))
	}
	return out
}

// otlpValue renders an AnyValue as a string
func otlpValue(v *fastjson.Value) string {
	if v == nil {
		return ""
	}
	if s := v.Get("stringValue"); s != nil {
		return string(s.GetStringBytes())
	}
	if b := v.Get("boolValue"); b != nil {
		return b.String()
	}
	if i := v.Get("intValue"); i != nil {
		if i.Type() == fastjson.TypeString {
			return string(i.GetStringBytes())
		}
		return i.String()
	}
	if d := v.Get("doubleValue"); d != nil {
		return d.String()
	}
	return v.String()
}

func firstOf(v *fastjson.Value, keys ...string) *fastjson.Value {
	for _, k := range keys {
		if f := v.Get(k); f != nil {
			return f
		}
	}
	return nil
}

// decodeTime accepts RFC3339 strings or unix milliseconds, defaulting to now
func decodeTime(v *fastjson.Value) time.Time {
	if v == nil {
		return time.Now()
	}
	switch v.Type() {
	case fastjson.TypeString:
		if ts, err := time.Parse(time.RFC3339Nano, string(v.GetStringBytes())); err == nil {
			return ts
		}
	case fastjson.TypeNumber:
		if ms := v.GetInt64(); ms > 0 {
			return time.UnixMilli(ms)
		}
	}
	return time.Now()
}

func copyStringMap(entry *core.LogEntry, obj *fastjson.Value) {
	if obj == nil || obj.Type() != fastjson.TypeObject {
		return
	}
	o, _ := obj.Object()
	o.Visit(func(key []byte, val *fastjson.Value) {
		switch val.Type() {
		case fastjson.TypeString:
			entry.SetAttribute(string(key), string(val.GetStringBytes()))
		case fastjson.TypeNumber, fastjson.TypeTrue, fastjson.TypeFalse:
			entry.SetAttribute(string(key), val.String())
		}
	})
}
