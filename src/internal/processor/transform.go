package processor

import (
	"fmt"
	"regexp"
	"sync/atomic"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"

	"github.com/lixenwraith/log"
)

const messageField = "message"

type transformRule struct {
	kind        string
	field       string
	re          *regexp.Regexp
	replacement string
	newName     string
}

// Transform rewrites message or attribute text
type Transform struct {
	name   string
	rules  []transformRule
	logger *log.Logger

	totalProcessed atomic.Uint64
	totalModified  atomic.Uint64
}

// NewTransform compiles every rule's pattern up front
func NewTransform(name string, opts *config.TransformProcessorOptions, logger *log.Logger) (*Transform, error) {
	if opts == nil {
		return nil, fmt.Errorf("transform options cannot be nil")
	}

	t := &Transform{name: name, logger: logger}
	for i, cfg := range opts.Transforms {
		rule := transformRule{kind: cfg.TransformType, field: cfg.Field}

		switch cfg.TransformType {
		case config.TransformMask, config.TransformExtract:
			pattern := cfg.Parameters["pattern"]
			if pattern == "" {
				return nil, fmt.Errorf("transforms[%d]: %s requires 'pattern'", i, cfg.TransformType)
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("transforms[%d]: invalid pattern: %w", i, err)
			}
			rule.re = re
			rule.replacement = core.DefaultMaskReplacement
			if r, ok := cfg.Parameters["replacement"]; ok {
				rule.replacement = r
			}
		case config.TransformRename:
			rule.newName = cfg.Parameters["new_name"]
			if rule.newName == "" {
				return nil, fmt.Errorf("transforms[%d]: rename requires 'new_name'", i)
			}
		case config.TransformConvert:
			logger.Warn("msg", "Convert transform is reserved and has no effect",
				"component", "transform",
				"name", name,
				"field", cfg.Field)
		default:
			return nil, fmt.Errorf("transforms[%d]: unknown transform_type '%s'", i, cfg.TransformType)
		}

		t.rules = append(t.rules, rule)
	}

	return t, nil
}

func (t *Transform) Name() string {
	return t.name
}

func (t *Transform) Process(entry core.LogEntry) (core.LogEntry, bool, error) {
	t.totalProcessed.Add(1)
	out := entry.Clone()
	modified := false

	for _, rule := range t.rules {
		switch rule.kind {
		case config.TransformMask:
			if rule.field == messageField {
				masked := rule.re.ReplaceAllString(out.Message, rule.replacement)
				modified = modified || masked != out.Message
				out.Message = masked
			} else if v, ok := out.Attributes[rule.field]; ok {
				masked := rule.re.ReplaceAllString(v, rule.replacement)
				modified = modified || masked != v
				out.Attributes[rule.field] = masked
			}

		case config.TransformExtract:
			value, ok := t.fieldValue(out, rule.field)
			if !ok {
				continue
			}
			loc := rule.re.FindStringSubmatchIndex(value)
			if loc == nil {
				continue
			}
			for i, groupName := range rule.re.SubexpNames() {
				// Optional groups that took no part in the match are skipped
				if groupName == "" || 2*i+1 >= len(loc) || loc[2*i] < 0 {
					continue
				}
				out.SetAttribute(groupName, value[loc[2*i]:loc[2*i+1]])
				modified = true
			}

		case config.TransformRename:
			if v, ok := out.Attributes[rule.field]; ok {
				delete(out.Attributes, rule.field)
				out.SetAttribute(rule.newName, v)
				modified = true
			}

		case config.TransformConvert:
			// Reserved
		}
	}

	if modified {
		t.totalModified.Add(1)
	}
	return out, true, nil
}

func (t *Transform) fieldValue(entry core.LogEntry, field string) (string, bool) {
	if field == messageField {
		return entry.Message, true
	}
	v, ok := entry.Attributes[field]
	return v, ok
}

func (t *Transform) GetStats() map[string]any {
	return map[string]any{
		"type":            "transform",
		"name":            t.name,
		"rule_count":      len(t.rules),
		"total_processed": t.totalProcessed.Load(),
		"total_modified":  t.totalModified.Load(),
	}
}
