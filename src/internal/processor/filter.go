package processor

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"

	"github.com/lixenwraith/log"
)

// matcher tests a message against exact substrings and compiled patterns
type matcher struct {
	exact    []string
	patterns []*regexp.Regexp
}

func newMatcher(cfg *config.MatchConfig) (*matcher, error) {
	if cfg == nil {
		return nil, nil
	}

	m := &matcher{}
	switch cfg.MatchType {
	case config.MatchRegexp:
		for i, pattern := range cfg.Regexp {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid regex pattern[%d] '%s': %w", i, pattern, err)
			}
			m.patterns = append(m.patterns, re)
		}
	default:
		m.exact = append(m.exact, cfg.Exact...)
	}

	if len(m.exact) == 0 && len(m.patterns) == 0 {
		return nil, nil
	}
	return m, nil
}

func (m *matcher) matches(text string) bool {
	for _, s := range m.exact {
		if strings.Contains(text, s) {
			return true
		}
	}
	for _, re := range m.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Filter drops entries by message content. Exclusion wins over inclusion.
type Filter struct {
	name    string
	include *matcher
	exclude *matcher
	logger  *log.Logger

	// Statistics
	totalProcessed atomic.Uint64
	totalExcluded  atomic.Uint64
	totalNotIncl   atomic.Uint64
}

// NewFilter compiles the include and exclude matchers
func NewFilter(name string, opts *config.FilterProcessorOptions, logger *log.Logger) (*Filter, error) {
	if opts == nil {
		return nil, fmt.Errorf("filter options cannot be nil")
	}

	include, err := newMatcher(opts.Include)
	if err != nil {
		return nil, fmt.Errorf("include: %w", err)
	}
	exclude, err := newMatcher(opts.Exclude)
	if err != nil {
		return nil, fmt.Errorf("exclude: %w", err)
	}

	logger.Debug("msg", "Filter created",
		"component", "filter",
		"name", name,
		"has_include", include != nil,
		"has_exclude", exclude != nil)

	return &Filter{name: name, include: include, exclude: exclude, logger: logger}, nil
}

func (f *Filter) Name() string {
	return f.name
}

// Process keeps the entry unless an exclude matcher hits, or include matchers
// exist and none of them hits.
func (f *Filter) Process(entry core.LogEntry) (core.LogEntry, bool, error) {
	f.totalProcessed.Add(1)

	if f.exclude != nil && f.exclude.matches(entry.Message) {
		f.totalExcluded.Add(1)
		return entry, false, nil
	}

	if f.include != nil && !f.include.matches(entry.Message) {
		f.totalNotIncl.Add(1)
		return entry, false, nil
	}

	return entry, true, nil
}

func (f *Filter) GetStats() map[string]any {
	return map[string]any{
		"type":               "filter",
		"name":               f.name,
		"total_processed":    f.totalProcessed.Load(),
		"total_excluded":     f.totalExcluded.Load(),
		"total_not_included": f.totalNotIncl.Load(),
	}
}
