package processor

import (
	"fmt"
	"os"
	"regexp"
	"sync/atomic"

	"lognarrator/src/internal/config"
	"lognarrator/src/internal/core"

	"github.com/lixenwraith/log"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Resource applies attribute actions to every entry
type Resource struct {
	name    string
	actions []config.AttributeAction
	lookup  func(string) (string, bool)
	logger  *log.Logger

	totalProcessed atomic.Uint64
}

// NewResource creates a resource processor
func NewResource(name string, opts *config.ResourceProcessorOptions, logger *log.Logger) (*Resource, error) {
	if opts == nil {
		return nil, fmt.Errorf("resource options cannot be nil")
	}

	actions := make([]config.AttributeAction, len(opts.Attributes))
	copy(actions, opts.Attributes)

	return &Resource{
		name:    name,
		actions: actions,
		lookup:  os.LookupEnv,
		logger:  logger,
	}, nil
}

func (r *Resource) Name() string {
	return r.name
}

// expand replaces ${VAR} with the current environment value. Unset variables
// are left as written.
func (r *Resource) expand(value string) string {
	return envVarPattern.ReplaceAllStringFunc(value, func(ref string) string {
		name := envVarPattern.FindStringSubmatch(ref)[1]
		if v, ok := r.lookup(name); ok {
			return v
		}
		return ref
	})
}

func (r *Resource) Process(entry core.LogEntry) (core.LogEntry, bool, error) {
	r.totalProcessed.Add(1)
	out := entry.Clone()

	for _, a := range r.actions {
		_, exists := out.Attributes[a.Key]

		switch a.Action {
		case config.ActionInsert:
			if !exists {
				out.SetAttribute(a.Key, r.expand(a.Value))
			}
		case config.ActionUpdate:
			if exists {
				out.SetAttribute(a.Key, r.expand(a.Value))
			}
		case config.ActionUpsert:
			out.SetAttribute(a.Key, r.expand(a.Value))
		case config.ActionDelete:
			delete(out.Attributes, a.Key)
		default:
			return entry, false, fmt.Errorf("%w: unknown attribute action '%s'", core.ErrProcessor, a.Action)
		}
	}

	return out, true, nil
}

func (r *Resource) GetStats() map[string]any {
	return map[string]any{
		"type":            "resource",
		"name":            r.name,
		"action_count":    len(r.actions),
		"total_processed": r.totalProcessed.Load(),
	}
}
