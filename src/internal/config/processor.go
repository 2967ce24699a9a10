package config

// ProcessorConfig selects one processor variant by Type
type ProcessorConfig struct {
	Type string `toml:"type" yaml:"type"`
	Name string `toml:"name" yaml:"name"`

	Resource  *ResourceProcessorOptions  `toml:"resource,omitempty" yaml:"resource,omitempty"`
	Filter    *FilterProcessorOptions    `toml:"filter,omitempty" yaml:"filter,omitempty"`
	Batch     *BatchProcessorOptions     `toml:"batch,omitempty" yaml:"batch,omitempty"`
	Transform *TransformProcessorOptions `toml:"transform,omitempty" yaml:"transform,omitempty"`
}

// Attribute actions
const (
	ActionInsert = "insert"
	ActionUpdate = "update"
	ActionUpsert = "upsert"
	ActionDelete = "delete"
)

type ResourceProcessorOptions struct {
	Attributes []AttributeAction `toml:"attributes" yaml:"attributes"`
}

// AttributeAction is applied to every entry. Value may reference ${VAR}.
type AttributeAction struct {
	Action string `toml:"action" yaml:"action"`
	Key    string `toml:"key" yaml:"key"`
	Value  string `toml:"value" yaml:"value"`
}

// Match types
const (
	MatchExact  = "exact"
	MatchRegexp = "regexp"
)

type FilterProcessorOptions struct {
	Include *MatchConfig `toml:"include,omitempty" yaml:"include,omitempty"`
	Exclude *MatchConfig `toml:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// MatchConfig lists message matchers. Exact means substring containment.
type MatchConfig struct {
	MatchType string   `toml:"match_type" yaml:"match_type"`
	Exact     []string `toml:"exact" yaml:"exact"`
	Regexp    []string `toml:"regexp" yaml:"regexp"`
}

type BatchProcessorOptions struct {
	TimeoutMS     int64 `toml:"timeout_ms" yaml:"timeout_ms"`
	SendBatchSize int64 `toml:"send_batch_size" yaml:"send_batch_size"`
}

// Transform types
const (
	TransformMask    = "mask"
	TransformExtract = "extract"
	TransformRename  = "rename"
	TransformConvert = "convert"
)

type TransformProcessorOptions struct {
	Transforms []TransformRule `toml:"transforms" yaml:"transforms"`
}

// TransformRule targets the message when Field is "message", otherwise the named attribute
type TransformRule struct {
	TransformType string            `toml:"transform_type" yaml:"transform_type"`
	Field         string            `toml:"field" yaml:"field"`
	Parameters    map[string]string `toml:"parameters" yaml:"parameters"`
}
