package output

// Default limits for output processing, tuned for typical LLM context windows.
const (
	// DefaultMaxRows is the default number of rows kept from _cat responses.
	DefaultMaxRows = 200

	// DefaultMaxHits is the default number of search hits kept per response.
	DefaultMaxHits = 50

	// DefaultMaxResponseBytes is the default hard limit on rendered output (512KB).
	DefaultMaxResponseBytes = 512 * 1024

	// AbsoluteMaxRows caps MaxRows regardless of configuration.
	AbsoluteMaxRows = 5000

	// AbsoluteMaxHits caps MaxHits regardless of configuration.
	AbsoluteMaxHits = 1000

	// AbsoluteMaxResponseBytes caps MaxResponseBytes regardless of configuration (2MB).
	AbsoluteMaxResponseBytes = 2 * 1024 * 1024
)

// Config holds configuration for output processing.
type Config struct {
	// MaxRows limits the rows returned by tabular (_cat) endpoints.
	MaxRows int `json:"maxRows" yaml:"maxRows"`

	// MaxHits limits hits.hits in search and msearch responses.
	MaxHits int `json:"maxHits" yaml:"maxHits"`

	// MaxResponseBytes is a hard limit on the rendered response size.
	MaxResponseBytes int `json:"maxResponseBytes" yaml:"maxResponseBytes"`

	// SlimOutput removes ExcludedFields from object responses.
	SlimOutput bool `json:"slimOutput" yaml:"slimOutput"`

	// ExcludedFields lists dot paths removed in slim mode. "[*]" applies the
	// rest of the path to every element of an array.
	ExcludedFields []string `json:"excludedFields,omitempty" yaml:"excludedFields,omitempty"`

	// MaskFields enables redaction of document fields whose name looks
	// like a credential.
	MaskFields bool `json:"maskFields" yaml:"maskFields"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxRows:          DefaultMaxRows,
		MaxHits:          DefaultMaxHits,
		MaxResponseBytes: DefaultMaxResponseBytes,
		SlimOutput:       true,
		ExcludedFields:   DefaultExcludedFields(),
		MaskFields:       true,
	}
}

// DefaultExcludedFields returns the fields removed in slim mode. They are
// shard bookkeeping that rarely helps to answer a question about the data.
func DefaultExcludedFields() []string {
	return []string{
		"_shards",
		"responses[*]._shards",
		"hits.hits[*]._seq_no",
		"hits.hits[*]._primary_term",
		"responses[*].hits.hits[*]._seq_no",
		"responses[*].hits.hits[*]._primary_term",
	}
}

// Validate returns a copy with defaults applied and absolute limits enforced.
func (c *Config) Validate() *Config {
	validated := *c

	if validated.MaxRows <= 0 {
		validated.MaxRows = DefaultMaxRows
	}
	if validated.MaxHits <= 0 {
		validated.MaxHits = DefaultMaxHits
	}
	if validated.MaxResponseBytes <= 0 {
		validated.MaxResponseBytes = DefaultMaxResponseBytes
	}

	validated.MaxRows = min(validated.MaxRows, AbsoluteMaxRows)
	validated.MaxHits = min(validated.MaxHits, AbsoluteMaxHits)
	validated.MaxResponseBytes = min(validated.MaxResponseBytes, AbsoluteMaxResponseBytes)

	if validated.SlimOutput && len(validated.ExcludedFields) == 0 {
		validated.ExcludedFields = DefaultExcludedFields()
	}

	return &validated
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := *c
	if c.ExcludedFields != nil {
		clone.ExcludedFields = make([]string, len(c.ExcludedFields))
		copy(clone.ExcludedFields, c.ExcludedFields)
	}
	return &clone
}

// TruncationWarning describes a truncation applied to a response.
type TruncationWarning struct {
	// Shown is the number of items returned
	Shown int `json:"shown"`

	// Total is the number of items before truncation
	Total int `json:"total"`

	Message string `json:"message"`
}
