package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"

	"github.com/giantswarm/mcp-opensearch/internal/cluster"
	"github.com/giantswarm/mcp-opensearch/internal/dispatch"
	"github.com/giantswarm/mcp-opensearch/internal/opensearch"
)

// ClusterArgument is the argument every tool accepts to select a cluster.
const ClusterArgument = "opensearch_cluster_name"

// BaseArgs is embedded in every tool argument struct.
type BaseArgs struct {
	OpenSearchClusterName string `json:"opensearch_cluster_name,omitempty" jsonschema_description:"Name of the configured OpenSearch cluster to run against. Omit to use the first configured cluster."`
}

// Descriptor is the discoverable description of a tool.
type Descriptor struct {
	Name        string
	Description string
	// InputSchema is the JSON schema of the tool arguments.
	InputSchema json.RawMessage
	// MinVersion and MaxVersion bound the supported backend versions.
	// Empty means unbounded.
	MinVersion string
	MaxVersion string
}

// Tool is a catalog entry: a dispatchable operation with its descriptor.
type Tool interface {
	dispatch.Operation
	dispatch.VersionConstrained
	Descriptor() Descriptor
}

// InvokeFunc executes a tool against a backend client with bound arguments.
type InvokeFunc[T any] func(ctx context.Context, client opensearch.Client, args *T) (any, error)

// DefineOption customises a tool definition.
type DefineOption func(*Descriptor)

// WithMinVersion sets the lowest backend version the tool supports.
func WithMinVersion(v string) DefineOption {
	return func(d *Descriptor) {
		d.MinVersion = v
	}
}

// WithMaxVersion sets the highest backend version the tool supports.
func WithMaxVersion(v string) DefineOption {
	return func(d *Descriptor) {
		d.MaxVersion = v
	}
}

// definition is the Tool implementation produced by Define.
type definition[T any] struct {
	descriptor Descriptor
	invoke     InvokeFunc[T]
	validate   *validator.Validate
	minVersion *semver.Version
	maxVersion *semver.Version
}

// Define builds a Tool from a typed argument struct. The input schema is
// reflected from T. Define panics if T cannot be reflected or the version
// bounds do not parse; both are programming errors in a static catalog.
func Define[T any](name, description string, invoke InvokeFunc[T], opts ...DefineOption) Tool {
	d := &definition[T]{
		descriptor: Descriptor{
			Name:        name,
			Description: description,
		},
		invoke:   invoke,
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(&d.descriptor)
	}

	schema, err := reflectSchema[T]()
	if err != nil {
		panic(fmt.Sprintf("tool %s: %v", name, err))
	}
	d.descriptor.InputSchema = schema

	d.minVersion, d.maxVersion, err = parseRange(d.descriptor.MinVersion, d.descriptor.MaxVersion)
	if err != nil {
		panic(fmt.Sprintf("tool %s: %v", name, err))
	}

	return d
}

func reflectSchema[T any]() (json.RawMessage, error) {
	r := &jsonschema.Reflector{
		DoNotReference:             true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
	}
	s := r.Reflect(new(T))
	s.Version = ""
	s.ID = ""

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input schema: %w", err)
	}
	return raw, nil
}

func (d *definition[T]) Name() string {
	return d.descriptor.Name
}

func (d *definition[T]) Descriptor() Descriptor {
	out := d.descriptor
	out.InputSchema = slices.Clone(d.descriptor.InputSchema)
	return out
}

func (d *definition[T]) Bind(args map[string]any) (any, error) {
	return bind[T](d.validate, args)
}

func (d *definition[T]) Invoke(ctx context.Context, client opensearch.Client, args any) (any, error) {
	typed, ok := args.(*T)
	if !ok {
		return nil, fmt.Errorf("tool %s: unexpected argument type %T", d.descriptor.Name, args)
	}
	return d.invoke(ctx, client, typed)
}

func (d *definition[T]) SupportsVersion(v *semver.Version) bool {
	return inRange(v, d.minVersion, d.maxVersion)
}

// Catalog is the fixed set of tools served by the gateway.
type Catalog struct {
	tools  []Tool
	byName map[string]Tool
}

var _ dispatch.Catalog = (*Catalog)(nil)

// NewCatalog builds a catalog. Tool names must be unique.
func NewCatalog(tools ...Tool) (*Catalog, error) {
	c := &Catalog{
		tools:  make([]Tool, 0, len(tools)),
		byName: make(map[string]Tool, len(tools)),
	}
	for _, t := range tools {
		name := t.Name()
		if name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, dup := c.byName[name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", name)
		}
		c.tools = append(c.tools, t)
		c.byName[name] = t
	}
	return c, nil
}

// Operation returns the named tool.
func (c *Catalog) Operation(name string) (dispatch.Operation, bool) {
	t, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return t, true
}

// List returns every tool descriptor in registration order.
func (c *Catalog) List() []Descriptor {
	out := make([]Descriptor, len(c.tools))
	for i, t := range c.tools {
		out[i] = t.Descriptor()
	}
	return out
}

// Exposed returns the descriptors to advertise for a server mode.
//
// Multi mode advertises every tool unchanged. Single mode drops tools whose
// version range excludes version (unless the cluster is serverless or the
// version is unknown) and removes the cluster argument from every schema.
func (c *Catalog) Exposed(mode cluster.Mode, version *semver.Version, serverless bool) ([]Descriptor, error) {
	if mode != cluster.ModeSingle {
		return c.List(), nil
	}

	out := make([]Descriptor, 0, len(c.tools))
	for _, t := range c.tools {
		if !serverless && version != nil && !t.SupportsVersion(version) {
			continue
		}
		d := t.Descriptor()
		schema, err := stripProperty(d.InputSchema, ClusterArgument)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", d.Name, err)
		}
		d.InputSchema = schema
		out = append(out, d)
	}
	return out, nil
}

// stripProperty removes a property from an object schema, including its
// entry in "required".
func stripProperty(schema json.RawMessage, name string) (json.RawMessage, error) {
	var doc map[string]any
	if err := json.Unmarshal(schema, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode input schema: %w", err)
	}

	if props, ok := doc["properties"].(map[string]any); ok {
		delete(props, name)
	}
	if required, ok := doc["required"].([]any); ok {
		kept := required[:0]
		for _, r := range required {
			if r != name {
				kept = append(kept, r)
			}
		}
		if len(kept) == 0 {
			delete(doc, "required")
		} else {
			doc["required"] = kept
		}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input schema: %w", err)
	}
	return out, nil
}
