package cluster

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/giantswarm/mcp-opensearch/internal/logging"
)

// Registry holds the named cluster profiles served by this process.
//
// It is read-mostly: profiles are registered at startup and replaced
// wholesale by Reload. All methods are safe for concurrent use; a reader
// never observes a partially applied reload.
type Registry struct {
	mu       sync.RWMutex
	mode     Mode
	implicit *Profile
	profiles map[string]Profile
	order    []string

	logger *slog.Logger
}

// RegistryOption is a functional option for configuring a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger for the registry.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty multi-cluster registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		mode:     ModeMulti,
		profiles: make(map[string]Profile),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewSingleClusterRegistry creates a registry in single-cluster mode serving
// the implicit profile p for every request regardless of the cluster name.
func NewSingleClusterRegistry(p Profile, opts ...RegistryOption) (*Registry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	r := NewRegistry(opts...)
	r.mode = ModeSingle
	r.implicit = &p
	return r, nil
}

// Mode reports whether the registry serves a single implicit profile.
func (r *Registry) Mode() Mode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mode
}

// Register inserts or replaces the profile under p.Name. The last
// registration under a name wins; the original insertion position is kept.
func (r *Registry) Register(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[p.Name]; !exists {
		r.order = append(r.order, p.Name)
	}
	r.profiles[p.Name] = p

	r.logger.Debug("Registered cluster profile",
		logging.Cluster(p.Name),
		logging.Host(p.URL))
	return nil
}

// Lookup returns the profile registered under exactly name.
func (r *Registry) Lookup(name string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, &NotFoundError{Name: name}
	}
	return p, nil
}

// Default returns the profile used when a request names no cluster.
//
// In single-cluster mode this is the implicit profile. In multi-cluster
// mode it is the first registered profile, and the implicit choice is logged.
func (r *Registry) Default() (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.mode == ModeSingle && r.implicit != nil {
		return *r.implicit, nil
	}
	if len(r.order) == 0 {
		return Profile{}, &NotFoundError{}
	}

	p := r.profiles[r.order[0]]
	r.logger.Info("No cluster specified, using first configured cluster",
		logging.Cluster(p.Name))
	return p, nil
}

// Resolve applies the per-request selection policy: single-cluster mode
// always serves the implicit profile; multi-cluster mode looks up selector,
// or falls back to Default when it is empty.
func (r *Registry) Resolve(selector string) (Profile, error) {
	if r.Mode() == ModeSingle || selector == "" {
		return r.Default()
	}
	return r.Lookup(selector)
}

// Names returns the registered profile names in insertion order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.mode == ModeSingle && r.implicit != nil {
		return []string{r.implicit.Name}
	}
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of servable profiles.
func (r *Registry) Len() int {
	return len(r.Names())
}

// Changes summarises the effect of a Reload.
type Changes struct {
	Added   []string
	Updated []string
	Removed []string
}

// Invalidated returns the names whose cached clients are no longer valid.
func (c Changes) Invalidated() []string {
	out := make([]string, 0, len(c.Updated)+len(c.Removed))
	out = append(out, c.Updated...)
	out = append(out, c.Removed...)
	return out
}

// Empty reports whether the reload changed nothing.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// Reload atomically replaces the whole profile set.
//
// Every profile is validated before anything is replaced, so a failed reload
// leaves the registry untouched. In single-cluster mode exactly one profile
// must be supplied and it becomes the new implicit profile.
func (r *Registry) Reload(profiles []Profile) (Changes, error) {
	next := make(map[string]Profile, len(profiles))
	order := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return Changes{}, err
		}
		if _, dup := next[p.Name]; !dup {
			order = append(order, p.Name)
		}
		next[p.Name] = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode == ModeSingle {
		if len(order) != 1 {
			return Changes{}, &ConfigError{Field: "clusters", Reason: fmt.Sprintf("single-cluster mode requires exactly one profile, got %d", len(order))}
		}
		p := next[order[0]]
		var changes Changes
		switch {
		case r.implicit == nil:
			changes.Added = []string{p.Name}
		case r.implicit.Name != p.Name:
			changes.Removed = []string{r.implicit.Name}
			changes.Added = []string{p.Name}
		case *r.implicit != p:
			changes.Updated = []string{p.Name}
		}
		r.implicit = &p
		return changes, nil
	}

	var changes Changes
	for _, name := range order {
		old, existed := r.profiles[name]
		switch {
		case !existed:
			changes.Added = append(changes.Added, name)
		case old != next[name]:
			changes.Updated = append(changes.Updated, name)
		}
	}
	for _, name := range r.order {
		if _, kept := next[name]; !kept {
			changes.Removed = append(changes.Removed, name)
		}
	}

	r.profiles = next
	r.order = order

	r.logger.Info("Reloaded cluster profiles",
		"clusters", len(order),
		"added", len(changes.Added),
		"updated", len(changes.Updated),
		"removed", len(changes.Removed))

	return changes, nil
}
