package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/giantswarm/mcp-opensearch/internal/cluster"
	"github.com/giantswarm/mcp-opensearch/internal/dispatch"
	"github.com/giantswarm/mcp-opensearch/internal/instrumentation"
	"github.com/giantswarm/mcp-opensearch/internal/logging"
	"github.com/giantswarm/mcp-opensearch/internal/opensearch"
)

// Dispatcher executes tool requests against the configured clusters.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) dispatch.Result
}

// ServerContext encapsulates all dependencies needed by the MCP server
// and provides a clean abstraction for dependency injection and lifecycle management.
type ServerContext struct {
	// Core dependencies
	dispatcher Dispatcher
	registry   *cluster.Registry
	logger     *slog.Logger
	config     *Config

	// Client handle cache and backend version cache. Both are optional;
	// when set they are invalidated on reload and closed on shutdown.
	factory  *opensearch.Factory
	versions *opensearch.VersionCache

	instrumentationProvider *instrumentation.Provider

	// Context management
	ctx    context.Context
	cancel context.CancelFunc

	// Lifecycle management
	mu       sync.RWMutex
	shutdown bool

	// reloadMu serialises cluster reloads.
	reloadMu sync.Mutex
}

// NewServerContext creates a new ServerContext with default values.
// Use the provided functional options to customize the context.
func NewServerContext(ctx context.Context, opts ...Option) (*ServerContext, error) {
	serverCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:    serverCtx,
		cancel: cancel,
		config: NewDefaultConfig(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(sc); err != nil {
			cancel()
			return nil, err
		}
	}

	if err := sc.validate(); err != nil {
		cancel()
		return nil, err
	}

	return sc, nil
}

// Context returns the server context for cancellation and deadlines.
func (sc *ServerContext) Context() context.Context {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.ctx
}

// Dispatcher returns the request dispatcher.
func (sc *ServerContext) Dispatcher() Dispatcher {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.dispatcher
}

// Registry returns the cluster registry.
func (sc *ServerContext) Registry() *cluster.Registry {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.registry
}

// ClientFactory returns the client handle cache, or nil.
func (sc *ServerContext) ClientFactory() *opensearch.Factory {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.factory
}

// VersionCache returns the backend version cache, or nil.
func (sc *ServerContext) VersionCache() *opensearch.VersionCache {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.versions
}

// InstrumentationProvider returns the OpenTelemetry provider, or nil.
func (sc *ServerContext) InstrumentationProvider() *instrumentation.Provider {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.instrumentationProvider
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.logger
}

// Config returns the server configuration.
func (sc *ServerContext) Config() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config
}

// ReloadClusters atomically replaces the registered cluster profiles and
// drops cached client handles and versions of every cluster whose profile
// changed or disappeared.
func (sc *ServerContext) ReloadClusters(ctx context.Context, profiles []cluster.Profile) (cluster.Changes, error) {
	sc.reloadMu.Lock()
	defer sc.reloadMu.Unlock()

	if sc.IsShutdown() {
		return cluster.Changes{}, ErrServerShutdown
	}

	registry := sc.Registry()
	changes, err := registry.Reload(profiles)
	if err != nil {
		return cluster.Changes{}, err
	}

	if changes.Empty() {
		sc.Logger().Info("Cluster configuration unchanged", "clusters", registry.Len())
		return changes, nil
	}

	stale := changes.Invalidated()
	if factory := sc.ClientFactory(); factory != nil {
		factory.Invalidate(ctx, stale...)
	}
	if versions := sc.VersionCache(); versions != nil {
		versions.Invalidate(stale...)
	}

	sc.Logger().Info("Cluster configuration reloaded",
		"clusters", registry.Len(),
		slog.Any("added", changes.Added),
		slog.Any("updated", changes.Updated),
		slog.Any("removed", changes.Removed))
	return changes, nil
}

// Shutdown gracefully shuts down the server context.
// This cancels the context and closes every cached client handle.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.logger.Info("Shutting down server context")

	var err error
	if sc.factory != nil {
		if err = sc.factory.Close(); err != nil {
			sc.logger.Warn("Failed to close client factory", logging.Err(err))
		}
	}

	if sc.cancel != nil {
		sc.cancel()
	}

	sc.shutdown = true

	sc.logger.Info("Server context shutdown complete")
	return err
}

// IsShutdown returns true if the server context has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// validate ensures all required dependencies are set.
func (sc *ServerContext) validate() error {
	if sc.dispatcher == nil {
		return ErrMissingDispatcher
	}
	if sc.registry == nil {
		return ErrMissingRegistry
	}
	if sc.logger == nil {
		return ErrMissingLogger
	}
	if sc.config == nil {
		return ErrMissingConfig
	}
	return nil
}

// Config holds the server configuration.
type Config struct {
	// Server settings
	ServerName string `json:"serverName"`
	Version    string `json:"version"`

	// Cluster settings
	Mode       cluster.Mode `json:"mode"`
	ConfigPath string       `json:"configPath"`

	// VersionCheck enables the per-operation backend version gate.
	VersionCheck bool `json:"versionCheck"`

	// Logging settings
	LogLevel  string `json:"logLevel"`
	LogFormat string `json:"logFormat"`
}

// NewDefaultConfig creates a configuration with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		ServerName: "mcp-opensearch",
		Version:    "0.1.0",
		Mode:       cluster.ModeSingle,
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
