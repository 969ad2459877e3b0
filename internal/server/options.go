package server

import (
	"errors"
	"log/slog"

	"github.com/giantswarm/mcp-opensearch/internal/cluster"
	"github.com/giantswarm/mcp-opensearch/internal/instrumentation"
	"github.com/giantswarm/mcp-opensearch/internal/opensearch"
)

// Option is a functional option for configuring ServerContext.
type Option func(*ServerContext) error

// WithDispatcher sets the request dispatcher.
func WithDispatcher(d Dispatcher) Option {
	return func(sc *ServerContext) error {
		if d == nil {
			return ErrMissingDispatcher
		}
		sc.dispatcher = d
		return nil
	}
}

// WithRegistry sets the cluster registry.
func WithRegistry(registry *cluster.Registry) Option {
	return func(sc *ServerContext) error {
		if registry == nil {
			return ErrMissingRegistry
		}
		sc.registry = registry
		return nil
	}
}

// WithClientFactory sets the client handle cache. The server context
// closes it on shutdown.
func WithClientFactory(factory *opensearch.Factory) Option {
	return func(sc *ServerContext) error {
		sc.factory = factory
		return nil
	}
}

// WithVersionCache sets the backend version cache.
func WithVersionCache(versions *opensearch.VersionCache) Option {
	return func(sc *ServerContext) error {
		sc.versions = versions
		return nil
	}
}

// WithLogger sets the logger for the ServerContext.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) error {
		if logger == nil {
			return ErrMissingLogger
		}
		sc.logger = logger
		return nil
	}
}

// WithConfig sets the configuration for the ServerContext.
func WithConfig(config *Config) Option {
	return func(sc *ServerContext) error {
		if config == nil {
			return ErrMissingConfig
		}
		sc.config = config.Clone()
		return nil
	}
}

// WithServerName sets the server name in the configuration.
func WithServerName(name string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.ServerName = name
		return nil
	}
}

// WithLogLevel sets the logging level.
func WithLogLevel(level string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.LogLevel = level
		return nil
	}
}

// WithInstrumentationProvider sets the OpenTelemetry instrumentation provider.
func WithInstrumentationProvider(provider *instrumentation.Provider) Option {
	return func(sc *ServerContext) error {
		sc.instrumentationProvider = provider
		return nil
	}
}

// Error definitions for ServerContext validation and operations.
var (
	ErrMissingDispatcher = errors.New("dispatcher is required")
	ErrMissingRegistry   = errors.New("cluster registry is required")
	ErrMissingLogger     = errors.New("logger is required")
	ErrMissingConfig     = errors.New("configuration is required")
	ErrServerShutdown    = errors.New("server context has been shutdown")
)
