package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/giantswarm/mcp-opensearch/internal/cluster"
	"github.com/giantswarm/mcp-opensearch/internal/server/middleware"
	"github.com/giantswarm/mcp-opensearch/internal/tools/output"
)

// Environment variables read when the matching flag is not set.
const (
	envMode           = "OPENSEARCH_MCP_MODE"
	envConfigPath     = "OPENSEARCH_MCP_CONFIG"
	envTransport      = "MCP_TRANSPORT"
	envLogFormat      = "LOG_FORMAT"
	envMetricsAddr    = "METRICS_ADDR"
	envAllowedOrigins = "ALLOWED_ORIGINS"
	envExpiryWindow   = "CACHE_EXPIRY_WINDOW"
	envVersionCheck   = "OPENSEARCH_VERSION_CHECK"
	envMaxRows        = "OUTPUT_MAX_ROWS"
	envMaxHits        = "OUTPUT_MAX_HITS"
	envMaxBytes       = "OUTPUT_MAX_RESPONSE_BYTES"
)

// ServeConfig holds all configuration for the serve command.
type ServeConfig struct {
	// Cluster settings
	Mode         string
	ConfigPath   string
	AWSProfile   string
	VersionCheck bool
	ExpiryWindow time.Duration

	// Transport settings
	Transport string
	HTTPAddr  string

	// Endpoint paths
	SSEEndpoint     string
	MessageEndpoint string
	HTTPEndpoint    string

	// AllowedOrigins is the comma-separated CORS allow list for HTTP transports.
	AllowedOrigins string

	// Logging
	DebugMode bool
	LogFormat string

	// Output shaping
	Output output.Config

	// Metrics server configuration
	Metrics MetricsServeConfig
}

// MetricsServeConfig holds configuration for the dedicated metrics server.
type MetricsServeConfig struct {
	Enabled bool
	Addr    string
}

// loadEnvIfEmpty loads an environment variable into a string pointer if it's empty.
func loadEnvIfEmpty(target *string, envKey string) {
	if *target == "" {
		*target = os.Getenv(envKey)
	}
}

// validate checks the configuration for consistency before anything is started.
func (c ServeConfig) validate() error {
	mode, err := cluster.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	if mode == cluster.ModeMulti && c.ConfigPath == "" {
		return fmt.Errorf("--config is required in multi mode")
	}

	switch c.Transport {
	case transportStdio, transportSSE, transportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s, %s)",
			c.Transport, transportStdio, transportSSE, transportStreamableHTTP)
	}

	if c.ExpiryWindow < 0 {
		return fmt.Errorf("--cache-expiry-window must not be negative")
	}

	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.LogFormat)
	}

	if c.Transport != transportStdio {
		if _, err := middleware.ValidateAllowedOrigins(c.AllowedOrigins); err != nil {
			return fmt.Errorf("invalid allowed origins: %w", err)
		}
	}
	return nil
}
