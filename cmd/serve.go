package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-opensearch/internal/auth"
	"github.com/giantswarm/mcp-opensearch/internal/cluster"
	"github.com/giantswarm/mcp-opensearch/internal/dispatch"
	"github.com/giantswarm/mcp-opensearch/internal/instrumentation"
	"github.com/giantswarm/mcp-opensearch/internal/logging"
	"github.com/giantswarm/mcp-opensearch/internal/opensearch"
	"github.com/giantswarm/mcp-opensearch/internal/server"
	"github.com/giantswarm/mcp-opensearch/internal/tools"
	"github.com/giantswarm/mcp-opensearch/internal/tools/catalog"
	"github.com/giantswarm/mcp-opensearch/internal/tools/output"
)

// Transport type constants for the MCP server.
const (
	transportStdio          = "stdio"
	transportSSE            = "sse"
	transportStreamableHTTP = "streamable-http"
)

// envValueTrue is the string value used to enable boolean environment variables.
const envValueTrue = "true"

// defaultEnvFile is loaded when present; a missing default file is not an error.
const defaultEnvFile = ".env"

// versionLookupTimeout bounds the startup version lookup in single mode.
const versionLookupTimeout = 10 * time.Second

// parseDurationEnv parses a duration from an environment variable value.
// Returns the parsed duration and true if successful, or zero and false if parsing fails.
// Logs a warning if the value is present but invalid.
func parseDurationEnv(value, envName string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in environment", "env", envName, "value", value, logging.Err(err))
		return 0, false
	}
	return d, true
}

// parseIntEnv parses an integer from an environment variable value.
// Returns the parsed int and true if successful, or zero and false if parsing fails.
// Logs a warning if the value is present but invalid.
func parseIntEnv(value, envName string) (int, bool) {
	if value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment", "env", envName, "value", value, logging.Err(err))
		return 0, false
	}
	return n, true
}

// loadEnvFile loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set. The default file may be absent.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// newServeCmd creates the Cobra command for starting the MCP server.
func newServeCmd() *cobra.Command {
	var (
		envFile string

		// Cluster options
		mode         string
		configPath   string
		awsProfile   string
		versionCheck bool
		expiryWindow time.Duration

		// Transport options
		transport       string
		httpAddr        string
		sseEndpoint     string
		messageEndpoint string
		httpEndpoint    string
		allowedOrigins  string

		// Logging options
		debugMode bool
		logFormat string

		// Output options
		maxRows          int
		maxHits          int
		maxResponseBytes int
		slimOutput       bool
		maskFields       bool

		// Metrics server options
		metricsAddr         string
		enableMetricsServer bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP OpenSearch server",
		Long: `Start the MCP OpenSearch server to provide tools for querying
OpenSearch clusters via the Model Context Protocol.

In single mode (default) one cluster is configured from the environment
(OPENSEARCH_URL, OPENSEARCH_USERNAME, OPENSEARCH_PASSWORD, AWS_REGION,
AWS_IAM_ARN, AWS_PROFILE, AWS_OPENSEARCH_SERVERLESS). In multi mode named
clusters are loaded from the YAML file given by --config and every tool
accepts an opensearch_cluster_name argument. Send SIGHUP to reload the file.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events over HTTP
  - streamable-http: Streamable HTTP transport`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFile(envFile, cmd.Flags().Changed("env-file")); err != nil {
				return err
			}

			// Environment fallbacks apply only to flags left at their default.
			if !cmd.Flags().Changed("mode") {
				if v := os.Getenv(envMode); v != "" {
					mode = v
				}
			}
			loadEnvIfEmpty(&configPath, envConfigPath)
			loadEnvIfEmpty(&allowedOrigins, envAllowedOrigins)
			if !cmd.Flags().Changed("transport") {
				if v := os.Getenv(envTransport); v != "" {
					transport = v
				}
			}
			if !cmd.Flags().Changed("log-format") {
				if v := os.Getenv(envLogFormat); v != "" {
					logFormat = v
				}
			}
			if !cmd.Flags().Changed("metrics-addr") {
				if v := os.Getenv(envMetricsAddr); v != "" {
					metricsAddr = v
				}
			}
			if !cmd.Flags().Changed("version-check") {
				if v := os.Getenv(envVersionCheck); v != "" {
					versionCheck = v == envValueTrue
				}
			}
			if !cmd.Flags().Changed("cache-expiry-window") {
				if d, ok := parseDurationEnv(os.Getenv(envExpiryWindow), envExpiryWindow); ok {
					expiryWindow = d
				}
			}
			if !cmd.Flags().Changed("max-rows") {
				if n, ok := parseIntEnv(os.Getenv(envMaxRows), envMaxRows); ok {
					maxRows = n
				}
			}
			if !cmd.Flags().Changed("max-hits") {
				if n, ok := parseIntEnv(os.Getenv(envMaxHits), envMaxHits); ok {
					maxHits = n
				}
			}
			if !cmd.Flags().Changed("max-response-bytes") {
				if n, ok := parseIntEnv(os.Getenv(envMaxBytes), envMaxBytes); ok {
					maxResponseBytes = n
				}
			}

			outputConfig := output.DefaultConfig()
			outputConfig.MaxRows = maxRows
			outputConfig.MaxHits = maxHits
			outputConfig.MaxResponseBytes = maxResponseBytes
			outputConfig.SlimOutput = slimOutput
			outputConfig.MaskFields = maskFields

			config := ServeConfig{
				Mode:            mode,
				ConfigPath:      configPath,
				AWSProfile:      awsProfile,
				VersionCheck:    versionCheck,
				ExpiryWindow:    expiryWindow,
				Transport:       transport,
				HTTPAddr:        httpAddr,
				SSEEndpoint:     sseEndpoint,
				MessageEndpoint: messageEndpoint,
				HTTPEndpoint:    httpEndpoint,
				AllowedOrigins:  allowedOrigins,
				DebugMode:       debugMode,
				LogFormat:       logFormat,
				Output:          *outputConfig,
				Metrics: MetricsServeConfig{
					Enabled: enableMetricsServer,
					Addr:    metricsAddr,
				},
			}

			return runServe(config)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", defaultEnvFile, "File of KEY=VALUE pairs loaded into the environment at startup")

	// Cluster flags
	cmd.Flags().StringVar(&mode, "mode", string(cluster.ModeSingle), "Cluster mode: single (environment) or multi (clusters file)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to the YAML clusters file (required in multi mode)")
	cmd.Flags().StringVar(&awsProfile, "profile", "", "Default AWS profile for clusters that do not set one")
	cmd.Flags().BoolVar(&versionCheck, "version-check", false, "Reject operations the cluster's OpenSearch version does not support")
	cmd.Flags().DurationVar(&expiryWindow, "cache-expiry-window", opensearch.DefaultFactoryConfig().ExpiryWindow, "Rebuild cached clients this long before their credentials expire")

	// Transport flags
	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio, sse, or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for sse and streamable-http transports)")
	cmd.Flags().StringVar(&sseEndpoint, "sse-endpoint", "/sse", "SSE endpoint path (for sse transport)")
	cmd.Flags().StringVar(&messageEndpoint, "message-endpoint", "/message", "Message endpoint path (for sse transport)")
	cmd.Flags().StringVar(&httpEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http transport)")
	cmd.Flags().StringVar(&allowedOrigins, "allowed-origins", "", "Comma-separated origins allowed for CORS (for HTTP transports)")

	// Logging flags
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	// Output flags
	cmd.Flags().IntVar(&maxRows, "max-rows", output.DefaultMaxRows, "Maximum rows returned from index and shard listings")
	cmd.Flags().IntVar(&maxHits, "max-hits", output.DefaultMaxHits, "Maximum hits returned per search response")
	cmd.Flags().IntVar(&maxResponseBytes, "max-response-bytes", output.DefaultMaxResponseBytes, "Maximum size of a tool response in bytes")
	cmd.Flags().BoolVar(&slimOutput, "slim-output", true, "Remove shard bookkeeping fields from responses")
	cmd.Flags().BoolVar(&maskFields, "mask-fields", true, "Redact credential-like fields in returned documents")

	// Metrics server flags
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address")
	cmd.Flags().BoolVar(&enableMetricsServer, "enable-metrics-server", true, "Serve /metrics on a dedicated port when instrumentation is enabled")

	return cmd
}

// runServe contains the main server logic.
func runServe(config ServeConfig) error {
	if err := config.validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if config.DebugMode {
		level = slog.LevelDebug
	}
	// stdout carries the stdio transport, so logs always go to stderr.
	logger := logging.New(os.Stderr, level, config.LogFormat)
	slog.SetDefault(logger)

	mode, _ := cluster.ParseMode(config.Mode)
	defaults := cluster.DefaultsFromEnv()
	if config.AWSProfile != "" {
		defaults.AWSProfile = config.AWSProfile
	}

	registry, err := buildRegistry(mode, config.ConfigPath, defaults, logger)
	if err != nil {
		return err
	}

	// Setup graceful shutdown - listen for both SIGINT and SIGTERM
	shutdownCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrumentationConfig := instrumentation.DefaultConfig()
	instrumentationConfig.ServiceVersion = rootCmd.Version
	provider, err := instrumentation.NewProvider(shutdownCtx, instrumentationConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("Error during instrumentation shutdown", logging.Err(err))
		}
	}()
	provider.SetAuditLogger(logger)
	if provider.Enabled() {
		logger.Info("Instrumentation enabled",
			"metrics_exporter", instrumentationConfig.MetricsExporter,
			"tracing_exporter", instrumentationConfig.TracingExporter)
	}
	metrics := provider.Metrics()

	resolver := newResolver(defaults, logger, metrics)

	factoryConfig := opensearch.DefaultFactoryConfig()
	if config.ExpiryWindow > 0 {
		factoryConfig.ExpiryWindow = config.ExpiryWindow
	}
	factory := opensearch.NewFactory(resolver,
		opensearch.WithFactoryConfig(factoryConfig),
		opensearch.WithFactoryLogger(logger),
		opensearch.WithFactoryMetrics(metrics),
	)
	versions := opensearch.NewVersionCache(opensearch.DefaultVersionTTL, logger)

	toolCatalog, err := catalog.New()
	if err != nil {
		return fmt.Errorf("failed to build tool catalog: %w", err)
	}

	dispatchOpts := []dispatch.Option{
		dispatch.WithLogger(logger),
		dispatch.WithMetrics(metrics),
	}
	if config.VersionCheck {
		dispatchOpts = append(dispatchOpts, dispatch.WithVersionGate(versions))
	}
	dispatcher := dispatch.New(registry, factory, toolCatalog, dispatchOpts...)

	serverConfig := server.NewDefaultConfig()
	serverConfig.Version = rootCmd.Version
	serverConfig.Mode = mode
	serverConfig.ConfigPath = config.ConfigPath
	serverConfig.VersionCheck = config.VersionCheck
	serverConfig.LogFormat = config.LogFormat
	if config.DebugMode {
		serverConfig.LogLevel = "debug"
	}

	serverContext, err := server.NewServerContext(shutdownCtx,
		server.WithDispatcher(dispatcher),
		server.WithRegistry(registry),
		server.WithClientFactory(factory),
		server.WithVersionCache(versions),
		server.WithLogger(logger),
		server.WithConfig(serverConfig),
		server.WithInstrumentationProvider(provider),
	)
	if err != nil {
		_ = factory.Close()
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("Error during server context shutdown", logging.Err(err))
		}
	}()

	descriptors, err := exposedTools(shutdownCtx, serverContext, toolCatalog, config.VersionCheck)
	if err != nil {
		return err
	}

	mcpSrv := mcpserver.NewMCPServer(serverConfig.ServerName, rootCmd.Version,
		mcpserver.WithToolCapabilities(true),
	)
	tools.Register(mcpSrv, serverContext, descriptors, output.NewProcessor(&config.Output))

	logger.Info("Starting MCP OpenSearch server",
		"mode", string(mode),
		"clusters", registry.Len(),
		"tools", len(descriptors),
		"transport", config.Transport)

	if mode == cluster.ModeMulti {
		go watchReload(shutdownCtx, serverContext, config.ConfigPath, defaults)
	}

	switch config.Transport {
	case transportStdio:
		return runStdioServer(mcpSrv, logger)
	case transportSSE:
		return runSSEServer(mcpSrv, config, shutdownCtx, serverContext, provider)
	case transportStreamableHTTP:
		return runStreamableHTTPServer(mcpSrv, config, shutdownCtx, serverContext, provider)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s, %s)",
			config.Transport, transportStdio, transportSSE, transportStreamableHTTP)
	}
}

// newResolver creates the auth resolver. OPENSEARCH_SSL_VERIFY sets the
// verification policy for profiles that leave verify_certs unset.
func newResolver(defaults cluster.Defaults, logger *slog.Logger, metrics auth.MetricsRecorder, opts ...auth.ResolverOption) *auth.Resolver {
	base := []auth.ResolverOption{
		auth.WithLogger(logger),
		auth.WithMetrics(metrics),
		auth.WithDefaultVerifyTLS(defaults.VerifyTLS.Resolve(true)),
	}
	return auth.NewResolver(append(base, opts...)...)
}

// buildRegistry creates the cluster registry for mode.
func buildRegistry(mode cluster.Mode, configPath string, defaults cluster.Defaults, logger *slog.Logger) (*cluster.Registry, error) {
	if mode == cluster.ModeSingle {
		registry, err := cluster.NewSingleClusterRegistry(defaults.Profile(cluster.DefaultClusterName),
			cluster.WithRegistryLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("invalid single-cluster configuration: %w", err)
		}
		return registry, nil
	}

	profiles, err := cluster.LoadFile(configPath, defaults)
	if err != nil {
		return nil, err
	}
	registry := cluster.NewRegistry(cluster.WithRegistryLogger(logger))
	for _, p := range profiles {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	logger.Info("Loaded cluster configuration", "path", configPath, "clusters", registry.Len())
	return registry, nil
}

// exposedTools returns the tool descriptors to advertise. In single mode
// with the version check enabled the cluster version is read once so tools the
// backend cannot serve are hidden; a failed lookup exposes every tool.
func exposedTools(ctx context.Context, sc *server.ServerContext, toolCatalog *tools.Catalog, versionCheck bool) ([]tools.Descriptor, error) {
	mode := sc.Config().Mode
	if mode != cluster.ModeSingle || !versionCheck {
		return toolCatalog.Exposed(mode, nil, false)
	}

	profile, err := sc.Registry().Default()
	if err != nil {
		return nil, err
	}
	if profile.Serverless {
		return toolCatalog.Exposed(mode, nil, true)
	}

	versionCtx, cancel := context.WithTimeout(ctx, versionLookupTimeout)
	defer cancel()

	handle, err := sc.ClientFactory().Acquire(versionCtx, profile)
	if err != nil {
		sc.Logger().Warn("Could not connect to read the OpenSearch version, exposing all tools",
			logging.Cluster(profile.Name), logging.SanitizedErr(err))
		return toolCatalog.Exposed(mode, nil, false)
	}

	version, err := sc.VersionCache().Version(versionCtx, profile.Name, handle.Client)
	if err != nil {
		sc.Logger().Warn("Could not determine the OpenSearch version, exposing all tools",
			logging.Cluster(profile.Name), logging.SanitizedErr(err))
		return toolCatalog.Exposed(mode, nil, false)
	}
	return toolCatalog.Exposed(mode, version, false)
}

// watchReload reloads the clusters file on every SIGHUP until ctx is done.
func watchReload(ctx context.Context, sc *server.ServerContext, configPath string, defaults cluster.Defaults) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if _, err := reloadClusters(ctx, sc, configPath, defaults); err != nil {
				sc.Logger().Error("Cluster configuration reload failed, keeping previous configuration",
					"path", configPath, logging.Err(err))
			}
		}
	}
}

// reloadClusters re-reads the clusters file and applies it to sc.
func reloadClusters(ctx context.Context, sc *server.ServerContext, configPath string, defaults cluster.Defaults) (cluster.Changes, error) {
	profiles, err := cluster.LoadFile(configPath, defaults)
	if err != nil {
		return cluster.Changes{}, err
	}
	return sc.ReloadClusters(ctx, profiles)
}
