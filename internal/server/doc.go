// Package server provides the ServerContext and the HTTP infrastructure
// around the MCP transports of mcp-opensearch.
//
// ServerContext encapsulates the dispatcher, the cluster registry, the
// client handle cache and the instrumentation provider, and owns their
// lifecycle. Dependencies are injected with functional options:
//
//	sc, err := server.NewServerContext(ctx,
//		server.WithDispatcher(dispatcher),
//		server.WithRegistry(registry),
//		server.WithClientFactory(factory),
//		server.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	defer sc.Shutdown()
//
// ReloadClusters swaps the registered profiles and drops cached clients of
// changed clusters. It backs the SIGHUP handler of the serve command.
//
// HealthChecker serves /healthz, /readyz and /healthz/detailed for the HTTP
// transports. MetricsServer serves /metrics on a separate listener.
package server
