package dispatch

import (
	"context"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/giantswarm/mcp-opensearch/internal/cluster"
	"github.com/giantswarm/mcp-opensearch/internal/opensearch"
)

// Request names an operation, an optional cluster selector and the raw
// argument payload.
type Request struct {
	Operation string
	// Cluster selects a profile by name; empty applies the default-cluster policy.
	Cluster   string
	Arguments map[string]any
}

// Index returns the target index argument, empty when absent.
func (r Request) Index() string {
	index, _ := r.Arguments["index"].(string)
	return index
}

// Result is the outcome of a dispatch: Data on success, Failure otherwise.
type Result struct {
	RequestID string
	Operation string
	Cluster   string

	Data    any
	Failure *Failure
}

// Failed reports whether the dispatch ended in a failure.
func (r Result) Failed() bool {
	return r.Failure != nil
}

// Operation is a named, invokable backend operation.
type Operation interface {
	Name() string

	// Bind decodes and validates raw arguments. Failures are *ArgumentError.
	Bind(args map[string]any) (any, error)

	// Invoke runs the operation with arguments returned by Bind.
	Invoke(ctx context.Context, client opensearch.Client, args any) (any, error)
}

// VersionConstrained is implemented by operations that only exist in a
// range of backend versions.
type VersionConstrained interface {
	SupportsVersion(v *semver.Version) bool
}

// Catalog looks operations up by name.
type Catalog interface {
	Operation(name string) (Operation, bool)
}

// ClusterResolver applies the cluster selection policy.
type ClusterResolver interface {
	Resolve(selector string) (cluster.Profile, error)
}

// ClientSource yields a client handle for a profile.
type ClientSource interface {
	Acquire(ctx context.Context, p cluster.Profile) (*opensearch.Handle, error)
}

// VersionSource reports the backend version of a cluster.
type VersionSource interface {
	Version(ctx context.Context, cluster string, client opensearch.Client) (*semver.Version, error)
}

// MetricsRecorder records dispatch outcomes. outcome is "success" or a Kind.
type MetricsRecorder interface {
	RecordDispatch(ctx context.Context, operation, cluster, outcome string, duration time.Duration)
}
