package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/giantswarm/mcp-opensearch/internal/auth"
	"github.com/giantswarm/mcp-opensearch/internal/cluster"
	"github.com/giantswarm/mcp-opensearch/internal/opensearch"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{name: "nil", err: nil, kind: ""},
		{name: "config", err: &cluster.ConfigError{Field: "opensearch_url", Reason: "must not be empty"}, kind: KindConfigError},
		{name: "not found", err: &cluster.NotFoundError{Name: "staging"}, kind: KindClusterNotFound},
		{name: "wrapped not found", err: fmt.Errorf("resolve: %w", cluster.ErrClusterNotFound), kind: KindClusterNotFound},
		{name: "auth", err: &auth.Error{Mechanism: auth.MechanismIAM, Err: auth.ErrNoRegion}, kind: KindAuthError},
		{name: "connection", err: &opensearch.ConnectionError{Cluster: "prod", Err: context.Canceled}, kind: KindConnectionError},
		{name: "cancelled backend call", err: fmt.Errorf("Post \"https://prod/_search\": %w", context.Canceled), kind: KindConnectionError},
		{name: "backend call deadline", err: context.DeadlineExceeded, kind: KindConnectionError},
		{name: "unknown operation", err: fmt.Errorf("%w: %q", ErrUnknownOperation, "X"), kind: KindUnknownOperation},
		{name: "unsupported version", err: &UnsupportedOperationError{Operation: "X", Version: "1.0.0"}, kind: KindUnknownOperation},
		{name: "arguments", err: &ArgumentError{Fields: []FieldError{{Field: "index", Reason: "is required"}}}, kind: KindInvalidArguments},
		{name: "panic", err: &PanicError{Value: "boom"}, kind: KindOperationError},
		{name: "backend", err: &opensearch.ResponseError{StatusCode: 500}, kind: KindOperationError},
		{name: "plain", err: errors.New("timeout"), kind: KindOperationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, Classify(tt.err))
		})
	}
}

func TestNewFailure(t *testing.T) {
	t.Run("user facing message", func(t *testing.T) {
		f := NewFailure("ListIndexTool", "", &cluster.NotFoundError{Name: "staging"})
		assert.Equal(t, KindClusterNotFound, f.Kind)
		assert.Equal(t, `OpenSearch cluster "staging" is not configured`, f.Message)
		assert.True(t, errors.Is(f, cluster.ErrClusterNotFound))
	})

	t.Run("argument fields", func(t *testing.T) {
		f := NewFailure("SearchIndexTool", "prod", &ArgumentError{Fields: []FieldError{
			{Field: "index", Reason: "is required"},
			{Field: "query", Reason: "is required"},
		}})
		assert.Equal(t, "invalid arguments: index: is required; query: is required", f.Message)
		assert.Len(t, f.Fields, 2)
		assert.Equal(t, "InvalidArguments: invalid arguments: index: is required; query: is required", f.Error())
	})

	t.Run("existing failure is kept", func(t *testing.T) {
		orig := &Failure{Kind: KindConfigError, Message: "x"}
		assert.Same(t, orig, NewFailure("op", "c", fmt.Errorf("wrapped: %w", orig)))
	})
}
