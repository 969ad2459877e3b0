package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/giantswarm/mcp-opensearch/internal/auth"
	"github.com/giantswarm/mcp-opensearch/internal/cluster"
	"github.com/giantswarm/mcp-opensearch/internal/opensearch"
)

// Kind classifies a dispatch failure.
type Kind string

const (
	KindConfigError      Kind = "ConfigError"
	KindClusterNotFound  Kind = "ClusterNotFound"
	KindAuthError        Kind = "AuthError"
	KindConnectionError  Kind = "ConnectionError"
	KindUnknownOperation Kind = "UnknownOperation"
	KindInvalidArguments Kind = "InvalidArguments"
	KindOperationError   Kind = "OperationError"
)

// ErrUnknownOperation indicates that the catalog has no operation by the
// requested name, or that the target cluster's version does not support it.
var ErrUnknownOperation = errors.New("unknown operation")

// FieldError describes one argument that failed validation.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// String returns "field: reason".
func (f FieldError) String() string {
	return f.Field + ": " + f.Reason
}

// ArgumentError reports argument payloads that fail binding or validation.
type ArgumentError struct {
	Fields []FieldError
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "invalid arguments: " + strings.Join(parts, "; ")
}

// UnsupportedOperationError reports an operation outside the version range
// supported by the target cluster.
type UnsupportedOperationError struct {
	Operation string
	Version   string
}

// Error implements the error interface.
func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("operation %q is not supported by OpenSearch %s", e.Operation, e.Version)
}

// Unwrap returns ErrUnknownOperation for use with errors.Is().
func (e *UnsupportedOperationError) Unwrap() error {
	return ErrUnknownOperation
}

// PanicError wraps a value recovered from a panicking operation.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("operation panicked: %v", e.Value)
}

// Failure is the structured failure carried by a Result.
type Failure struct {
	Kind      Kind         `json:"kind"`
	Operation string       `json:"operation"`
	Cluster   string       `json:"cluster,omitempty"`
	Message   string       `json:"message"`
	Fields    []FieldError `json:"fields,omitempty"`

	Err error `json:"-"`
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// userFacing is implemented by errors that carry a client-safe message.
type userFacing interface {
	UserFacingError() string
}

// Classify maps an error from any stage of a dispatch onto the failure taxonomy.
func Classify(err error) Kind {
	var (
		failure  *Failure
		authErr  *auth.Error
		connErr  *opensearch.ConnectionError
		argErr   *ArgumentError
		panicErr *PanicError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &failure):
		return failure.Kind
	case errors.As(err, &panicErr):
		return KindOperationError
	case errors.Is(err, cluster.ErrInvalidConfig):
		return KindConfigError
	case errors.Is(err, cluster.ErrClusterNotFound):
		return KindClusterNotFound
	case errors.As(err, &connErr):
		return KindConnectionError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindConnectionError
	case errors.As(err, &authErr):
		return KindAuthError
	case errors.Is(err, ErrUnknownOperation):
		return KindUnknownOperation
	case errors.As(err, &argErr):
		return KindInvalidArguments
	default:
		return KindOperationError
	}
}

// NewFailure builds the Failure for err raised while running operation
// against cluster.
func NewFailure(operation, cluster string, err error) *Failure {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}

	f := &Failure{
		Kind:      Classify(err),
		Operation: operation,
		Cluster:   cluster,
		Err:       err,
	}

	var argErr *ArgumentError
	if errors.As(err, &argErr) {
		f.Fields = argErr.Fields
	}

	var uf userFacing
	switch {
	case f.Kind == KindOperationError:
		f.Message = fmt.Sprintf("%s failed: %v", operation, err)
	case errors.As(err, &uf):
		f.Message = uf.UserFacingError()
	default:
		f.Message = err.Error()
	}

	return f
}
