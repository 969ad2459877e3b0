package cluster

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry failures.
// These errors can be checked using errors.Is() for programmatic error handling.
var (
	// ErrClusterNotFound indicates that no profile is registered under the
	// requested name, or that the registry is empty when a default is needed.
	ErrClusterNotFound = errors.New("cluster not found")

	// ErrInvalidConfig indicates a malformed or incomplete cluster profile.
	ErrInvalidConfig = errors.New("invalid cluster configuration")
)

// ConfigError names the profile field that failed validation.
type ConfigError struct {
	// Cluster is the profile name, empty when the name itself is missing.
	Cluster string
	// Field is the configuration key that is malformed (e.g. "opensearch_url").
	Field string
	// Reason describes what is wrong with the field.
	Reason string
	// Err is the underlying parse error, if any.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	var msg string
	if e.Cluster != "" {
		msg = fmt.Sprintf("cluster %q: %s: %s", e.Cluster, e.Field, e.Reason)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a failed cluster lookup.
type NotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Name == "" {
		return "no cluster configured"
	}
	return fmt.Sprintf("cluster %q not found", e.Name)
}

// Unwrap returns ErrClusterNotFound for use with errors.Is().
func (e *NotFoundError) Unwrap() error {
	return ErrClusterNotFound
}

// UserFacingError returns a message safe to return to MCP clients.
func (e *NotFoundError) UserFacingError() string {
	if e.Name == "" {
		return "no OpenSearch cluster is configured"
	}
	return fmt.Sprintf("OpenSearch cluster %q is not configured", e.Name)
}
