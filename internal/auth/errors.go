package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for strategy failures.
var (
	// ErrNoRegion indicates that neither the profile nor the AWS configuration
	// provides a region.
	ErrNoRegion = errors.New("no AWS region configured")

	// ErrNoCredentials indicates that the AWS credential chain yielded nothing.
	ErrNoCredentials = errors.New("no AWS credentials found")
)

// Error describes why a single strategy could not be used.
// It never escapes Resolve; it is logged before falling through.
type Error struct {
	Mechanism Mechanism
	Cluster   string
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s authentication for cluster %q: %v", e.Mechanism, e.Cluster, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}
