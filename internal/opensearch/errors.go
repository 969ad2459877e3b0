package opensearch

import (
	"errors"
	"fmt"
)

// ErrFactoryClosed is returned when a handle is requested after Close.
var ErrFactoryClosed = errors.New("client factory is closed")

// maxErrorBody bounds how much of a backend error body is kept.
const maxErrorBody = 2048

// ConnectionError reports that no usable client could be obtained for a
// cluster: construction failed, the factory is closed, or the caller gave up.
type ConnectionError struct {
	Cluster string
	Err     error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to cluster %q: %v", e.Cluster, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// UserFacingError returns a message safe to return to MCP clients.
func (e *ConnectionError) UserFacingError() string {
	return fmt.Sprintf("unable to connect to OpenSearch cluster %q", e.Cluster)
}

// ResponseError is a non-2xx answer from the backend.
type ResponseError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("opensearch returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("opensearch returned status %d: %s", e.StatusCode, e.Body)
}

func newResponseError(status int, body []byte) *ResponseError {
	if len(body) > maxErrorBody {
		body = append(body[:maxErrorBody:maxErrorBody], []byte("...")...)
	}
	return &ResponseError{StatusCode: status, Body: string(body)}
}
