// Package opensearchtest provides an in-memory opensearch.Client for tests.
package opensearchtest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/giantswarm/mcp-opensearch/internal/opensearch"
)

// Call records one invocation of a FakeClient method.
type Call struct {
	Method string
	Index  string
	ID     string
	Body   any
}

// FakeClient returns Response (or Err) from every data call and records the
// calls it receives. The zero value answers "{}" with version 2.11.0.
type FakeClient struct {
	mu    sync.Mutex
	calls []Call

	Response json.RawMessage
	Err      error
	Version  string
	InfoErr  error

	// Hook, when set, runs before every data call; a non-nil error is returned.
	Hook func(ctx context.Context, call Call) error

	closed bool
}

var _ opensearch.Client = (*FakeClient)(nil)

func (f *FakeClient) record(ctx context.Context, call Call) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	hook := f.Hook
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, call); err != nil {
			return nil, err
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Response == nil {
		return json.RawMessage(`{}`), nil
	}
	return f.Response, nil
}

// Calls returns a copy of the recorded calls.
func (f *FakeClient) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Closed reports whether Close was called.
func (f *FakeClient) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeClient) ListIndices(ctx context.Context, index string) (json.RawMessage, error) {
	return f.record(ctx, Call{Method: "ListIndices", Index: index})
}

func (f *FakeClient) GetMapping(ctx context.Context, index string) (json.RawMessage, error) {
	return f.record(ctx, Call{Method: "GetMapping", Index: index})
}

func (f *FakeClient) Search(ctx context.Context, index string, body any) (json.RawMessage, error) {
	return f.record(ctx, Call{Method: "Search", Index: index, Body: body})
}

func (f *FakeClient) Shards(ctx context.Context, index string) (json.RawMessage, error) {
	return f.record(ctx, Call{Method: "Shards", Index: index})
}

func (f *FakeClient) Health(ctx context.Context, index string) (json.RawMessage, error) {
	return f.record(ctx, Call{Method: "Health", Index: index})
}

func (f *FakeClient) Count(ctx context.Context, index string, body any) (json.RawMessage, error) {
	return f.record(ctx, Call{Method: "Count", Index: index, Body: body})
}

func (f *FakeClient) Explain(ctx context.Context, index, id string, body any) (json.RawMessage, error) {
	return f.record(ctx, Call{Method: "Explain", Index: index, ID: id, Body: body})
}

func (f *FakeClient) MSearch(ctx context.Context, index string, body []any) (json.RawMessage, error) {
	return f.record(ctx, Call{Method: "MSearch", Index: index, Body: body})
}

func (f *FakeClient) Info(context.Context) (opensearch.ServerInfo, error) {
	if f.InfoErr != nil {
		return opensearch.ServerInfo{}, f.InfoErr
	}
	version := f.Version
	if version == "" {
		version = "2.11.0"
	}
	return opensearch.ServerInfo{Version: version, Distribution: "opensearch"}, nil
}

func (f *FakeClient) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}
