package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	opensearchgo "github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
	requestsigner "github.com/opensearch-project/opensearch-go/v4/signer/awsv2"

	"github.com/giantswarm/mcp-opensearch/internal/auth"
	"github.com/giantswarm/mcp-opensearch/internal/cluster"
)

// Client is the set of backend calls the tool catalog depends on.
// Every call returns the backend's JSON response body unchanged.
type Client interface {
	// ListIndices returns the _cat/indices table, optionally limited to index.
	ListIndices(ctx context.Context, index string) (json.RawMessage, error)

	// GetMapping returns the mappings of index.
	GetMapping(ctx context.Context, index string) (json.RawMessage, error)

	// Search runs a query DSL body against index.
	Search(ctx context.Context, index string, body any) (json.RawMessage, error)

	// Shards returns the _cat/shards table for index.
	Shards(ctx context.Context, index string) (json.RawMessage, error)

	// Health returns cluster health, optionally scoped to index.
	Health(ctx context.Context, index string) (json.RawMessage, error)

	// Count returns the number of documents matching body, or all documents when body is nil.
	Count(ctx context.Context, index string, body any) (json.RawMessage, error)

	// Explain explains how document id scores against the query in body.
	Explain(ctx context.Context, index, id string, body any) (json.RawMessage, error)

	// MSearch runs several searches in one request. body alternates header and query objects.
	MSearch(ctx context.Context, index string, body []any) (json.RawMessage, error)

	// Info returns the backend's version information.
	Info(ctx context.Context) (ServerInfo, error)

	// Close releases idle connections held by the client.
	Close()
}

// ServerInfo is the subset of the root endpoint response used for
// compatibility checks.
type ServerInfo struct {
	ClusterName  string
	Version      string
	Distribution string
}

// requestBuilder is implemented by the typed opensearchapi request structs.
type requestBuilder interface {
	GetRequest() (*http.Request, error)
}

// HTTPClient implements Client on top of opensearch-go.
type HTTPClient struct {
	api       *opensearchapi.Client
	transport *http.Transport
}

var _ Client = (*HTTPClient)(nil)

// NewClient builds a client for profile p authenticated as described by a.
// It performs no network I/O.
func NewClient(p cluster.Profile, a auth.Context) (*HTTPClient, error) {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("unexpected default transport type %T", http.DefaultTransport)
	}
	transport = transport.Clone()
	transport.TLSClientConfig = &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !a.VerifyTLS, //nolint:gosec // G402: disabled only by cluster configuration
	}

	cfg := opensearchgo.Config{
		Addresses: []string{strings.TrimRight(p.URL, "/")},
		Transport: transport,
	}

	switch a.Mechanism {
	case auth.MechanismBasic:
		cfg.Username = a.Username
		cfg.Password = a.Password
	case auth.MechanismIAM, auth.MechanismAmbient:
		awsCfg := aws.Config{
			Region:      a.Region,
			Credentials: credentials.StaticCredentialsProvider{Value: a.Credentials},
		}
		signer, err := requestsigner.NewSignerWithService(awsCfg, a.Service)
		if err != nil {
			return nil, fmt.Errorf("failed to create request signer: %w", err)
		}
		cfg.Signer = signer
	}

	api, err := opensearchapi.NewClient(opensearchapi.Config{Client: cfg})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	return &HTTPClient{api: api, transport: transport}, nil
}

// ListIndices implements Client.
func (c *HTTPClient) ListIndices(ctx context.Context, index string) (json.RawMessage, error) {
	return c.do(ctx, opensearchapi.CatIndicesReq{Indices: indices(index)}, true)
}

// GetMapping implements Client.
func (c *HTTPClient) GetMapping(ctx context.Context, index string) (json.RawMessage, error) {
	return c.do(ctx, opensearchapi.MappingGetReq{Indices: indices(index)}, false)
}

// Search implements Client.
func (c *HTTPClient) Search(ctx context.Context, index string, body any) (json.RawMessage, error) {
	reader, err := jsonBody(body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, opensearchapi.SearchReq{Indices: indices(index), Body: reader}, false)
}

// Shards implements Client.
func (c *HTTPClient) Shards(ctx context.Context, index string) (json.RawMessage, error) {
	return c.do(ctx, opensearchapi.CatShardsReq{Indices: indices(index)}, true)
}

// Health implements Client.
func (c *HTTPClient) Health(ctx context.Context, index string) (json.RawMessage, error) {
	return c.do(ctx, opensearchapi.ClusterHealthReq{Indices: indices(index)}, false)
}

// Count implements Client.
func (c *HTTPClient) Count(ctx context.Context, index string, body any) (json.RawMessage, error) {
	reader, err := jsonBody(body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, opensearchapi.IndicesCountReq{Indices: indices(index), Body: reader}, false)
}

// Explain implements Client.
func (c *HTTPClient) Explain(ctx context.Context, index, id string, body any) (json.RawMessage, error) {
	reader, err := jsonBody(body)
	if err != nil {
		return nil, err
	}
	path := "/" + url.PathEscape(index) + "/_explain/" + url.PathEscape(id)
	return c.do(ctx, rawRequest{method: http.MethodPost, path: path, body: reader, contentType: "application/json"}, false)
}

// MSearch implements Client.
func (c *HTTPClient) MSearch(ctx context.Context, index string, body []any) (json.RawMessage, error) {
	var buf bytes.Buffer
	for i, line := range body {
		b, err := json.Marshal(line)
		if err != nil {
			return nil, fmt.Errorf("failed to encode msearch line %d: %w", i, err)
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}

	path := "/_msearch"
	if index != "" {
		path = "/" + url.PathEscape(index) + path
	}
	return c.do(ctx, rawRequest{method: http.MethodPost, path: path, body: &buf, contentType: "application/x-ndjson"}, false)
}

// Info implements Client.
func (c *HTTPClient) Info(ctx context.Context) (ServerInfo, error) {
	resp, err := c.api.Info(ctx, &opensearchapi.InfoReq{})
	if err != nil {
		return ServerInfo{}, fmt.Errorf("failed to get cluster info: %w", err)
	}
	return ServerInfo{
		ClusterName:  resp.ClusterName,
		Version:      resp.Version.Number,
		Distribution: resp.Version.Distribution,
	}, nil
}

// Close implements Client.
func (c *HTTPClient) Close() {
	c.transport.CloseIdleConnections()
}

// do sends the request through the opensearch-go transport, which fills in
// the node address and authentication.
func (c *HTTPClient) do(ctx context.Context, rb requestBuilder, catFormat bool) (json.RawMessage, error) {
	req, err := rb.GetRequest()
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req = req.WithContext(ctx)

	if catFormat {
		q := req.URL.Query()
		q.Set("format", "json")
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.api.Client.Perform(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newResponseError(resp.StatusCode, body)
	}
	if len(body) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(body), nil
}

// rawRequest covers endpoints without a typed request struct in use here.
type rawRequest struct {
	method      string
	path        string
	body        io.Reader
	contentType string
}

func (r rawRequest) GetRequest() (*http.Request, error) {
	req, err := http.NewRequest(r.method, r.path, r.body)
	if err != nil {
		return nil, err
	}
	if r.body != nil && r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	return req, nil
}

func indices(index string) []string {
	if index == "" {
		return nil
	}
	return []string{index}
}

func jsonBody(body any) (io.Reader, error) {
	if body == nil {
		return nil, nil
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return bytes.NewReader(b), nil
}
