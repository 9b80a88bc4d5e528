package askdoc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 120 * time.Second

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	apiKey     string
	httpClient *http.Client
}

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithHTTPClient replaces the underlying HTTP client. Useful for custom
// timeouts, transports, or test doubles.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// Client is the askdoc SDK entry point.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("askdoc: base URL required")
	}
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.apiKey,
		hc:      hc,
	}, nil
}

// Ingest chunks and indexes one extracted file.
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	var out IngestResult
	err := c.do(ctx, http.MethodPost, "/documents", req, &out)
	return out, err
}

// Query asks a question over the indexed documents.
func (c *Client) Query(ctx context.Context, question string) (QueryResponse, error) {
	var out QueryResponse
	err := c.do(ctx, http.MethodPost, "/query", map[string]string{"question": question}, &out)
	return out, err
}

// Status returns the current document count and service version.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var out Status
	err := c.do(ctx, http.MethodGet, "/status", nil, &out)
	return out, err
}

// Reset removes all indexed documents.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/documents", nil, nil)
}

// SaveSnapshot persists the index to the server's configured snapshot path.
func (c *Client) SaveSnapshot(ctx context.Context) (SnapshotResult, error) {
	var out SnapshotResult
	err := c.do(ctx, http.MethodPost, "/snapshot/save", nil, &out)
	return out, err
}

// LoadSnapshot replaces the live index with the persisted snapshot.
func (c *Client) LoadSnapshot(ctx context.Context) (SnapshotResult, error) {
	var out SnapshotResult
	err := c.do(ctx, http.MethodPost, "/snapshot/load", nil, &out)
	return out, err
}

// Health reports whether the service is reachable and serving.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("askdoc: encode request: %w", err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("askdoc: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("askdoc: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decErr := json.NewDecoder(resp.Body).Decode(apiErr); decErr != nil {
			apiErr.Code = "unknown"
			apiErr.Message = resp.Status
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("askdoc: decode response: %w", err)
	}
	return nil
}
