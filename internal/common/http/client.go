// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"grant-portal/internal/common/errors"
	"grant-portal/internal/common/metrics"
)

// TokenSource supplies the bearer token for outgoing requests. An empty
// token means the request is sent anonymously.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	timeout    time.Duration
}

type Option func(*Client)

// WithBaseURL sets the prefix for relative request paths.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithTokenSource attaches Authorization: Bearer headers from ts.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithHTTPClient replaces the underlying client; the timeout is kept.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.Timeout = timeout
	return c
}

// URL resolves path against the base URL. Absolute URLs pass through.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// WithTimeout returns a copy of c whose requests are bounded by timeout
// instead. The copy shares the transport, base URL and token source.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	hc := *c.httpClient
	hc.Timeout = timeout
	clone := *c
	clone.httpClient = &hc
	clone.timeout = timeout
	return &clone
}

// NewRequest builds a request for path with the bearer token attached.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)

	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	metrics.HTTPRequestDuration.WithLabelValues(req.Method, status).Observe(time.Since(start).Seconds())

	return resp, err
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.Do(req.WithContext(ctx))
}

// Send performs req and reads the whole body. Transport failures are
// mapped to NETWORK_ERROR or REQUEST_TIMEOUT; the status is not checked.
func (c *Client) Send(req *http.Request, service string) (int, []byte, error) {
	resp, err := c.Do(req)
	if err != nil {
		return 0, nil, c.transportError(req.Context(), service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, c.transportError(req.Context(), service, err)
	}
	return resp.StatusCode, body, nil
}

// DoJSON sends in as a JSON body (when non-nil) and decodes a 2xx
// response into out (when non-nil). Non-2xx responses return *APIError.
func (c *Client) DoJSON(ctx context.Context, method, path, service string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", service, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	status, respBody, err := c.Send(req, service)
	if err != nil {
		return err
	}

	if !IsSuccess(status) {
		return ParseErrorBody(status, respBody)
	}

	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return errors.NewResponseParseFailedError(service, err)
		}
	}
	return nil
}

func (c *Client) transportError(ctx context.Context, service string, err error) error {
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.NewRequestTimeoutError(service, c.timeout)
	}
	return errors.NewNetworkError(service, err)
}

// IsSuccess reports whether status is 2xx.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
