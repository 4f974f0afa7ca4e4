// Package client is the Go SDK for the SpendLog REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/boddenberg/spendlog/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("client")

// DefaultTimeout bounds every request, body read included.
const DefaultTimeout = 10 * time.Second

// DefaultBaseURL is used when New gets an empty base URL.
const DefaultBaseURL = "http://localhost:8000"

// CredentialProvider supplies the bearer token for each request.
// An empty token with a nil error means "not signed in".
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

// Token returns the token itself.
func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Client talks to the SpendLog API.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	creds      CredentialProvider
	timeout    time.Duration
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the API at baseURL. creds may be nil for
// unauthenticated use.
func New(baseURL string, creds CredentialProvider, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    u,
		creds:      creds,
		timeout:    DefaultTimeout,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API origin the client is configured with.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// ResolveAttachmentURL turns a stored attachment URL into one that can be
// opened directly. Absolute URLs pass through; relative ones are resolved
// against the configured base URL.
func (c *Client) ResolveAttachmentURL(raw string) string {
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if ref.IsAbs() {
		return raw
	}
	return c.baseURL.ResolveReference(ref).String()
}

// ============================================================
// Request plumbing
// ============================================================

// Do sends a JSON request to endpoint and decodes the answer into out.
// body and out may be nil. A 204 or empty body leaves out untouched.
// out is only written when the whole body decodes.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any) error {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(b)
	}
	return c.send(ctx, method, endpoint, payload, "application/json", func(resp *http.Response) error {
		return decodeInto(resp.Body, out)
	})
}

// send runs one request under the client timeout and hands a 2xx
// response to read. Non-2xx answers become typed errors.
func (c *Client) send(ctx context.Context, method, endpoint string, body io.Reader, contentType string, read func(*http.Response) error) error {
	ctx, span := tracer.Start(ctx, "SpendLogClient."+method)
	defer span.End()
	span.SetAttributes(attribute.String("http.endpoint", endpoint))

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.roundTrip(reqCtx, method, endpoint, body, contentType, read)
	if err != nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		c.logger.Error("client: request timeout", zap.String("method", method), zap.String("endpoint", endpoint))
		return &domain.ErrTimeout{Operation: method + " " + endpoint}
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint string, body io.Reader, contentType string, read func(*http.Response) error) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return err
	}

	c.logger.Debug("client: sending request", zap.String("method", method), zap.String("endpoint", endpoint))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.logger.Debug("client: response received", zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}
	if resp.StatusCode == http.StatusNoContent || read == nil {
		return nil
	}
	return read(resp)
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.creds == nil {
		c.logger.Warn("client: no active session", zap.String("endpoint", req.URL.Path))
		return nil
	}
	token, err := c.creds.Token(ctx)
	if err != nil {
		return fmt.Errorf("get access token: %w", err)
	}
	if token == "" {
		c.logger.Warn("client: no active session", zap.String("endpoint", req.URL.Path))
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// responseError maps a non-2xx response to the domain error taxonomy.
func responseError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return &domain.ErrNotFound{}
	case http.StatusUnauthorized:
		return &domain.ErrUnauthorized{}
	}

	apiErr := &domain.ErrAPI{StatusCode: resp.StatusCode}
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if s, ok := body.Detail.(string); ok {
			apiErr.Detail = s
		}
	}
	return apiErr
}

// decodeInto reads r fully and decodes it into out, which must be a
// non-nil pointer. out is left untouched on any failure.
func decodeInto(r io.Reader, out any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("decode response: out must be a non-nil pointer, got %T", out)
	}
	tmp := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(data, tmp.Interface()); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	rv.Elem().Set(tmp.Elem())
	return nil
}

// get is Do for the common typed GET case. A 204, an empty body or a
// JSON null yields (nil, nil).
func get[T any](ctx context.Context, c *Client, endpoint string) (*T, error) {
	return call[T](ctx, c, http.MethodGet, endpoint, nil)
}

// call is Do with a typed result. A 204, an empty body or a JSON null
// yields (nil, nil).
func call[T any](ctx context.Context, c *Client, method, endpoint string, body any) (*T, error) {
	var out *T
	if err := c.Do(ctx, method, endpoint, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// withQuery appends q to endpoint when it is non-empty.
func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}
