// Package supabase talks to the Supabase Auth (GoTrue) API: token
// verification and account deletion for the backend, password sessions
// for the command-line client.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/boddenberg/spendlog/internal/domain"
	"github.com/boddenberg/spendlog/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to the Supabase Auth API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	anonKey        string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client. serviceRoleKey may be empty when
// admin operations are not needed.
func NewClient(httpClient *http.Client, baseURL, anonKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(baseURL, "/"),
		anonKey:        anonKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

// gotrueError covers the error shapes GoTrue answers with.
type gotrueError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e gotrueError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// doAuth executes one request against /auth/v1. bearer is sent as the
// Authorization token. A non-2xx answer becomes a domain error; 4xx
// answers are marked permanent so they are neither retried nor counted
// against the breaker.
func (c *Client) doAuth(ctx context.Context, method, path, bearer string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	url := fmt.Sprintf("%s/auth/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	req.Header.Set("apikey", c.anonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.Debug("supabase: request OK",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return respBody, nil
	}

	var ge gotrueError
	_ = json.Unmarshal(respBody, &ge)
	msg := ge.text()

	c.logger.Warn("supabase: non-2xx response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("error", msg),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, resilience.Permanent(&domain.ErrUnauthorized{Message: msg})
	case resp.StatusCode == http.StatusNotFound:
		return nil, resilience.Permanent(&domain.ErrNotFound{Resource: "identity"})
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, resilience.Permanent(&domain.ErrAPI{StatusCode: resp.StatusCode, Detail: msg})
	default:
		return nil, fmt.Errorf("supabase returned status %d: %s", resp.StatusCode, msg)
	}
}

// call runs doAuth through the breaker and retry policy and decodes the
// answer into out when out is non-nil.
func (c *Client) call(ctx context.Context, method, path, bearer string, payload, out any) error {
	err := resilience.Execute(ctx, c.cb, c.cfg, func() error {
		body, err := c.doAuth(ctx, method, path, bearer, payload)
		if err != nil {
			return err
		}
		if out == nil || len(body) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return resilience.Permanent(fmt.Errorf("decode %s: %w", path, err))
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	return &domain.ErrExternalService{Service: "supabase/auth", Err: err}
}

func isDomainError(err error) bool {
	switch err.(type) {
	case *domain.ErrUnauthorized, *domain.ErrNotFound, *domain.ErrAPI, *domain.ErrCircuitOpen:
		return true
	}
	return false
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
