// Package backend is the HTTP client for the upstream care-records REST API.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/platform/auth"
)

var (
	// ErrNotFound is returned when the backend answers 404.
	ErrNotFound = errors.New("backend: not found")
	// ErrUnavailable wraps transport failures.
	ErrUnavailable = errors.New("backend: unavailable")
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client wraps resty with the backend's base URL. GETs retry on transport
// errors and 5xx; writes never retry.
type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	rc.AddRetryCondition(func(r *resty.Response, err error) bool {
		if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
			return false
		}
		return err != nil || r.StatusCode() >= 500
	})

	return &Client{http: rc, logger: logger}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		req.SetHeader("X-Staff-ID", fmt.Sprint(p.StaffID))
	}
	return req
}

// Get decodes the JSON body of GET path into out.
func (c *Client) Get(ctx context.Context, path string, query map[string]string, out interface{}) error {
	resp, err := c.request(ctx).SetQueryParams(query).SetResult(out).Get(path)
	return c.check(http.MethodGet, path, resp, err)
}

// GetRaw returns the undecoded body of GET path.
func (c *Client) GetRaw(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	resp, err := c.request(ctx).SetQueryParams(query).Get(path)
	if err := c.check(http.MethodGet, path, resp, err); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// Post sends body as JSON and decodes the answer into out when non-nil.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	req := c.request(ctx).SetBody(body)
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Post(path)
	return c.check(http.MethodPost, path, resp, err)
}

// Patch sends a partial update and decodes the answer into out when non-nil.
func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	req := c.request(ctx).SetBody(body)
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Patch(path)
	return c.check(http.MethodPatch, path, resp, err)
}

// Ping checks that the backend answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.request(ctx).Get("/health")
	return c.check(http.MethodGet, "/health", resp, err)
}

func (c *Client) check(method, path string, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("backend request failed")
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.IsError() {
		c.logger.Warn().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode()).
			Dur("latency", resp.Time()).
			Msg("backend returned error status")
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode(), Body: truncate(resp.String(), 256)}
	}
	return nil
}

// IsUpstream reports whether err came from the backend rather than from the
// caller's input.
func IsUpstream(err error) bool {
	var se *StatusError
	return errors.As(err, &se) || errors.Is(err, ErrUnavailable)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
