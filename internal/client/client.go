// Package client talks to a blobgate proxy.
//
// A Client is built from an explicit Config; nothing is read from global
// state. Every call fails fast with ErrNotConfigured when the endpoint is
// empty. Failed requests come back as *errs.Error whose cause is an
// *APIError carrying the HTTP status and the proxy's message.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/koustreak/blobgate/internal/errs"
	"github.com/koustreak/blobgate/internal/logger"
	"github.com/koustreak/blobgate/internal/policy"
)

// ErrNotConfigured is returned before any network access when the client
// has no endpoint.
var ErrNotConfigured = errs.New(errs.ErrKindNotConfigured, "storage endpoint is not configured")

// APIError is a non-2xx answer from the proxy.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("proxy returned %d: %s", e.Status, e.Message)
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithClock replaces time.Now for generated keys and note timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger sets the logger used for per-request debug output.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// Client issues proxy requests. It is safe for concurrent use.
type Client struct {
	cfg Config
	hc  *http.Client
	now func() time.Time
	log *logger.Logger
}

// New returns a Client for cfg. No request is made until a method is called.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg: cfg,
		hc:  &http.Client{},
		now: time.Now,
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config {
	return c.cfg
}

// FileURL returns the direct-read URL of key.
func (c *Client) FileURL(key string) string {
	return c.cfg.base() + "/file/" + policy.EncodeURIComponent(key)
}

func (c *Client) check() error {
	if !c.cfg.Configured() {
		return ErrNotConfigured
	}
	return nil
}

func (c *Client) actionURL(action string, withToken bool) string {
	q := url.Values{}
	q.Set("action", action)
	if withToken && c.cfg.APIToken != "" {
		q.Set("authorization", c.cfg.APIToken)
	}
	return c.cfg.base() + "/?" + q.Encode()
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "build request", err)
	}
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}
	return req, nil
}

// send executes req and turns any non-2xx answer into an error. On success
// the caller owns resp.Body.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	start := c.now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, errs.Wrap(errs.ErrKindTimeout, "request canceled", err)
		}
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "proxy unreachable", err)
	}

	c.log.With().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Logger().Debugf("proxy call took %s", c.now().Sub(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, decodeError(resp)
}

// decodeError prefers the JSON "error" field and falls back to the status
// text.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
		if body.Message != "" {
			apiErr.Message += ": " + body.Message
		}
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	return errs.Wrap(errs.FromHTTPStatus(resp.StatusCode), apiErr.Message, apiErr)
}

// postAction sends a JSON action and decodes the JSON answer into out.
func (c *Client) postAction(ctx context.Context, action string, payload, out interface{}) error {
	if err := c.check(); err != nil {
		return err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "encode request", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.actionURL(action, false), bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeJSONBody(resp, out)
}

func decodeJSONBody(resp *http.Response, out interface{}) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrap(errs.ErrKindQueryFailed, "decode proxy response", err)
	}
	return nil
}

func (c *Client) fileRequest(ctx context.Context, method, key string) (*http.Response, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(key) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "key is required")
	}
	req, err := c.newRequest(ctx, method, c.FileURL(key), nil)
	if err != nil {
		return nil, err
	}
	return c.send(req)
}
