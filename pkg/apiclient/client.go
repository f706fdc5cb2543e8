// Package apiclient issues authenticated JSON requests against the task
// management API and unwraps its response envelope.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// DefaultBaseURL is the API origin plus versioned prefix used when none is configured.
const DefaultBaseURL = "http://localhost:2024/api/v1"

// TokenSource supplies the bearer credential for each call. An empty token is
// still sent as "Bearer " and left for the server to reject.
type TokenSource interface {
	AccessToken() string
}

// StaticToken is a TokenSource that always returns the same value.
type StaticToken string

// AccessToken implements TokenSource.
func (t StaticToken) AccessToken() string { return string(t) }

// Envelope is the uniform wrapper around every response body.
type Envelope struct {
	Code         string          `json:"code"`
	Description  string          `json:"description"`
	ResponseData json.RawMessage `json:"responseData,omitempty"`
}

// Client is bound to one base address and one token source.
type Client struct {
	base   string
	http   *http.Client
	tokens TokenSource

	onUnauthenticated func(*APIError)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is attached
// if the supplied client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// OnUnauthenticated registers a hook fired once for every response the
// server rejects as unauthenticated.
func OnUnauthenticated(fn func(*APIError)) Option {
	return func(c *Client) { c.onUnauthenticated = fn }
}

// New creates a Client for baseURL. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{},
		tokens: tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, _ := cookiejar.New(nil)
		hc := *c.http
		hc.Jar = jar
		c.http = &hc
	}
	return c
}

// BaseURL returns the address every path is resolved against.
func (c *Client) BaseURL() string { return c.base }

// Get issues a GET and decodes responseData into out when out is non-nil.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, query url.Values, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, query, body, out)
}

// Delete issues a DELETE without a body.
func (c *Client) Delete(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodDelete, path, query, nil, out)
}

// Do performs a single request. There is no retry; the caller sees exactly
// one outcome per call.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.tokens.AccessToken())
	req.Header.Set("X-Request-ID", uuid.Must(uuid.NewV7()).String())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	env, err := c.intercept(resp.StatusCode, raw)
	if err != nil {
		return err
	}
	if out == nil || len(env.ResponseData) == 0 || string(env.ResponseData) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.ResponseData, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
