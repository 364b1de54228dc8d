// Package client wraps the gateway REST endpoints for Go callers.
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
	"strings"

	"github.com/holiman/uint256"

	"kaiadefi/core/types"
	"kaiadefi/crypto"
	"kaiadefi/gateway/api"
)

// HeaderCaller names the wallet when the gateway runs without
// authentication.
const HeaderCaller = "X-Kaia-Address"

// Client talks to one gateway.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
	caller     string
}

// Option mutates the client configuration during construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithToken authenticates every request with a bearer JWT.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithCaller names the acting wallet on gateways with authentication
// disabled.
func WithCaller(addr crypto.Address) Option {
	return func(c *Client) {
		c.caller = addr.Hex()
	}
}

// New constructs a client pointed at the supplied base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, fmt.Errorf("baseURL required")
	}
	parsed, err := url.Parse(strings.TrimRight(trimmed, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid baseURL %q", baseURL)
	}
	c := &Client{baseURL: parsed, httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Error is a failed gateway call.
type Error struct {
	Status  int
	Code    string
	Kind    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("gateway %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("gateway %d %s: %s", e.Status, e.Code, e.Message)
}

// CodeOf returns the gateway error code carried by err, if any.
func CodeOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.caller != "" {
		req.Header.Set(HeaderCaller, c.caller)
	}
	return req, nil
}

func (c *Client) raw(ctx context.Context, method, path string, query url.Values, payload any) (*http.Response, []byte, error) {
	req, err := c.newRequest(ctx, method, path, query, payload)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, nil, decodeError(resp.StatusCode, data)
	}
	return resp, data, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	_, data, err := c.raw(ctx, method, path, query, payload)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) amount(ctx context.Context, method, path string, query url.Values, payload any) (*uint256.Int, error) {
	var view api.AmountView
	if err := c.do(ctx, method, path, query, payload, &view); err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(view.Amount)
	if err != nil {
		return nil, fmt.Errorf("decode amount: %w", err)
	}
	return amount, nil
}

func decodeError(status int, data []byte) error {
	var body api.ErrorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Code != "" {
		return &Error{Status: status, Code: body.Error.Code, Kind: body.Error.Kind, Message: body.Error.Message}
	}
	return &Error{Status: status, Message: strings.TrimSpace(string(data))}
}

func formatAmount(amount *uint256.Int) string {
	return types.FormatAmount(amount)
}
