// Package bsky is a minimal XRPC client for the Bluesky AppView API. It
// covers exactly the read surface the downloader needs plus session
// management and post creation; responses stay opaque order-preserving
// values so the tree materializer sees them as the server sent them.
package bsky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/skytree/skytree/internal/value"
)

// DefaultService is the public PDS entry point.
const DefaultService = "https://bsky.social"

// APIError is the error envelope XRPC endpoints return with a non-2xx
// status.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %s (%d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %s (%d)", e.Code, e.StatusCode)
}

// Options configures a Client.
type Options struct {
	// Service is the PDS base URL. Empty means DefaultService.
	Service string
	// HTTPClient overrides the default 30s-timeout client.
	HTTPClient *http.Client
	// Logger receives request-level debug logging. Nil means nop.
	Logger *zap.Logger
}

// Client talks XRPC to one service with at most one active session.
// Read calls are safe to issue concurrently; session mutation is not.
type Client struct {
	service string
	http    *http.Client
	session *Session
	log     *zap.Logger
}

// New builds a Client from Options.
func New(opts Options) *Client {
	service := opts.Service
	if service == "" {
		service = DefaultService
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{service: service, http: httpClient, log: log}
}

// Service returns the PDS base URL this client targets.
func (c *Client) Service() string { return c.service }

// Session returns the active session, or nil before login/resume.
func (c *Client) Session() *Session { return c.session }

func (c *Client) endpoint(method string, params url.Values) string {
	u := c.service + "/xrpc/" + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// get performs an authenticated XRPC query and decodes the response body
// into an order-preserving Value.
func (c *Client) get(ctx context.Context, method string, params url.Values) (value.Value, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(method, params), nil)
	if err != nil {
		return value.Value{}, fmt.Errorf("build request %s: %w", method, err)
	}
	if c.session != nil {
		req.Header.Set("Authorization", "Bearer "+c.session.AccessJwt)
	}
	body, err := c.do(req, method)
	if err != nil {
		return value.Value{}, err
	}
	v, err := value.Decode(body)
	if err != nil {
		return value.Value{}, fmt.Errorf("decode %s response: %w", method, err)
	}
	return v, nil
}

// post performs an XRPC procedure with a JSON body, authorized by bearer
// (which may be empty for createSession), decoding the response into out
// when out is non-nil.
func (c *Client) post(ctx context.Context, method, bearer string, in, out any) error {
	var payload io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", method, err)
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method, nil), payload)
	if err != nil {
		return fmt.Errorf("build request %s: %w", method, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	body, err := c.do(req, method)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

func (c *Client) do(req *http.Request, method string) ([]byte, error) {
	c.log.Debug("xrpc call", zap.String("method", method))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil {
			apiErr.Code = "Unknown"
			apiErr.Message = string(body)
		}
		return nil, fmt.Errorf("%s: %w", method, apiErr)
	}
	return body, nil
}
