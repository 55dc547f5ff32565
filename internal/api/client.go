// Package api is the HTTP client for the LumiSync backend.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TokenSource supplies the bearer token for each request.
// An empty token means the request is sent without Authorization.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource with a fixed value.
type StaticToken string

// Token returns the fixed token
func (t StaticToken) Token() string { return string(t) }

// Observer is notified after every request completes.
// status is 0 when the request never got a response.
type Observer func(method, path string, status int, elapsed time.Duration)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets a per-request timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithObserver registers a request observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observers = append(c.observers, o) }
}

// WithHTTPClient swaps the underlying transport client, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc).SetBaseURL(c.baseURL)
		c.configure()
	}
}

// Client performs single-attempt JSON requests against the backend.
type Client struct {
	baseURL   string
	tokens    TokenSource
	http      *resty.Client
	observers []Observer

	inFlight atomic.Int32
	// transitionMu orders idle/busy transitions with their hook calls
	transitionMu sync.Mutex
	hooksMu      sync.RWMutex
	hooks        []func(bool)
}

// New creates a client for baseURL. tokens may be nil.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if tokens == nil {
		tokens = StaticToken("")
	}
	baseURL = strings.TrimRight(baseURL, "/")

	c := &Client{
		baseURL: baseURL,
		tokens:  tokens,
		http:    resty.New().SetBaseURL(baseURL),
	}
	c.configure()

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) configure() {
	// Fail fast: one attempt, errors go straight to the caller
	c.http.
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Loading reports whether any request is in flight.
func (c *Client) Loading() bool {
	return c.inFlight.Load() > 0
}

// OnLoading registers a hook fired when the client goes from idle to busy and back.
// Hooks run one at a time in transition order and must not issue requests.
func (c *Client) OnLoading(fn func(loading bool)) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.hooks = append(c.hooks, fn)
}

func (c *Client) fireLoading(loading bool) {
	c.hooksMu.RLock()
	hooks := c.hooks
	c.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(loading)
	}
}

// do performs one request. body may be nil; out may be nil, *string for raw text, or a JSON target.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	c.transitionMu.Lock()
	if c.inFlight.Add(1) == 1 {
		c.fireLoading(true)
	}
	c.transitionMu.Unlock()
	defer func() {
		c.transitionMu.Lock()
		defer c.transitionMu.Unlock()
		if c.inFlight.Add(-1) == 0 {
			c.fireLoading(false)
		}
	}()

	requestID := uuid.NewString()
	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", requestID)

	if token := c.tokens.Token(); token != "" {
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	elapsed := time.Since(start)

	if err != nil {
		c.observe(method, path, 0, elapsed)
		log.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("API request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	status := resp.StatusCode()
	c.observe(method, path, status, elapsed)
	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("elapsed", elapsed).
		Str("request_id", requestID).
		Msg("API request")

	if status < 200 || status >= 300 {
		return newAPIError(status, resp.Body())
	}

	return decode(resp.Body(), out)
}

func decode(body []byte, out any) error {
	if out == nil {
		return nil
	}
	if s, ok := out.(*string); ok {
		*s = string(body)
		return nil
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) observe(method, path string, status int, elapsed time.Duration) {
	for _, o := range c.observers {
		o(method, path, status, elapsed)
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// SensorStreamURL returns the live data endpoint for a sensor, carrying the token
// as a query parameter since EventSource/WebSocket clients cannot set headers.
// websocket switches the scheme to ws/wss.
func (c *Client) SensorStreamURL(sensorID int, websocket bool) (string, error) {
	u, err := url.Parse(c.baseURL + "/sensors/data/sse/" + strconv.Itoa(sensorID))
	if err != nil {
		return "", fmt.Errorf("invalid stream url: %w", err)
	}
	if websocket {
		switch u.Scheme {
		case "https":
			u.Scheme = "wss"
		default:
			u.Scheme = "ws"
		}
	}
	if token := c.tokens.Token(); token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
