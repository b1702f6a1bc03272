// Package osm provides an HTTP client for the OpenStreetMap Nominatim service
// and the other public lookup services the estimator depends on.
package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	// NominatimBaseURL is the public Nominatim endpoint
	NominatimBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultUserAgent is sent with every request (required by Nominatim's usage policy)
	DefaultUserAgent = "trikefare/0.1.0"

	// DefaultTimeout is the transport-level timeout for a single request
	DefaultTimeout = 30 * time.Second
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	NominatimURL string
	UserAgent    string
	Timeout      time.Duration
	HTTPClient   *http.Client
	Limiter      *RateLimiter
	Logger       *slog.Logger
}

// Client performs rate limited requests against OSM services
type Client struct {
	httpClient   *http.Client
	nominatimURL string
	limiter      *RateLimiter
	logger       *slog.Logger

	userAgent     string
	userAgentLock sync.RWMutex
}

// NewHTTPClient returns an HTTP client with connection pooling
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: timeout,
	}
}

// NewClient creates a new OSM API client
func NewClient(opts Options) *Client {
	c := &Client{
		httpClient:   opts.HTTPClient,
		nominatimURL: opts.NominatimURL,
		limiter:      opts.Limiter,
		logger:       opts.Logger,
		userAgent:    opts.UserAgent,
	}
	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(opts.Timeout)
	}
	if c.nominatimURL == "" {
		c.nominatimURL = NominatimBaseURL
	}
	if c.limiter == nil {
		c.limiter = NewRateLimiter()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	c.logger = c.logger.With("component", "osm")
	return c
}

// SetUserAgent sets the User-Agent string
func (c *Client) SetUserAgent(ua string) {
	c.userAgentLock.Lock()
	defer c.userAgentLock.Unlock()
	c.userAgent = ua
}

// UserAgent returns the current User-Agent string
func (c *Client) UserAgent() string {
	c.userAgentLock.RLock()
	defer c.userAgentLock.RUnlock()
	return c.userAgent
}

// NominatimURL returns the Nominatim base URL in use
func (c *Client) NominatimURL() string {
	return c.nominatimURL
}

// NewRequest creates a new HTTP request with proper User-Agent header
func (c *Client) NewRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent())
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Do performs an HTTP request after waiting for the service's rate limit
func (c *Client) Do(ctx context.Context, service string, req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.UserAgent())

	if err := c.limiter.Wait(ctx, service); err != nil {
		return nil, err
	}

	return c.httpClient.Do(req)
}

// GetJSON issues a GET to rawURL and decodes the JSON body into out.
// Non-200 responses are returned as *APIError.
func (c *Client) GetJSON(ctx context.Context, service, rawURL string, out any) error {
	req, err := c.NewRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.Do(ctx, service, req)
	if err != nil {
		c.logger.Debug("request failed", "service", service, "error", err)
		return fmt.Errorf("%s request: %w", service, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		"service", service,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return NewAPIError(service, resp.StatusCode, string(msg), "")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", service, err)
	}
	return nil
}
