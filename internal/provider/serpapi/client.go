// Package serpapi implements the external lookup provider on top of the
// SerpAPI Google search endpoint.
//
// The client builds one GET request per lookup, rate-limits outbound calls
// and decodes only the result section the lookup intent asks for. It performs
// no retries; a failed call is reported once and the caller decides what to do.
package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Daethyra/ExecEye/internal/search"
)

// Client defaults.
const (
	DefaultBaseURL       = "https://serpapi.com/search.json"
	DefaultEngine        = "google"
	DefaultTimeout       = 15 * time.Second
	DefaultRatePerSecond = 5.0
	DefaultResults       = 10

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 8 << 20
)

// ErrMissingAPIKey is returned by New when no API key is supplied.
var ErrMissingAPIKey = errors.New("serpapi: API key is required")

// Config configures a Client.
type Config struct {
	APIKey string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Engine defaults to DefaultEngine.
	Engine string

	// Timeout bounds each HTTP request. Defaults to DefaultTimeout.
	Timeout time.Duration

	// RatePerSecond limits outbound requests. Zero uses the default, a
	// negative value disables limiting.
	RatePerSecond float64

	// Results is the number of results requested per query.
	Results int

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client issues searches against SerpAPI. Safe for concurrent use.
type Client struct {
	apiKey  string
	baseURL string
	engine  string
	results int
	http    *http.Client
	limiter *rate.Limiter
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("serpapi: invalid base URL: %w", err)
	}

	engine := cfg.Engine
	if engine == "" {
		engine = DefaultEngine
	}

	results := cfg.Results
	if results <= 0 {
		results = DefaultResults
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	switch {
	case cfg.RatePerSecond == 0:
		limiter = rate.NewLimiter(rate.Limit(DefaultRatePerSecond), 1)
	case cfg.RatePerSecond > 0:
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		engine:  engine,
		results: results,
		http:    httpClient,
		limiter: limiter,
	}, nil
}

// Search runs req and returns the records in the section matching
// req.Intent. A response without that section yields an empty slice.
func (c *Client) Search(ctx context.Context, req search.Request) ([]search.Record, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("serpapi: rate limit wait: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(req), nil)
	if err != nil {
		return nil, fmt.Errorf("serpapi: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("serpapi: request failed: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("serpapi: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.Status)}
	}

	var payload response
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("serpapi: decode response: %w", err)
	}
	if payload.Error != "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}

	return payload.records(req.Intent), nil
}

func (c *Client) requestURL(req search.Request) string {
	q := url.Values{}
	q.Set("engine", c.engine)
	q.Set("q", req.Query)
	q.Set("num", strconv.Itoa(c.results))
	q.Set("api_key", c.apiKey)
	if req.Intent == search.IntentNews {
		q.Set("tbm", "nws")
	}
	return c.baseURL + "?" + q.Encode()
}

// redactURLError strips the request URL, which carries the API key, from
// transport errors.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
