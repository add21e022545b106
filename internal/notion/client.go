// Package notion writes extracted profiles into a Notion database.
package notion

import (
	"bytes"
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

	"github.com/jonathan/profile-importer/internal/logging"
	"github.com/jonathan/profile-importer/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Defaults for the public API.
const (
	DefaultBaseURL = "https://api.notion.com/v1"
	DefaultVersion = "2022-06-28"

	// Notion allows an average of three requests per second per integration.
	defaultRateLimit   = 3
	defaultBurst       = 3
	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 2
	defaultBaseBackoff = 500 * time.Millisecond
	maxResponseSize    = 4 << 20
)

// APIError is a non-2xx response from Notion.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("notion API error (%d %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("notion API error (%d): %s", e.Status, e.Message)
}

// Retryable reports whether the request may succeed if repeated.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// ClientOptions configures a Client.
type ClientOptions struct {
	APIKey     string
	BaseURL    string
	Version    string
	HTTPClient *http.Client
	// RateLimit is requests per second; 0 means the Notion default of 3.
	RateLimit   float64
	MaxRetries  int
	BaseBackoff time.Duration
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

// Client calls the Notion REST API.
type Client struct {
	apiKey      string
	baseURL     string
	version     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// NewClient creates a client. An empty API key is allowed; every call then
// fails with ErrNotConfigured.
func NewClient(opts ClientOptions) *Client {
	c := &Client{
		apiKey:      opts.APIKey,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		version:     opts.Version,
		httpClient:  opts.HTTPClient,
		maxRetries:  opts.MaxRetries,
		baseBackoff: opts.BaseBackoff,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.version == "" {
		c.version = DefaultVersion
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.maxRetries == 0 {
		c.maxRetries = defaultMaxRetries
	} else if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.baseBackoff == 0 {
		c.baseBackoff = defaultBaseBackoff
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	limit := opts.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	c.limiter = rate.NewLimiter(rate.Limit(limit), defaultBurst)
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GetDatabase fetches a database and its property schema.
func (c *Client) GetDatabase(ctx context.Context, databaseID string) (*Database, error) {
	var db Database
	if err := c.do(ctx, "get_database", http.MethodGet, "/databases/"+url.PathEscape(databaseID), nil, &db, true); err != nil {
		return nil, err
	}
	return &db, nil
}

// QueryDatabase runs a filtered query.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req *QueryRequest) (*QueryResponse, error) {
	var resp QueryResponse
	if err := c.do(ctx, "query_database", http.MethodPost, "/databases/"+url.PathEscape(databaseID)+"/query", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreatePage creates a page in a database. A 5xx may arrive after the page
// was stored, so only 429 responses are retried.
func (c *Client) CreatePage(ctx context.Context, req *CreatePageRequest) (*Page, error) {
	var page Page
	if err := c.do(ctx, "create_page", http.MethodPost, "/pages", req, &page, false); err != nil {
		return nil, err
	}
	return &page, nil
}

// do sends a request, retrying retryable API errors. Requests that are not
// idempotent are retried on 429 only.
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any, idempotent bool) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	logger := logging.FromContext(ctx, c.logger).With(zap.String("operation", operation))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt, lastErr)
			logger.Debug("retrying notion request", zap.Int("attempt", attempt), zap.Duration("backoff", backoff), zap.Error(lastErr))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		err := c.send(ctx, operation, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Retryable() {
			return err
		}
		if !idempotent && apiErr.Status != http.StatusTooManyRequests {
			return err
		}
	}

	return lastErr
}

func (c *Client) send(ctx context.Context, operation, method, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", c.version)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(operation, 0)
		return fmt.Errorf("notion request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.observe(operation, resp.StatusCode)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response, data []byte) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}

	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			return &retryAfterError{APIError: apiErr, wait: time.Duration(secs) * time.Second}
		}
	}
	return apiErr
}

// retryAfterError carries the server's Retry-After hint alongside the API error.
type retryAfterError struct {
	*APIError
	wait time.Duration
}

func (e *retryAfterError) Unwrap() error { return e.APIError }

func (c *Client) backoff(attempt int, lastErr error) time.Duration {
	var ra *retryAfterError
	if errors.As(lastErr, &ra) {
		return ra.wait
	}
	return c.baseBackoff * time.Duration(1<<(attempt-1))
}

func (c *Client) observe(operation string, status int) {
	if c.metrics != nil {
		c.metrics.ObserveNotion(operation, status)
	}
}
