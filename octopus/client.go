package octopus

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

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://emailoctopus.com/api/1.6"

	defaultTimeout = 30 * time.Second
)

// Doer executes a fully formed HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the mailing-list API. It holds no mutable state after
// construction and is safe for concurrent use when its Doer is.
type Client struct {
	baseURL    string
	userAgent  string
	timeout    time.Duration
	httpClient Doer
	requests   requestBuilder
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the transport used for every request.
func WithHTTPClient(client Doer) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the timeout of the default transport. It has no effect
// when a transport is supplied with WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// NewClient creates a new client authenticating with apiKey.
func NewClient(apiKey string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	c := &Client{
		baseURL:  DefaultBaseURL,
		timeout:  defaultTimeout,
		requests: requestBuilder{apiKey: apiKey},
		logger:   logger.With().Str("component", "octopus").Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.baseURL = strings.TrimRight(c.baseURL, "/")
	if c.baseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.ParseRequestURI(c.baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", c.baseURL, err)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}

	return c, nil
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// execute sends req and classifies the outcome. A nil error means the
// server answered with a 2xx status.
func (c *Client) execute(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, assertionFailed("request body cannot be encoded: %v", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL(c.baseURL), body)
	if err != nil {
		return nil, transportFailure(req, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("request_id", requestID).
			Str("method", req.Method).
			Str("path", req.Path).
			Msg("Request could not be completed")
		return nil, transportFailure(req, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, transportFailure(req, fmt.Errorf("failed to read response body: %w", err))
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header.Clone(),
		Body:       raw,
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API request completed")

	if apiErr := classify(req, resp); apiErr != nil {
		return nil, apiErr
	}
	return resp, nil
}

// fetch executes req and decodes the response body as a JSON object.
func (c *Client) fetch(ctx context.Context, req *Request) (record, *Response, error) {
	resp, err := c.execute(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	rec, decodeErr := decodeRecord(resp.Body)
	if decodeErr != nil {
		return nil, nil, decodeErr.withExchange(req, resp)
	}
	return rec, resp, nil
}

// asExchangeError attaches the exchange to assertion failures raised while
// building a value from a successful response.
func asExchangeError(err error, req *Request, resp *Response) error {
	if apiErr, ok := err.(*Error); ok && apiErr.request == nil {
		return apiErr.withExchange(req, resp)
	}
	return err
}
