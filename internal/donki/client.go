// Package donki fetches space-weather event lists from NASA's DONKI service.
package donki

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/KI7MT/swx-plotter/internal/common"
	"github.com/KI7MT/swx-plotter/internal/logging"
	"github.com/KI7MT/swx-plotter/internal/table"
)

// DefaultBaseURL is the public DONKI endpoint root.
const DefaultBaseURL = "https://api.nasa.gov/DONKI/"

// Source yields DONKI payloads. A false result means no data is available;
// the zero Value is returned alongside it.
type Source interface {
	Fetch(ctx context.Context, endpoint string, params map[string]string) (table.Value, bool)
}

// Config locates the service.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// APIError represents a non-200 HTTP response.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Client is a DONKI HTTP client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
	stats      *common.Stats
}

// Option configures Client behavior.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logging.OrNop(l)
	}
}

// WithStats counts received bytes and failures into s.
func WithStats(s *common.Stats) Option {
	return func(c *Client) {
		c.stats = s
	}
}

// New creates a Client. An empty BaseURL selects DefaultBaseURL and a
// non-positive Timeout selects five minutes.
func New(cfg Config, opts ...Option) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	c := &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL builds the request URL for endpoint. params is not modified.
func (c *Client) URL(endpoint string, params map[string]string) string {
	q := make(url.Values, len(params)+1)
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("api_key", c.apiKey)
	return c.baseURL + strings.TrimPrefix(endpoint, "/") + "?" + q.Encode()
}

// Get requests endpoint and decodes the JSON body. Non-200 responses return
// *APIError; transport and decode failures are wrapped.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]string) (table.Value, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(endpoint, params), nil)
	if err != nil {
		return table.Value{}, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return table.Value{}, errors.Wrapf(err, "GET %s", endpoint)
	}
	defer resp.Body.Close()

	body := io.Reader(resp.Body)
	if c.stats != nil {
		body = &common.CountingReader{R: resp.Body, Stats: c.stats}
	}

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(body, 512))
		return table.Value{}, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	v, err := table.Decode(body)
	if err != nil {
		return table.Value{}, errors.Wrapf(err, "decode %s", endpoint)
	}
	return v, nil
}

// Fetch is Get with failures absorbed: any error is logged and reported as
// (zero Value, false).
func (c *Client) Fetch(ctx context.Context, endpoint string, params map[string]string) (table.Value, bool) {
	start := time.Now()
	v, err := c.Get(ctx, endpoint, params)
	if err != nil {
		if c.stats != nil {
			c.stats.AddFailure()
		}
		fields := []zap.Field{zap.String("endpoint", endpoint), zap.Error(err)}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			fields = append(fields, zap.Int("status", apiErr.StatusCode), zap.String("body", apiErr.Body))
		}
		c.logger.Warn(fmt.Sprintf("[%s] fetch failed", endpoint), fields...)
		return table.Value{}, false
	}
	c.logger.Debug(fmt.Sprintf("[%s] fetched", endpoint),
		zap.Int("records", len(v.Items())),
		zap.Duration("elapsed", time.Since(start)))
	return v, true
}
