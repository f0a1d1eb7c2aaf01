// Package client provides a minimal MediaWiki Action API client: backlink
// enumeration with continuation, and raw Wikibase entity fetches.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/wiki-api-client/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for wiki client operations.
var (
	wikiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wiki_requests_total",
		Help: "Total MediaWiki API requests by action and status",
	}, []string{"action", "status"})

	wikiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wiki_request_duration_seconds",
		Help:    "MediaWiki API request duration in seconds by action",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"action"})

	wikiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wiki_errors_total",
		Help: "Total MediaWiki API errors by class",
	}, []string{"class"})
)

const (
	// DefaultEndpoint is the public Wikidata Action API.
	DefaultEndpoint = "https://www.wikidata.org/w/api.php"

	// DefaultUserAgent identifies this client. Wikimedia rejects requests without one.
	DefaultUserAgent = "wiki-api-client/0.1.0 (https://github.com/Sternrassler/wiki-api-client)"

	// DefaultTimeout bounds a single HTTP round-trip.
	DefaultTimeout = 30 * time.Second
)

// maxErrorBody caps how much of a failed response body ends up in an error message.
const maxErrorBody = 512

// Client is an immutable MediaWiki API client. It is safe for reuse.
type Client struct {
	httpClient *http.Client
	endpoint   *url.URL
	userAgent  string
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Endpoint is the api.php URL. Empty means DefaultEndpoint.
	Endpoint string

	// User-Agent header.
	// Format: "AppName/Version (contact)"
	UserAgent string

	// Timeout per HTTP request. Zero disables the timeout.
	// Ignored when HTTPClient is set.
	Timeout time.Duration

	// HTTPClient overrides the transport (for testing or custom proxies).
	HTTPClient *http.Client
}

// DefaultConfig returns a configuration pointing at Wikidata.
func DefaultConfig() Config {
	return Config{
		Endpoint:  DefaultEndpoint,
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint must be an http(s) URL (got %q)", endpoint)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("endpoint has no host (got %q)", endpoint)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	return &Client{
		httpClient: httpClient,
		endpoint:   u,
		userAgent:  cfg.UserAgent,
		logger:     logging.NewLogger("wiki-client").With().Str("endpoint", u.Host).Logger(),
	}, nil
}

// Endpoint returns the configured api.php URL.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// fetch issues one GET with the given parameters and returns the body of a 2xx
// response along with its status. format=json is always sent.
func (c *Client) fetch(ctx context.Context, params url.Values) ([]byte, int, error) {
	action := params.Get("action")

	start := time.Now()
	defer func() {
		wikiRequestDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
	}()

	u := *c.endpoint
	query := u.Query()
	for key, values := range params {
		query[key] = values
	}
	query.Set("format", "json")
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, c.networkError(action, "create request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("action", action).
		Str("url", u.String()).
		Msg("Executing wiki request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, c.networkError(action, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		class := classifyStatus(resp.StatusCode)
		wikiErrorsTotal.WithLabelValues(string(class)).Inc()
		wikiRequestsTotal.WithLabelValues(action, strconv.Itoa(resp.StatusCode)).Inc()

		c.logger.Warn().
			Str("action", action).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Wiki request error")

		msg := resp.Status
		if body := strings.TrimSpace(string(snippet)); body != "" {
			msg = msg + ": " + body
		}
		return nil, resp.StatusCode, &TransportError{
			Action:     action,
			ErrorClass: class,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, c.networkError(action, "read response", err)
	}
	wikiRequestsTotal.WithLabelValues(action, strconv.Itoa(resp.StatusCode)).Inc()

	c.logger.Debug().
		Str("action", action).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("Wiki request complete")

	return body, resp.StatusCode, nil
}

// get fetches a response that must be a JSON object. An upstream
// {"error": {...}} envelope becomes a TransportError of class api.
func (c *Client) get(ctx context.Context, params url.Values) (map[string]any, error) {
	action := params.Get("action")

	body, status, err := c.fetch(ctx, params)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, newParseError(action, "$", "invalid JSON object", err)
	}
	if doc == nil {
		return nil, newParseError(action, "$", "expected JSON object, got null", nil)
	}

	if errObj, ok := doc["error"].(map[string]any); ok {
		code, _ := errObj["code"].(string)
		info, _ := errObj["info"].(string)
		wikiErrorsTotal.WithLabelValues(string(ErrorClassAPI)).Inc()
		c.logger.Warn().
			Str("action", action).
			Str("code", code).
			Msg("Wiki API returned error")
		return nil, &TransportError{
			Action:     action,
			ErrorClass: ErrorClassAPI,
			StatusCode: status,
			Code:       code,
			Message:    info,
		}
	}

	return doc, nil
}

func (c *Client) networkError(action, msg string, err error) error {
	wikiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
	wikiRequestsTotal.WithLabelValues(action, "network_error").Inc()
	c.logger.Error().Err(err).Str("action", action).Msg("Wiki request failed")
	return &TransportError{
		Action:     action,
		ErrorClass: ErrorClassNetwork,
		Message:    msg,
		Err:        err,
	}
}

func newParseError(action, path, msg string, err error) *ParseError {
	wikiErrorsTotal.WithLabelValues("parse").Inc()
	return &ParseError{Action: action, Path: path, Message: msg, Err: err}
}
