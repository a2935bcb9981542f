// Package api is the HTTP transport for the content API search endpoint.
package api

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

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	logpkg "github.com/kailas-cloud/docquery/internal/logger"
	"github.com/kailas-cloud/docquery/internal/metrics"
	"github.com/kailas-cloud/docquery/internal/query"
	"github.com/kailas-cloud/docquery/internal/version"
)

// DefaultBaseURI is the production content API.
const DefaultBaseURI = "https://api.netflexapp.com/v1/"

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-Id"

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 64 << 10

// ErrMissingCredentials is returned by NewClient without a key pair.
var ErrMissingCredentials = errors.New("api: public and private key are required")

// Compile-time check: Client implements query.Transport.
var _ query.Transport = (*Client)(nil)

// Config holds the content API settings.
type Config struct {
	BaseURI    string
	PublicKey  string
	PrivateKey string
	Timeout    time.Duration
	// RateLimit caps requests per second. Zero disables limiting.
	RateLimit float64
	Burst     int
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client performs authenticated search requests.
type Client struct {
	base       *url.URL
	publicKey  string
	privateKey string
	http       *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a content API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.PublicKey == "" || cfg.PrivateKey == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.BaseURI == "" {
		cfg.BaseURI = DefaultBaseURI
	}
	if !strings.HasSuffix(cfg.BaseURI, "/") {
		cfg.BaseURI += "/"
	}
	base, err := url.Parse(cfg.BaseURI)
	if err != nil {
		return nil, fmt.Errorf("parse base uri: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		base:       base,
		publicKey:  cfg.PublicKey,
		privateKey: cfg.PrivateKey,
		http:       httpClient,
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// BaseURI returns the resolved API root.
func (c *Client) BaseURI() string { return c.base.String() }

// Search implements query.Transport. Unsuccessful responses are returned as
// *query.StatusError.
func (c *Client) Search(ctx context.Context, req query.Request) (*query.Result, error) {
	relation := strings.Join(req.Relations, ",")

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	target, err := c.base.Parse(req.URL())
	if err != nil {
		return nil, fmt.Errorf("resolve search url: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	log := logpkg.FromContextOr(ctx, c.logger).With(zap.String("request_id", requestID))
	httpReq.SetBasicAuth(c.publicKey, c.privateKey)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	httpReq.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(relation, "error").Inc()
		metrics.SearchErrorsTotal.WithLabelValues(relation, "transport").Inc()
		log.Warn("Search request failed",
			zap.String("relation", relation),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	status := strconv.Itoa(resp.StatusCode)
	metrics.SearchRequestsTotal.WithLabelValues(relation, status).Inc()
	metrics.SearchRequestDuration.WithLabelValues(relation).Observe(duration.Seconds())

	log.Debug("Search request",
		zap.String("url", target.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		metrics.SearchErrorsTotal.WithLabelValues(relation, "status_"+status).Inc()
		log.Warn("Search request rejected",
			zap.String("relation", relation),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &query.StatusError{StatusCode: resp.StatusCode, Body: body}
	}

	var res query.Result
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&res); err != nil {
		metrics.SearchErrorsTotal.WithLabelValues(relation, "decode").Inc()
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &res, nil
}
