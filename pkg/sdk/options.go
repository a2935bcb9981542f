package docquery

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	baseURI    string
	publicKey  string
	privateKey string
	httpClient *http.Client
	timeout    time.Duration
	rateLimit  float64
	burst      int
	transport  Transport

	cacheDriver   string // "", "memory" or "redis"
	cacheAddrs    []string
	cachePassword string
	cachePrefix   string
	cacheTTL      time.Duration
	readiness     time.Duration

	appends    []AppendFunc
	now        func() time.Time
	logger     *slog.Logger
	zapLogger  *zap.Logger
	metricsReg prometheus.Registerer
}

// WithCredentials sets the public/private API key pair sent as basic auth.
func WithCredentials(publicKey, privateKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.publicKey = publicKey
		c.privateKey = privateKey
	})
}

// WithBaseURI points the client at another API root, e.g. a local mock.
// Default: https://api.netflexapp.com/v1/.
func WithBaseURI(uri string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURI = uri
	})
}

// WithHTTPClient replaces the HTTP client. WithTimeout is ignored when set.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithTimeout bounds a single API call. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithRateLimit caps outgoing requests per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return optionFunc(func(c *clientConfig) {
		c.rateLimit = rps
		c.burst = burst
	})
}

// WithTransport replaces the HTTP transport entirely. Credentials are not
// required when a custom transport is set.
func WithTransport(t Transport) Option {
	return optionFunc(func(c *clientConfig) {
		c.transport = t
	})
}

// WithMemoryCache keeps cached results in process memory.
func WithMemoryCache() Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "memory"
	})
}

// WithRedisCache keeps cached results in Redis.
func WithRedisCache(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "redis"
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
	})
}

// WithCachePrefix namespaces cache keys. Default: "docquery:".
func WithCachePrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cachePrefix = prefix
	})
}

// WithCacheTTL bounds the lifetime of cached results. Zero (default) keeps
// them until flushed.
func WithCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithCacheReadinessTimeout bounds the initial Redis readiness check.
// Default: 10s.
func WithCacheReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readiness = d
	})
}

// WithAppends registers deferred mutators applied to every query the client
// creates, just before its first compile.
func WithAppends(fns ...AppendFunc) Option {
	return optionFunc(func(c *clientConfig) {
		c.appends = append(c.appends, fns...)
	})
}

// WithClock overrides the instant used for the publication filter.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(c *clientConfig) {
		c.now = now
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithZapLogger sets the logger used by the transport, cache and builders.
func WithZapLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.zapLogger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts, durations and
// cache hits) on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
