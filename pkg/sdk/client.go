package docquery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/cache"
	"github.com/kailas-cloud/docquery/internal/db"
	"github.com/kailas-cloud/docquery/internal/db/memory"
	dbRedis "github.com/kailas-cloud/docquery/internal/db/redis"
	"github.com/kailas-cloud/docquery/internal/metrics"
	"github.com/kailas-cloud/docquery/internal/query"
	"github.com/kailas-cloud/docquery/internal/transport/api"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the docquery SDK entry point. It is safe for concurrent use;
// the queries it creates are not.
type Client struct {
	transport Transport
	store     db.Store
	cache     *cache.Store
	appends   []AppendFunc
	now       func() time.Time
	logger    *zap.Logger
	obs       *observer
}

// New creates a Client. When a Redis cache is configured, the provided
// context bounds the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		baseURI:     api.DefaultBaseURI,
		cachePrefix: cache.DefaultKeyPrefix,
		readiness:   defaultReadinessTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	logger := cfg.zapLogger
	if logger == nil {
		logger = zap.NewNop()
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	transport := cfg.transport
	if transport == nil {
		ac, err := api.NewClient(api.Config{
			BaseURI:    cfg.baseURI,
			PublicKey:  cfg.publicKey,
			PrivateKey: cfg.privateKey,
			Timeout:    cfg.timeout,
			RateLimit:  cfg.rateLimit,
			Burst:      cfg.burst,
			HTTPClient: cfg.httpClient,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("docquery: %w", err)
		}
		transport = ac
	}

	store, err := createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		transport: &observedTransport{inner: transport, obs: obs},
		store:     store,
		appends:   cfg.appends,
		now:       cfg.now,
		logger:    logger,
		obs:       obs,
	}
	if store != nil {
		// Without WithPrometheus, cache outcomes land on the process-wide counter.
		counter := obs.cacheCounter()
		if counter == nil {
			counter = metrics.ResultCacheTotal
		}
		c.cache = cache.New(store, cache.Config{
			KeyPrefix: cfg.cachePrefix,
			TTL:       cfg.cacheTTL,
		}, counter, logger)
	}
	return c, nil
}

func createStore(ctx context.Context, cfg *clientConfig) (db.Store, error) {
	switch cfg.cacheDriver {
	case "":
		return nil, nil
	case "memory":
		return memory.NewStore(), nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.cacheAddrs,
			Password: cfg.cachePassword,
		})
		if err != nil {
			return nil, fmt.Errorf("docquery: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, cfg.readiness); err != nil {
			s.Close()
			return nil, fmt.Errorf("docquery: cache not ready: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("docquery: unknown cache driver %q", cfg.cacheDriver)
	}
}

// Close releases the cache connection, if any.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// NewQuery returns an unscoped query bound to this client.
func (c *Client) NewQuery() *Query {
	opts := []query.Option{
		query.WithTransport(c.transport),
		query.WithLogger(c.logger),
		query.WithClock(c.now),
		query.WithAppends(c.appends...),
	}
	// A typed nil *cache.Store must not end up in the interface.
	if c.cache != nil {
		opts = append(opts, query.WithCache(c.cache))
	}
	return query.New(opts...)
}

// Query returns a query scoped to relation. A non-zero relationID scopes
// it to one partition.
func (c *Client) Query(relation string, relationID int) *Query {
	return c.NewQuery().Relation(relation, relationID)
}

// Model returns a query scoped to m's relation and partition.
func (c *Client) Model(m Model) *Query {
	return c.NewQuery().RelationFor(m)
}

// Ping checks the cache connection. Without a cache it always succeeds.
func (c *Client) Ping(ctx context.Context) (err error) {
	if c.store == nil {
		return nil
	}
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// ForgetCache drops the entry stored under key along with its paginated
// variants.
func (c *Client) ForgetCache(ctx context.Context, key string) (err error) {
	if c.cache == nil {
		return nil
	}
	start := time.Now()
	defer func() { c.obs.observe("cache.forget", start, err) }()

	return c.cache.Forget(ctx, key)
}

// FlushCache drops every cached result and returns how many were removed.
func (c *Client) FlushCache(ctx context.Context) (n int, err error) {
	if c.cache == nil {
		return 0, nil
	}
	start := time.Now()
	defer func() { c.obs.observe("cache.flush", start, err, "removed", n) }()

	return c.cache.Flush(ctx)
}
