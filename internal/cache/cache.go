// Package cache memoizes search results in a key-value store.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/db"
	"github.com/kailas-cloud/docquery/internal/query"
)

// DefaultKeyPrefix namespaces cache keys in a shared store.
const DefaultKeyPrefix = "docquery:"

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Compile-time check: Store implements query.ResultCache.
var _ query.ResultCache = (*Store)(nil)

// Store caches search results as JSON. Failures are logged and treated as
// misses; the cache never fails a query.
type Store struct {
	kv         store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// Config configures a Store.
type Config struct {
	// KeyPrefix is prepended to every key. Empty means DefaultKeyPrefix.
	KeyPrefix string
	// TTL bounds entry lifetime. Zero keeps entries until invalidated.
	TTL time.Duration
}

// New creates a result cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"); nil disables counting.
func New(kv store, cfg Config, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Store {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		kv:         kv,
		prefix:     cfg.KeyPrefix,
		ttl:        cfg.TTL,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Load returns the result cached under key.
func (s *Store) Load(ctx context.Context, key string) (*query.Result, bool) {
	full := s.prefix + key
	data, err := s.kv.Get(ctx, full)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			s.logger.Warn("Failed to get cached result", zap.String("key", full), zap.Error(err))
		}
		s.inc("miss")
		return nil, false
	}

	var res query.Result
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&res); err != nil {
		s.logger.Warn("Failed to parse cached result", zap.String("key", full), zap.Error(err))
		s.inc("miss")
		return nil, false
	}

	s.inc("hit")
	return &res, true
}

// Store caches res under key.
func (s *Store) Store(ctx context.Context, key string, res *query.Result) {
	full := s.prefix + key
	data, err := json.Marshal(res)
	if err != nil {
		s.logger.Warn("Failed to encode result", zap.String("key", full), zap.Error(err))
		return
	}
	if err := s.kv.SetWithTTL(ctx, full, data, s.ttl); err != nil {
		s.logger.Warn("Failed to cache result", zap.String("key", full), zap.Error(err))
	}
}

// Forget drops key and every variant cached under it (sizes, pages and
// projections are stored as "key#...").
func (s *Store) Forget(ctx context.Context, key string) error {
	full := s.prefix + key
	pages, err := s.kv.Scan(ctx, full+"#*")
	if err != nil {
		return err
	}
	return s.kv.Del(ctx, append(pages, full)...)
}

// Flush drops every key under the cache prefix.
func (s *Store) Flush(ctx context.Context) (int, error) {
	keys, err := s.kv.Scan(ctx, s.prefix+"*")
	if err != nil {
		return 0, err
	}
	if err := s.kv.Del(ctx, keys...); err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *Store) inc(result string) {
	if s.cacheTotal != nil {
		s.cacheTotal.WithLabelValues(result).Inc()
	}
}
