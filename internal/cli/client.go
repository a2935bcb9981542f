package cli

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/config"
	docquery "github.com/kailas-cloud/docquery/pkg/sdk"
)

// newClient builds an SDK client from configuration.
func newClient(ctx context.Context, cfg config.Config, logger *zap.Logger) (*docquery.Client, error) {
	opts := []docquery.Option{
		docquery.WithBaseURI(cfg.API.BaseURI),
		docquery.WithCredentials(cfg.API.PublicKey, cfg.API.PrivateKey),
		docquery.WithTimeout(cfg.API.Timeout()),
		docquery.WithZapLogger(logger),
		docquery.WithCachePrefix(cfg.Cache.KeyPrefix),
		docquery.WithCacheTTL(cfg.Cache.TTL()),
		docquery.WithCacheReadinessTimeout(time.Duration(cfg.Cache.ReadinessTimeout) * time.Second),
	}
	if cfg.API.RateLimitRPS > 0 {
		opts = append(opts, docquery.WithRateLimit(cfg.API.RateLimitRPS, cfg.API.RateLimitBurst))
	}
	switch cfg.Cache.Driver {
	case config.CacheMemory:
		opts = append(opts, docquery.WithMemoryCache())
	case config.CacheRedis:
		// The SDK option takes one seed address; rueidis discovers the rest.
		opts = append(opts, docquery.WithRedisCache(cfg.Cache.Addrs[0], cfg.Cache.Password))
	}
	return docquery.New(ctx, opts...)
}
