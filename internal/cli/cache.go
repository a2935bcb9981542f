package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docquery/internal/cache"
	"github.com/kailas-cloud/docquery/internal/config"
	dbRedis "github.com/kailas-cloud/docquery/internal/db/redis"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the shared result cache",
	}

	var key string
	flush := &cobra.Command{
		Use:   "flush",
		Short: "Drop cached results (all, or one key with --key)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			n, err := flushCache(ctx, cfg, key)
			if err != nil {
				return err
			}
			return printer{format: rootOpts.Format, w: cmd.OutOrStdout()}.fields("removed", n)
		},
	}
	flush.Flags().StringVar(&key, "key", "", "drop only this key and its pages")

	cmd.AddCommand(flush)
	return cmd
}

// flushCache clears the Redis-backed cache. A memory cache lives only as
// long as one process, so there is nothing to flush from the CLI.
func flushCache(ctx context.Context, cfg config.Config, key string) (int, error) {
	if cfg.Cache.Driver != config.CacheRedis {
		return 0, fmt.Errorf("cache flush needs cache.driver %q, got %q", config.CacheRedis, cfg.Cache.Driver)
	}
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Cache.Addrs,
		Password: cfg.Cache.Password,
	})
	if err != nil {
		return 0, fmt.Errorf("create redis store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		return 0, fmt.Errorf("cache not ready: %w", err)
	}

	c := cache.New(store, cache.Config{KeyPrefix: cfg.Cache.KeyPrefix}, nil, nil)
	if key != "" {
		if err := c.Forget(ctx, key); err != nil {
			return 0, err
		}
		return 1, nil
	}
	return c.Flush(ctx)
}
