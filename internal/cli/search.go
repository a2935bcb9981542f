package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/config"
	logpkg "github.com/kailas-cloud/docquery/internal/logger"
	docquery "github.com/kailas-cloud/docquery/pkg/sdk"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	query    queryFlags
	page     int
	perPage  int
	all      bool
	random   int
	cacheKey string
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search <relation>",
		Short: "Run a query against the content API",
		Example: `  docquery search article -w 'author=john' --page 2 --per-page 25
  docquery search entries --relation-id 10000 --all --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), rootOpts, func(ctx context.Context, c *docquery.Client, cfg config.Config) error {
				return runSearch(ctx, opts, c, cfg, args[0], printer{format: opts.Format, w: cmd.OutOrStdout()})
			})
		},
	}

	opts.query.register(cmd)
	cmd.Flags().IntVar(&opts.page, "page", 0, "page number (enables pagination)")
	cmd.Flags().IntVar(&opts.perPage, "per-page", 0, "page size (default query.page_size)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "iterate over every page")
	cmd.Flags().IntVar(&opts.random, "random", 0, "return n random matches")
	cmd.Flags().StringVar(&opts.cacheKey, "cache-key", "", "memoize the result under this key")

	return cmd
}

func runSearch(
	ctx context.Context, opts *SearchOptions, c *docquery.Client, cfg config.Config, relation string, out printer,
) error {
	q, err := opts.query.apply(c.NewQuery(), relation)
	if err != nil {
		return err
	}
	if opts.cacheKey != "" {
		q.CacheResultsWithKey(opts.cacheKey)
	}

	switch {
	case opts.random > 0:
		items, err := q.Random(ctx, opts.random)
		if err != nil {
			return err
		}
		return out.records(toMaps(items), nil)

	case opts.all:
		items, err := docquery.Collect(q.Chunk(ctx, cfg.Query.ChunkSize))
		if err != nil {
			return err
		}
		return out.records(toMaps(items), map[string]any{"total": len(items)})

	case opts.page > 0 || opts.perPage > 0:
		size := opts.perPage
		if size <= 0 {
			size = cfg.Query.PageSize
		}
		page, err := q.Paginate(ctx, size, max(opts.page, 1))
		if err != nil {
			return err
		}
		return out.records(toMaps(page.Items), map[string]any{
			"current_page": page.CurrentPage,
			"per_page":     page.PerPage,
			"total":        page.Total,
			"last_page":    page.LastPage,
		})

	default:
		items, err := q.Get(ctx)
		if err != nil {
			return err
		}
		return out.records(toMaps(items), nil)
	}
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &queryFlags{}

	cmd := &cobra.Command{
		Use:   "count <relation>",
		Short: "Count the records matching a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), rootOpts, func(ctx context.Context, c *docquery.Client, _ config.Config) error {
				q, err := flags.apply(c.NewQuery(), args[0])
				if err != nil {
					return err
				}
				n, err := q.Count(ctx)
				if err != nil {
					return err
				}
				return printer{format: rootOpts.Format, w: cmd.OutOrStdout()}.fields("count", n)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

// withClient loads config, builds a logger and client, and runs fn.
func withClient(
	ctx context.Context, rootOpts *RootOptions, fn func(context.Context, *docquery.Client, config.Config) error,
) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := rootOpts.loadConfig()
	if err != nil {
		return err
	}
	if !cfg.HasCredentials() {
		return fmt.Errorf("api.public_key and api.private_key are required")
	}
	logger, err := rootOpts.newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := newClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx = logpkg.ContextWithLogger(ctx, logger)
	if err := fn(ctx, c, cfg); err != nil {
		logger.Debug("Command failed", zap.Error(err))
		return err
	}
	return nil
}

func toMaps(items []docquery.Item) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}
