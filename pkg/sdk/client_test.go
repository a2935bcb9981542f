package docquery

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/docquery/internal/query"
	mockapi "github.com/kailas-cloud/docquery/internal/transport/chi"
)

const testFixtures = `
relations:
  article:
    - {id: 1, name: gamma, rank: 3}
    - {id: 2, name: alpha, rank: 1}
    - {id: 3, name: beta, rank: 2}
`

// newMockAPI starts the fixture-backed API and counts the requests it serves.
func newMockAPI(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	fx, err := mockapi.ParseFixtures([]byte(testFixtures))
	require.NoError(t, err)

	router := mockapi.NewRouter(mockapi.NewServer(fx, nil), mockapi.RouterConfig{
		APIKeys: map[string]string{"pub": "priv"},
	})
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithBaseURI(srv.URL),
		WithCredentials("pub", "priv"),
	}, opts...)
	c, err := New(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func itemIDs(t *testing.T, items []Item) []int64 {
	t.Helper()
	out := make([]int64, 0, len(items))
	for _, it := range items {
		n, ok := it["id"].(json.Number)
		require.True(t, ok, "id should decode as json.Number, got %T", it["id"])
		id, err := n.Int64()
		require.NoError(t, err)
		out = append(out, id)
	}
	return out
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background())
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestNew_UnknownCacheDriver(t *testing.T) {
	_, err := createStore(context.Background(), &clientConfig{cacheDriver: "memcached"})
	require.Error(t, err)
}

func TestNew_CustomTransportNeedsNoCredentials(t *testing.T) {
	var got Request
	tr := transportFunc(func(_ context.Context, req Request) (*Result, error) {
		got = req
		return &Result{Data: []Item{{"id": json.Number("7")}}}, nil
	})

	c, err := New(context.Background(), WithTransport(tr))
	require.NoError(t, err)

	items, err := c.Query("entries", 10000).Where("name", OpEq, "x").Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, itemIDs(t, items))
	assert.Equal(t, []string{"entry"}, got.Relations)
	assert.Equal(t, 10000, got.RelationID)
	assert.Contains(t, got.Query, "directory_id:10000^0")
}

func TestClient_EndToEnd(t *testing.T) {
	srv, _ := newMockAPI(t)
	c := newTestClient(t, srv)
	ctx := context.Background()

	items, err := c.Query("article", 0).OrderBy("rank", DirDesc).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 2}, itemIDs(t, items))

	page, err := c.Query("article", 0).OrderBy("name", DirAsc).Paginate(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.LastPage)
	assert.True(t, page.HasMorePages())
	assert.Equal(t, []int64{2, 3}, itemIDs(t, page.Items))

	n, err := c.Query("article", 0).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	items, err = c.Query("article", 0).Where("id", OpEq, []any{1, 3}).Get(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3}, itemIDs(t, items))
}

func TestClient_Random(t *testing.T) {
	srv, _ := newMockAPI(t)
	c := newTestClient(t, srv)

	items, err := c.Query("article", 0).Random(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	ids := itemIDs(t, items)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestClient_Mapped(t *testing.T) {
	srv, _ := newMockAPI(t)
	c := newTestClient(t, srv)
	ctx := context.Background()

	type article struct{ Name string }
	byName := func(q *Query) *Mapped[article] {
		return Map(q, func(it Item) (article, bool) {
			name, ok := it["name"].(string)
			return article{Name: name}, ok
		})
	}

	got, err := byName(c.Query("article", 0).OrderBy("name", DirDefault)).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []article{{"alpha"}, {"beta"}, {"gamma"}}, got)

	_, err = byName(c.Query("article", 0).Where("id", OpEq, 99)).FirstOrFail(ctx)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClient_Errors(t *testing.T) {
	srv, _ := newMockAPI(t)
	ctx := context.Background()

	c := newTestClient(t, srv)
	_, err := c.Query("missing", 0).Get(ctx)
	require.ErrorIs(t, err, ErrIndexNotFound)

	bad, err := New(ctx, WithBaseURI(srv.URL), WithCredentials("pub", "wrong"))
	require.NoError(t, err)
	_, err = bad.Query("article", 0).Where("name", OpEq, "alpha").Get(ctx)
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, http.StatusUnauthorized, qe.StatusCode)
	assert.Equal(t, `name:"alpha"`, qe.Query)
}

func TestClient_BuildErrorSkipsTransport(t *testing.T) {
	srv, hits := newMockAPI(t)
	c := newTestClient(t, srv)

	_, err := c.Query("article", 0).Where("rank", Operator("~"), 1).Get(context.Background())
	var ioe *InvalidOperatorError
	require.ErrorAs(t, err, &ioe)
	assert.Equal(t, int64(0), hits.Load())
}

func TestClient_MemoryCache(t *testing.T) {
	srv, hits := newMockAPI(t)
	c := newTestClient(t, srv, WithMemoryCache(), WithCacheTTL(time.Minute))
	ctx := context.Background()

	for range 3 {
		items, err := c.Query("article", 0).CacheResultsWithKey("all-articles").Get(ctx)
		require.NoError(t, err)
		assert.Len(t, items, 3)
	}
	assert.Equal(t, int64(1), hits.Load())

	removed, err := c.FlushCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = c.Query("article", 0).CacheResultsWithKey("all-articles").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())

	require.NoError(t, c.ForgetCache(ctx, "all-articles"))
	require.NoError(t, c.Ping(ctx))
}

func TestClient_NoCacheHelpersAreNoops(t *testing.T) {
	c := &Client{}
	n, err := c.FlushCache(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, c.ForgetCache(context.Background(), "k"))
	require.NoError(t, c.Ping(context.Background()))
	c.Close()
}

func TestClient_Prometheus(t *testing.T) {
	srv, _ := newMockAPI(t)
	reg := prometheus.NewRegistry()
	c := newTestClient(t, srv, WithPrometheus(reg), WithMemoryCache())
	ctx := context.Background()

	for range 2 {
		_, err := c.Query("article", 0).CacheResultsWithKey("k").Get(ctx)
		require.NoError(t, err)
	}
	_, err := c.Query("missing", 0).Get(ctx)
	require.Error(t, err)

	ops := c.obs.metrics.operations
	assert.Equal(t, float64(1), testutil.ToFloat64(ops.WithLabelValues("search", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ops.WithLabelValues("search", "error")))

	cacheTotal := c.obs.metrics.cache
	assert.Equal(t, float64(1), testutil.ToFloat64(cacheTotal.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(cacheTotal.WithLabelValues("miss")))
}

func TestClient_AppendsAndClock(t *testing.T) {
	var got Request
	tr := transportFunc(func(_ context.Context, req Request) (*Result, error) {
		got = req
		return &Result{}, nil
	})
	instant := time.Date(2021, 9, 15, 0, 0, 0, 0, time.UTC)

	c, err := New(context.Background(),
		WithTransport(tr),
		WithClock(func() time.Time { return instant }),
		WithAppends(func(q *Query, scoped bool) {
			if !scoped {
				q.Where("locale", OpEq, "en")
			}
		}),
	)
	require.NoError(t, err)

	_, err = c.Query("article", 0).Get(context.Background())
	require.NoError(t, err)
	assert.Contains(t, got.Query, `locale:"en"`)
	assert.Contains(t, got.Query, `start:[* TO "2021-09-15 00:00:00"]`)
}

func TestMustQuery(t *testing.T) {
	q := query.New().Where("a", OpEq, 1)
	assert.Same(t, q, MustQuery(q))

	assert.Panics(t, func() {
		MustQuery(query.New().Where("a", Operator("~"), 1))
	})
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}
	hc := &http.Client{}
	logger := slog.Default()
	reg := prometheus.NewRegistry()

	for _, o := range []Option{
		WithCredentials("pub", "priv"),
		WithBaseURI("http://localhost:8089/"),
		WithHTTPClient(hc),
		WithTimeout(3 * time.Second),
		WithRateLimit(5, 2),
		WithRedisCache("localhost:6379", "secret"),
		WithCachePrefix("app:"),
		WithCacheTTL(time.Hour),
		WithLogger(logger),
		WithPrometheus(reg),
	} {
		o.apply(cfg)
	}

	assert.Equal(t, "pub", cfg.publicKey)
	assert.Equal(t, "priv", cfg.privateKey)
	assert.Equal(t, "http://localhost:8089/", cfg.baseURI)
	assert.Same(t, hc, cfg.httpClient)
	assert.Equal(t, 3*time.Second, cfg.timeout)
	assert.Equal(t, 5.0, cfg.rateLimit)
	assert.Equal(t, 2, cfg.burst)
	assert.Equal(t, "redis", cfg.cacheDriver)
	assert.Equal(t, []string{"localhost:6379"}, cfg.cacheAddrs)
	assert.Equal(t, "secret", cfg.cachePassword)
	assert.Equal(t, "app:", cfg.cachePrefix)
	assert.Equal(t, time.Hour, cfg.cacheTTL)
	assert.Same(t, logger, cfg.logger)
	assert.Equal(t, reg, cfg.metricsReg)

	WithMemoryCache().apply(cfg)
	assert.Equal(t, "memory", cfg.cacheDriver)
}

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
	assert.Nil(t, obs.cacheCounter())
}

func TestObserver_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newObserver(nil, reg)
	require.NoError(t, err)
	second, err := newObserver(slog.Default(), reg)
	require.NoError(t, err)

	assert.Same(t, first.metrics.operations, second.metrics.operations)

	second.observe("search", time.Now(), nil)
	second.observe("search", time.Now(), errors.New("fail"))

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "docquery_sdk_operations_total" {
			found = true
			assert.Len(t, f.GetMetric(), 2)
		}
	}
	assert.True(t, found, "docquery_sdk_operations_total not found")
}

func TestRegisterOrReuse_IncompatibleType(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "docquery", Subsystem: "sdk", Name: "operations_total", Help: "Total SDK operations by type and status.",
	})
	require.NoError(t, reg.Register(counter))

	_, err := newObserver(nil, reg)
	require.Error(t, err)
}

type transportFunc func(ctx context.Context, req Request) (*Result, error)

func (f transportFunc) Search(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}
