package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/db"
	"github.com/kailas-cloud/docquery/internal/db/memory"
	"github.com/kailas-cloud/docquery/internal/query"
)

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn  func(ctx context.Context, key string) ([]byte, error)
	setFn  func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	delFn  func(ctx context.Context, keys ...string) error
	scanFn func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func (m *mockKVStore) Del(ctx context.Context, keys ...string) error {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return nil
}

func (m *mockKVStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
}

func TestStore_RoundTrip(t *testing.T) {
	counter := newCounter()
	c := New(memory.NewStore(), Config{}, counter, zap.NewNop())
	ctx := context.Background()

	if _, ok := c.Load(ctx, "articles"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Store(ctx, "articles", &query.Result{
		Data:  []query.Item{{"id": json.Number("1"), "title": "Hello"}},
		Total: 1,
	})

	res, ok := c.Load(ctx, "articles")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(res.Data) != 1 || res.Total != 1 {
		t.Fatalf("result = %+v", res)
	}
	if id, ok := res.Data[0]["id"].(json.Number); !ok || id.String() != "1" {
		t.Errorf("id = %#v, want json.Number 1", res.Data[0]["id"])
	}

	if v := testutil.ToFloat64(counter.WithLabelValues("hit")); v != 1 {
		t.Errorf("hits = %f, want 1", v)
	}
	if v := testutil.ToFloat64(counter.WithLabelValues("miss")); v != 1 {
		t.Errorf("misses = %f, want 1", v)
	}
}

func TestStore_KeyPrefixAndTTL(t *testing.T) {
	var gotKey string
	var gotTTL time.Duration
	ms := &mockKVStore{setFn: func(_ context.Context, key string, _ []byte, ttl time.Duration) error {
		gotKey, gotTTL = key, ttl
		return nil
	}}
	c := New(ms, Config{KeyPrefix: "site:", TTL: time.Minute}, nil, nil)

	c.Store(context.Background(), "k", &query.Result{})
	if gotKey != "site:k" || gotTTL != time.Minute {
		t.Errorf("set(%q, %s), want site:k 1m", gotKey, gotTTL)
	}
}

func TestStore_FailuresAreMisses(t *testing.T) {
	tests := []struct {
		name  string
		getFn func(context.Context, string) ([]byte, error)
	}{
		{"store error", func(context.Context, string) ([]byte, error) {
			return nil, &db.Error{Op: db.OpGet, Err: context.DeadlineExceeded}
		}},
		{"corrupt payload", func(context.Context, string) ([]byte, error) {
			return []byte("not json"), nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := newCounter()
			c := New(&mockKVStore{getFn: tt.getFn}, Config{}, counter, zap.NewNop())
			if _, ok := c.Load(context.Background(), "k"); ok {
				t.Fatal("expected miss")
			}
			if v := testutil.ToFloat64(counter.WithLabelValues("miss")); v != 1 {
				t.Errorf("misses = %f, want 1", v)
			}
		})
	}
}

func TestStore_SetErrorIsSwallowed(t *testing.T) {
	called := false
	ms := &mockKVStore{setFn: func(context.Context, string, []byte, time.Duration) error {
		called = true
		return errors.New("read-only replica")
	}}
	New(ms, Config{}, nil, zap.NewNop()).Store(context.Background(), "k", &query.Result{})
	if !called {
		t.Fatal("expected SET to be called")
	}
}

func TestStore_ForgetAndFlush(t *testing.T) {
	kv := memory.NewStore()
	c := New(kv, Config{}, nil, nil)
	ctx := context.Background()

	for _, k := range []string{"articles", "articles#10:1", "articles#10:2", "pages"} {
		c.Store(ctx, k, &query.Result{})
	}

	if err := c.Forget(ctx, "articles"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, k := range []string{"articles", "articles#10:1", "articles#10:2"} {
		if _, ok := c.Load(ctx, k); ok {
			t.Errorf("%s still cached", k)
		}
	}
	if _, ok := c.Load(ctx, "pages"); !ok {
		t.Error("unrelated key was dropped")
	}

	n, err := c.Flush(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("flushed %d keys, want 1", n)
	}
}

func TestStore_WithBuilder(t *testing.T) {
	calls := 0
	tr := transportFunc(func(context.Context, query.Request) (*query.Result, error) {
		calls++
		return &query.Result{Data: []query.Item{{"id": json.Number("7")}}}, nil
	})
	c := New(memory.NewStore(), Config{}, nil, nil)

	for range 3 {
		b := query.New(query.WithTransport(tr), query.WithCache(c), query.WithoutPublishingStatus()).
			Relation("entry", 10000).
			CacheResultsWithKey("entries-10000")
		items, err := b.Get(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("items = %d", len(items))
		}
	}
	if calls != 1 {
		t.Errorf("transport calls = %d, want 1", calls)
	}
}

type transportFunc func(context.Context, query.Request) (*query.Result, error)

func (f transportFunc) Search(ctx context.Context, req query.Request) (*query.Result, error) {
	return f(ctx, req)
}
