package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	logpkg "github.com/kailas-cloud/docquery/internal/logger"
	"github.com/kailas-cloud/docquery/internal/metrics"
	"github.com/kailas-cloud/docquery/internal/query"
	"github.com/kailas-cloud/docquery/internal/version"
)

func TestMain(m *testing.M) {
	metrics.RegisterSearchMetrics()
	os.Exit(m.Run())
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURI: url, PublicKey: "pub", PrivateKey: "priv"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{PublicKey: "pub"})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("err = %v, want ErrMissingCredentials", err)
	}
}

func TestNewClient_BaseURI(t *testing.T) {
	c, err := NewClient(Config{PublicKey: "a", PrivateKey: "b"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.BaseURI() != DefaultBaseURI {
		t.Errorf("BaseURI = %q", c.BaseURI())
	}

	c, err = NewClient(Config{BaseURI: "http://localhost:8080/v1", PublicKey: "a", PrivateKey: "b"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.BaseURI() != "http://localhost:8080/v1/" {
		t.Errorf("BaseURI = %q, want trailing slash", c.BaseURI())
	}
}

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "pub" || pass != "priv" {
			t.Errorf("unexpected basic auth: %q %q %v", user, pass, ok)
		}
		if got := r.Header.Get("User-Agent"); got != version.UserAgent() {
			t.Errorf("User-Agent = %q", got)
		}
		if r.Header.Get(RequestIDHeader) == "" {
			t.Error("missing request id header")
		}
		q := r.URL.Query()
		if q.Get("relation") != "article" || q.Get("q") != `name:"john"` || q.Get("size") != "10" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":         []map[string]any{{"id": 1, "name": "john"}},
			"current_page": 1,
			"per_page":     10,
			"total":        1,
			"last_page":    1,
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL+"/v1")
	before := testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues("article", "200"))

	res, err := c.Search(context.Background(), query.Request{
		Relations: []string{"article"},
		Query:     `name:"john"`,
		Size:      10,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Data) != 1 || res.Total != 1 || res.PerPage != 10 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if id, ok := res.Data[0]["id"].(json.Number); !ok || id.String() != "1" {
		t.Errorf("id = %#v, want json.Number 1", res.Data[0]["id"])
	}

	after := testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues("article", "200"))
	if after-before != 1 {
		t.Errorf("requests_total delta = %v, want 1", after-before)
	}
}

func TestClient_Search_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"parse failure"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Search(context.Background(), query.Request{Relations: []string{"article"}})

	var se *query.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *query.StatusError", err)
	}
	if se.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", se.StatusCode)
	}
	if string(se.Body) != `{"error":"parse failure"}` {
		t.Errorf("body = %q", se.Body)
	}
}

func TestClient_Search_ContextLogger(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	core, logs := observer.New(zap.WarnLevel)
	ctx := logpkg.With(logpkg.ContextWithLogger(context.Background(), zap.New(core)), zap.String("command", "search"))

	c := newTestClient(t, server.URL)
	if _, err := c.Search(ctx, query.Request{Relations: []string{"article"}}); err == nil {
		t.Fatal("expected error")
	}

	entries := logs.FilterMessage("Search request rejected").All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if id, _ := fields["request_id"].(string); fields["command"] != "search" || id == "" {
		t.Errorf("fields = %v", fields)
	}
}

func TestClient_Search_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Search(context.Background(), query.Request{Relations: []string{"article"}})
	if err == nil {
		t.Fatal("expected decode error")
	}
	var se *query.StatusError
	if errors.As(err, &se) {
		t.Error("decode failure must not be a status error")
	}
}

func TestClient_Search_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Search(ctx, query.Request{Relations: []string{"article"}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestClient_Search_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	c, err := NewClient(Config{
		BaseURI:    server.URL,
		PublicKey:  "pub",
		PrivateKey: "priv",
		RateLimit:  0.001,
		Burst:      1,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := c.Search(context.Background(), query.Request{}); err != nil {
		t.Fatalf("first search: %v", err)
	}

	// The burst is spent; the next token is far beyond the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Search(ctx, query.Request{}); err == nil {
		t.Fatal("expected rate limit error")
	}
}
