package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Transport executes compiled search requests.
type Transport interface {
	Search(ctx context.Context, req Request) (*Result, error)
}

// ResultCache memoizes fetched results under caller-supplied keys.
// Invalidation is the cache owner's responsibility.
type ResultCache interface {
	Load(ctx context.Context, key string) (*Result, bool)
	Store(ctx context.Context, key string, res *Result)
}

// Result is the raw search response.
type Result struct {
	Data        []Item `json:"data"`
	CurrentPage int    `json:"current_page,omitempty"`
	PerPage     int    `json:"per_page,omitempty"`
	Total       int    `json:"total,omitempty"`
	LastPage    int    `json:"last_page,omitempty"`
}

// Page is one page of a paginated result.
type Page[T any] struct {
	Items       []T
	Total       int
	CurrentPage int
	PerPage     int
	LastPage    int
}

// HasMorePages reports whether pages follow this one.
func (p *Page[T]) HasMorePages() bool {
	return p.CurrentPage < p.LastPage
}

func newPage(res *Result, size, page int) *Page[Item] {
	p := &Page[Item]{
		Items:       res.Data,
		Total:       res.Total,
		CurrentPage: res.CurrentPage,
		PerPage:     res.PerPage,
		LastPage:    res.LastPage,
	}
	if p.CurrentPage == 0 {
		p.CurrentPage = page
	}
	if p.PerPage == 0 {
		p.PerPage = size
	}
	if p.LastPage == 0 {
		p.LastPage = max((p.Total+p.PerPage-1)/p.PerPage, 1)
	}
	return p
}

// fetch compiles and executes one request. Backend failures are rewrapped
// into IndexNotFoundError or QueryError.
func (b *Builder) fetch(ctx context.Context, size, page int) (*Result, error) {
	if b.conn == nil {
		return nil, ErrNoTransport
	}
	req, err := b.request(size, page)
	if err != nil {
		return nil, err
	}

	key := ""
	if b.shouldCache && b.cache != nil {
		key = resultKey(b.cacheKey, req, page)
		if res, ok := b.cache.Load(ctx, key); ok {
			return res, nil
		}
	}

	res, err := b.conn.Search(ctx, req)
	if err != nil {
		return nil, b.wrapFetchError(err)
	}
	if res == nil {
		res = &Result{}
	}
	if key != "" {
		b.cache.Store(ctx, key, res)
	}
	return res, nil
}

// resultKey derives the cache entry for one request shape under the caller's
// key: "key#size", "key#size:page", with "|f1,f2" appended for projections.
func resultKey(key string, req Request, page int) string {
	key = fmt.Sprintf("%s#%d", key, req.Size)
	if page > 0 {
		key = fmt.Sprintf("%s:%d", key, page)
	}
	if len(req.Fields) > 0 {
		key += "|" + strings.Join(req.Fields, ",")
	}
	return key
}

func (b *Builder) wrapFetchError(err error) error {
	var se *StatusError
	if !errors.As(err, &se) {
		return fmt.Errorf("search %s: %w", b.indexName(), err)
	}
	if se.StatusCode == http.StatusInternalServerError {
		return &IndexNotFoundError{Index: b.indexName()}
	}
	q, _ := b.GetQuery(true)
	qe := &QueryError{Query: q, StatusCode: se.StatusCode}
	if len(se.Body) > 0 && json.Valid(se.Body) {
		qe.Payload = json.RawMessage(se.Body)
	}
	b.logger.Warn("search query rejected",
		zap.Int("status", se.StatusCode),
		zap.String("query", q),
	)
	return qe
}

// Get executes the query and returns the raw records.
func (b *Builder) Get(ctx context.Context) ([]Item, error) {
	res, err := b.fetch(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// First returns the first record, or nil if nothing matched.
func (b *Builder) First(ctx context.Context) (Item, error) {
	size := b.size
	b.size = MinQuerySize
	defer func() { b.size = size }()

	items, err := b.Get(ctx)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return items[0], nil
}

// FirstOrFail is First, failing with NotFoundError when nothing matched.
func (b *Builder) FirstOrFail(ctx context.Context) (Item, error) {
	item, err := b.First(ctx)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, &NotFoundError{Model: b.modelName()}
	}
	return item, nil
}

func (b *Builder) modelName() string {
	if b.model == nil {
		return ""
	}
	return strings.TrimLeft(fmt.Sprintf("%T", b.model), "*")
}

// Paginate fetches one page. Non-positive size and page default to
// DefaultPageSize and 1.
func (b *Builder) Paginate(ctx context.Context, size, page int) (*Page[Item], error) {
	if size <= 0 {
		size = DefaultPageSize
	}
	size = max(min(size, MaxQuerySize), MinQuerySize)
	if page <= 0 {
		page = 1
	}
	res, err := b.fetch(ctx, size, page)
	if err != nil {
		return nil, err
	}
	return newPage(res, size, page), nil
}

// Count returns the number of matching records reported by the backend.
func (b *Builder) Count(ctx context.Context) (int, error) {
	fields := b.fields
	b.fields = []string{"id"}
	defer func() { b.fields = fields }()

	p, err := b.Paginate(ctx, 1, 1)
	if err != nil {
		return 0, err
	}
	return p.Total, nil
}

// All iterates every matching record. Models that use chunking are read
// page by page on demand; otherwise a single fetch at MaxQuerySize is made.
func (b *Builder) All(ctx context.Context) iter.Seq2[Item, error] {
	if c, ok := b.model.(Chunker); ok && c.UsesChunking() {
		size := c.PageSize()
		if size <= 0 {
			size = DefaultChunkSize
		}
		return b.Chunk(ctx, size)
	}
	return func(yield func(Item, error) bool) {
		res, err := b.fetch(ctx, MaxQuerySize, 0)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, item := range res.Data {
			if !yield(item, nil) {
				return
			}
		}
	}
}

// Chunk lazily iterates pages of size records. The next page is fetched only
// after every record of the current one has been consumed.
func (b *Builder) Chunk(ctx context.Context, size int) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		for page := 1; ; page++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			p, err := b.Paginate(ctx, size, page)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, item := range p.Items {
				if !yield(item, nil) {
					return
				}
			}
			if !p.HasMorePages() || len(p.Items) == 0 {
				return
			}
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Random returns up to n matching records sampled without replacement, in
// random order. n <= 0 returns every match. The builder's terms, size,
// fields and sort order are restored afterwards.
func (b *Builder) Random(ctx context.Context, n int) ([]Item, error) {
	if err := b.runAppends(false); err != nil {
		return nil, err
	}

	terms, fields, orderBy, sortDir := b.terms, b.fields, b.orderBy, b.sortDir
	shouldCache := b.shouldCache
	defer func() {
		b.terms, b.fields, b.orderBy, b.sortDir = terms, fields, orderBy, sortDir
		b.shouldCache = shouldCache
	}()
	b.shouldCache = false

	b.fields = []string{"id"}
	res, err := b.fetch(ctx, MaxQuerySize, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]any, 0, len(res.Data))
	for _, item := range res.Data {
		if id, ok := normalizeID(item["id"]); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []Item{}, nil
	}

	if n <= 0 || n > len(ids) {
		n = len(ids)
	}
	picked := make([]any, n)
	for i, j := range b.random().Perm(len(ids))[:n] {
		picked[i] = ids[j]
	}

	b.fields = fields
	b.terms = nil
	b.orderBy, b.sortDir = nil, nil
	b.Where("id", OpEq, picked)
	res, err = b.fetch(ctx, len(picked), 0)
	if err != nil {
		return nil, err
	}
	items := res.Data
	b.random().Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	return items, nil
}

func (b *Builder) random() *rand.Rand {
	if b.rand == nil {
		b.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return b.rand
}

// normalizeID converts a decoded record id to a predicate value.
func normalizeID(v any) (any, bool) {
	switch id := v.(type) {
	case nil:
		return nil, false
	case json.Number:
		if n, err := id.Int64(); err == nil {
			return n, true
		}
		return id.String(), true
	case float64:
		if id == float64(int64(id)) {
			return int64(id), true
		}
		return nil, false
	case string, int, int64:
		return id, true
	default:
		return nil, false
	}
}
