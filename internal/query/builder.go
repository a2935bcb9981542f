package query

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"time"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"
)

// ScopeFunc populates a nested builder.
type ScopeFunc func(q *Builder)

// AppendFunc is a deferred mutator run once at the start of the next compile.
type AppendFunc func(q *Builder, scoped bool)

// Builder accumulates predicates, sort orders, pagination and publication
// constraints and compiles them into a search request.
//
// A Builder is not safe for concurrent use. Fluent calls never return errors;
// the first construction error is recorded and returned by Err and by every
// compile or terminal operation.
type Builder struct {
	conn   Transport
	cache  ResultCache
	logger *zap.Logger
	now    func() time.Time
	rand   *rand.Rand
	model  Model

	terms      []Node
	fields     []string
	relations  []string
	relationID int
	size       int
	orderBy    []string
	sortDir    []SortDirection

	respectPublishingStatus bool
	appends                 []AppendFunc
	useScores               bool
	cacheKey                string
	shouldCache             bool
	debug                   bool

	err error
}

// Option configures a Builder.
type Option func(*Builder)

// WithTransport sets the collaborator used by terminal operations.
func WithTransport(t Transport) Option {
	return func(b *Builder) { b.conn = t }
}

// WithCache sets the store used by CacheResultsWithKey.
func WithCache(c ResultCache) Option {
	return func(b *Builder) { b.cache = c }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock overrides the instant used for the publication predicate.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithRand sets the random source used by Random.
func WithRand(r *rand.Rand) Option {
	return func(b *Builder) {
		if r != nil {
			b.rand = r
		}
	}
}

// WithoutPublishingStatus disables the automatic publication predicate.
func WithoutPublishingStatus() Option {
	return func(b *Builder) { b.respectPublishingStatus = false }
}

// WithAppends queues deferred mutators.
func WithAppends(fns ...AppendFunc) Option {
	return func(b *Builder) { b.appends = append(b.appends, fns...) }
}

// New creates a builder that respects publishing status by default.
func New(opts ...Option) *Builder {
	b := &Builder{
		logger:                  zap.NewNop(),
		now:                     time.Now,
		size:                    MaxQuerySize,
		respectPublishingStatus: true,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// fork returns an isolated child builder for scope compilation: empty terms,
// publication predicate disabled.
func (b *Builder) fork() *Builder {
	return &Builder{
		logger: b.logger,
		now:    b.now,
		size:   MaxQuerySize,
	}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *Builder) push(n Node) *Builder {
	if n != nil {
		b.terms = append(b.terms, n)
	}
	return b
}

// Err returns the first error recorded while building the query.
func (b *Builder) Err() error { return b.err }

// Size returns the current result size limit.
func (b *Builder) Size() int { return b.size }

// Model returns the model set via SetModel or RelationFor.
func (b *Builder) Model() Model { return b.model }

// SetModel sets the record type used for chunking and error reporting.
func (b *Builder) SetModel(m Model) *Builder {
	b.model = m
	return b
}

// Append queues a deferred mutator that runs once at the next compile.
func (b *Builder) Append(fn AppendFunc) *Builder {
	b.appends = append(b.appends, fn)
	return b
}

// CacheResultsWithKey memoizes fetched results under key.
func (b *Builder) CacheResultsWithKey(key string) *Builder {
	b.shouldCache = true
	b.cacheKey = key
	return b
}

// Debug asks the backend to reflect the compiled query in its response.
func (b *Builder) Debug() *Builder {
	b.debug = true
	return b
}

// Where adds a predicate. Array values expand to an OR group over the elements.
func (b *Builder) Where(field string, op Operator, value any) *Builder {
	n, err := compileWhere(field, op, value)
	if err != nil {
		return b.fail(err)
	}
	return b.push(n)
}

// WhereEquals is shorthand for Where(field, OpEq, value).
func (b *Builder) WhereEquals(field string, value any) *Builder {
	return b.Where(field, OpEq, value)
}

// WhereIn matches any of values.
func (b *Builder) WhereIn(field string, values any) *Builder {
	return b.Where(field, OpEq, values)
}

// WhereBetween adds an inclusive range. A nil bound is open.
func (b *Builder) WhereBetween(field string, from, to any) *Builder {
	n, err := compileBetween(field, from, to)
	if err != nil {
		return b.fail(err)
	}
	return b.push(n)
}

// WhereNotBetween excludes an inclusive range.
//
// Deprecated: use WhereBetween inside Not.
func (b *Builder) WhereNotBetween(field string, from, to any) *Builder {
	n, err := compileBetween(field, from, to)
	if err != nil {
		return b.fail(err)
	}
	return b.push(&negation{inner: n})
}

// WhereNot adds a negated predicate. "!=" with a value and "=" with null are
// inverted instead of prefixed.
//
// Deprecated: use Where with OpNeq, or Where inside Not.
func (b *Builder) WhereNot(field string, op Operator, value any) *Builder {
	prefixed := true
	if op == OpNeq && value != nil {
		prefixed, op = false, OpEq
	} else if op == OpEq && value == nil {
		prefixed, op = false, OpNeq
	}
	n, err := compileWhere(field, op, value)
	if err != nil {
		return b.fail(err)
	}
	if prefixed && n != nil {
		n = &negation{inner: n}
	}
	return b.push(n)
}

// OrWhere joins a predicate to the previous term with OR.
//
// Deprecated: use Where inside Or.
func (b *Builder) OrWhere(field string, op Operator, value any) *Builder {
	return b.legacyWhere("OrWhere", Or, func(q *Builder) { q.Where(field, op, value) })
}

// OrWhereGroup joins a nested scope to the previous term with OR.
//
// Deprecated: use Or.
func (b *Builder) OrWhereGroup(fn ScopeFunc) *Builder {
	return b.legacyWhere("OrWhereGroup", Or, fn)
}

// AndWhere joins a predicate to the previous term with AND.
//
// Deprecated: use Where inside And.
func (b *Builder) AndWhere(field string, op Operator, value any) *Builder {
	return b.legacyWhere("AndWhere", And, func(q *Builder) { q.Where(field, op, value) })
}

// AndWhereGroup joins a nested scope to the previous term with AND.
//
// Deprecated: use And.
func (b *Builder) AndWhereGroup(fn ScopeFunc) *Builder {
	return b.legacyWhere("AndWhereGroup", And, fn)
}

func (b *Builder) legacyWhere(method string, prefix BoolOp, fn ScopeFunc) *Builder {
	if len(b.terms) == 0 {
		return b.fail(&InvalidAssignmentError{Method: method})
	}
	return b.scoped(fn, And, func(n Node) Node { return &legacy{prefix: prefix, inner: n} })
}

// Group adds a nested AND scope.
func (b *Builder) Group(fn ScopeFunc) *Builder {
	return b.GroupWith(And, fn)
}

// GroupWith adds a nested scope whose terms are joined by op.
func (b *Builder) GroupWith(op BoolOp, fn ScopeFunc) *Builder {
	return b.scoped(fn, op, nil)
}

// Or adds a nested scope whose terms are joined by OR.
func (b *Builder) Or(fn ScopeFunc) *Builder {
	return b.GroupWith(Or, fn)
}

// And adds a nested scope whose terms are joined by AND.
func (b *Builder) And(fn ScopeFunc) *Builder {
	return b.GroupWith(And, fn)
}

// Not adds a negated nested AND scope, always parenthesized.
func (b *Builder) Not(fn ScopeFunc) *Builder {
	return b.NotWith(And, fn)
}

// NotWith adds a negated nested scope whose terms are joined by op.
func (b *Builder) NotWith(op BoolOp, fn ScopeFunc) *Builder {
	return b.scoped(fn, op, func(n Node) Node { return &negation{inner: n, paren: true} })
}

// If runs then when cond holds, otherwise (if non-nil) otherwise.
func (b *Builder) If(cond bool, then, otherwise ScopeFunc) *Builder {
	switch {
	case cond && then != nil:
		then(b)
	case !cond && otherwise != nil:
		otherwise(b)
	}
	return b
}

// Raw appends a query-string fragment verbatim.
func (b *Builder) Raw(q string) *Builder {
	return b.push(&term{text: q})
}

// Score applies weight to the previous term and requests relevance scores.
func (b *Builder) Score(weight float64) *Builder {
	if last := len(b.terms) - 1; last >= 0 {
		b.terms[last] = &boost{inner: b.terms[last], weight: weight}
		b.useScores = true
	}
	return b
}

// Fuzzy marks the previous term as fuzzy. A distance of 0 leaves it to the backend.
func (b *Builder) Fuzzy(distance int) *Builder {
	if last := len(b.terms) - 1; last >= 0 {
		b.terms[last] = &fuzzy{inner: b.terms[last], distance: distance}
	}
	return b
}

// OrderBy adds a sort field. An empty direction means DirDefault.
func (b *Builder) OrderBy(field string, dir SortDirection) *Builder {
	if dir == "" {
		dir = DirDefault
	}
	if !dir.Valid() {
		return b.fail(&InvalidSortingDirectionError{Direction: dir})
	}
	b.orderBy = append(b.orderBy, CompileField(field))
	b.sortDir = append(b.sortDir, dir)
	if field == "_score" {
		b.useScores = true
	}
	return b
}

// OrderDirection sets the direction of the most recent sort field.
//
// Deprecated: pass the direction to OrderBy.
func (b *Builder) OrderDirection(dir SortDirection) *Builder {
	if !dir.Valid() {
		return b.fail(&InvalidSortingDirectionError{Direction: dir})
	}
	if len(b.orderBy) == 0 {
		return b.fail(&NoSortableFieldError{})
	}
	b.sortDir[len(b.sortDir)-1] = dir
	return b
}

// Relation adds a relation (singularized) and, when non-zero, sets the partition id.
func (b *Builder) Relation(relation string, relationID int) *Builder {
	if relation != "" {
		name := inflection.Singular(relation)
		if !slices.Contains(b.relations, name) {
			b.relations = append(b.relations, name)
		}
	}
	if relationID != 0 {
		b.relationID = relationID
	}
	return b
}

// Relations adds several relations.
func (b *Builder) Relations(relations ...string) *Builder {
	for _, r := range relations {
		b.Relation(r, 0)
	}
	return b
}

// RelationFor scopes the query to m's relation and partition and records m
// as the builder's model.
func (b *Builder) RelationFor(m Model) *Builder {
	b.model = m
	return b.Relation(m.Relation(), m.RelationID())
}

func (b *Builder) hasRelation(relation string) bool {
	return slices.Contains(b.relations, inflection.Singular(relation))
}

// Limit bounds the number of results to [MinQuerySize, MaxQuerySize].
func (b *Builder) Limit(n int) *Builder {
	b.size = max(min(n, MaxQuerySize), MinQuerySize)
	return b
}

// Field adds a projection field.
func (b *Builder) Field(field string) *Builder {
	if field == "" {
		return b
	}
	compiled := CompileField(field)
	if !slices.Contains(b.fields, compiled) {
		b.fields = append(b.fields, compiled)
	}
	if field == "_score" {
		b.useScores = true
	}
	return b
}

// Fields adds projection fields. No fields means all fields.
func (b *Builder) Fields(fields ...string) *Builder {
	for _, f := range fields {
		b.Field(f)
	}
	return b
}

// IncludeScores toggles relevance scores in the response.
func (b *Builder) IncludeScores(include bool) *Builder {
	b.useScores = include
	return b
}

// RespectPublishingStatus toggles the automatic publication predicate.
func (b *Builder) RespectPublishingStatus(respect bool) *Builder {
	b.respectPublishingStatus = respect
	return b
}

// IgnorePublishingStatus includes unpublished records.
//
// Deprecated: use RespectPublishingStatus(false).
func (b *Builder) IgnorePublishingStatus() *Builder {
	return b.RespectPublishingStatus(false)
}

// PublishedAt restricts results to records publishable at t and disables
// the automatic predicate for "now".
func (b *Builder) PublishedAt(t time.Time) *Builder {
	b.respectPublishingStatus = false
	n, err := b.publishedAt(t)
	if err != nil {
		return b.fail(err)
	}
	return b.push(n)
}

func compileBetween(field string, from, to any) (Node, error) {
	lo, err := boundToken(from)
	if err != nil {
		return nil, err
	}
	hi, err := boundToken(to)
	if err != nil {
		return nil, err
	}
	return &term{text: CompileField(field) + ":[" + lo + " TO " + hi + "]"}, nil
}

func boundToken(v any) (string, error) {
	n, err := normalizeValue(v)
	if err != nil {
		return "", err
	}
	if _, ok := n.([]any); ok {
		return "", &InvalidValueError{Value: v}
	}
	tok := escape(n, OpEq)
	if tok.null {
		return "*", nil
	}
	return tok.text, nil
}

func (b *Builder) indexName() string {
	name := ""
	for i, r := range b.relations {
		if i > 0 {
			name += ","
		}
		name += r
	}
	if b.relationID != 0 {
		name += "_" + strconv.Itoa(b.relationID)
	}
	return name
}
