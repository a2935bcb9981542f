package docquery

import (
	"iter"

	"github.com/kailas-cloud/docquery/internal/query"
)

// Builder types re-exported from the query compiler.
type (
	// Query is a fluent search query builder.
	Query         = query.Builder
	Item          = query.Item
	Result        = query.Result
	Request       = query.Request
	Operator      = query.Operator
	BoolOp        = query.BoolOp
	SortDirection = query.SortDirection
	ScopeFunc     = query.ScopeFunc
	AppendFunc    = query.AppendFunc
	Transport     = query.Transport
	ResultCache   = query.ResultCache

	// Model describes a record type by relation name and partition id.
	Model = query.Model
	// Chunker lets a Model request paginated iteration in All.
	Chunker = query.Chunker
	// Keyer lets a domain object stand for its key in predicates.
	Keyer = query.Keyer
)

// Page is one page of a paginated result.
type Page[T any] = query.Page[T]

// Mapper converts a raw record; ok=false drops it.
type Mapper[T any] = query.Mapper[T]

// Mapped is a query whose results are converted by a Mapper.
type Mapped[T any] = query.Mapped[T]

// Predicate operators.
const (
	OpEq   = query.OpEq
	OpNeq  = query.OpNeq
	OpLt   = query.OpLt
	OpLte  = query.OpLte
	OpGt   = query.OpGt
	OpGte  = query.OpGte
	OpLike = query.OpLike
)

// Scope join operators.
const (
	And = query.And
	Or  = query.Or
)

// Sort directions.
const (
	DirDefault = query.DirDefault
	DirAsc     = query.DirAsc
	DirDesc    = query.DirDesc
)

// Query size bounds.
const (
	MinQuerySize = query.MinQuerySize
	MaxQuerySize = query.MaxQuerySize
)

// Map wraps q so results come back as T.
func Map[T any](q *Query, fn Mapper[T]) *Mapped[T] {
	return query.Map(q, fn)
}

// Collect drains a lazy sequence such as Query.All or Query.Chunk.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	return query.Collect(seq)
}

// MustQuery panics if q recorded a build error. Intended for queries built
// from constants at init time.
func MustQuery(q *Query) *Query {
	if err := q.Err(); err != nil {
		panic("docquery: " + err.Error())
	}
	return q
}
