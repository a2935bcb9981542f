package query

// Operator is a predicate comparison operator.
type Operator string

// Supported predicate operators.
const (
	OpEq   Operator = "="
	OpNeq  Operator = "!="
	OpLt   Operator = "<"
	OpLte  Operator = "<="
	OpGt   Operator = ">"
	OpGte  Operator = ">="
	OpLike Operator = "like"
)

// Valid reports whether op is a supported operator.
func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpLike:
		return true
	}
	return false
}

// BoolOp joins terms inside a scope.
type BoolOp string

// Boolean join operators.
const (
	And BoolOp = "AND"
	Or  BoolOp = "OR"
)

// SortDirection is a sort order token understood by the search endpoint.
type SortDirection string

// Sort directions.
const (
	DirDefault SortDirection = "default"
	DirAsc     SortDirection = "asc"
	DirDesc    SortDirection = "desc"
)

// Valid reports whether d is a known direction.
func (d SortDirection) Valid() bool {
	switch d {
	case DirDefault, DirAsc, DirDesc:
		return true
	}
	return false
}

// Query size bounds.
const (
	MinQuerySize = 1
	MaxQuerySize = 10000
)

// DefaultPageSize is used by Paginate when no positive size is given.
const DefaultPageSize = 100

// DefaultChunkSize is used by chunked iteration when the model has no preference.
const DefaultChunkSize = 100

// EntryRelation is the document-style relation whose partition id is
// enforced as a filter on every top-level compile.
const EntryRelation = "entry"

// PartitionField is the field that holds an entry's partition id.
const PartitionField = "directory_id"

// Item is one raw record returned by the search endpoint.
type Item map[string]any

// Model describes the record type a builder queries.
type Model interface {
	Relation() string
	RelationID() int
}

// Chunker is implemented by models that prefer paginated iteration in All.
type Chunker interface {
	UsesChunking() bool
	PageSize() int
}

// Keyer is implemented by domain objects that stand for their key when used
// as a predicate value.
type Keyer interface {
	QueryKey() any
}
