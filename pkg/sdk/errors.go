package docquery

import (
	"github.com/kailas-cloud/docquery/internal/query"
	"github.com/kailas-cloud/docquery/internal/transport/api"
)

// Sentinel errors re-exported from the query compiler.
// Use errors.Is() to check.
var (
	ErrInvalidOperator         = query.ErrInvalidOperator
	ErrInvalidValue            = query.ErrInvalidValue
	ErrInvalidArrayValue       = query.ErrInvalidArrayValue
	ErrInvalidSortingDirection = query.ErrInvalidSortingDirection
	ErrNoSortableField         = query.ErrNoSortableField
	ErrInvalidAssignment       = query.ErrInvalidAssignment
	ErrIndexNotFound           = query.ErrIndexNotFound
	ErrQuery                   = query.ErrQuery
	ErrNotFound                = query.ErrNotFound
	ErrNoTransport             = query.ErrNoTransport
	ErrMissingCredentials      = api.ErrMissingCredentials
)

// Typed errors. Use errors.As() to inspect their fields.
type (
	InvalidOperatorError         = query.InvalidOperatorError
	InvalidValueError            = query.InvalidValueError
	InvalidArrayValueError       = query.InvalidArrayValueError
	InvalidSortingDirectionError = query.InvalidSortingDirectionError
	NoSortableFieldError         = query.NoSortableFieldError
	InvalidAssignmentError       = query.InvalidAssignmentError
	IndexNotFoundError           = query.IndexNotFoundError
	QueryError                   = query.QueryError
	NotFoundError                = query.NotFoundError
	StatusError                  = query.StatusError
)
