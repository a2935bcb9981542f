package query

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors. Every typed error below unwraps to one of them, so both
// errors.Is and errors.As work on values returned by the builder.
var (
	// ErrInvalidOperator signals an operator outside the supported set.
	ErrInvalidOperator = errors.New("invalid operator")
	// ErrInvalidValue signals a predicate value of an unsupported type.
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidArrayValue signals an empty array predicate value.
	ErrInvalidArrayValue = errors.New("invalid array value")
	// ErrInvalidSortingDirection signals an unknown sort direction.
	ErrInvalidSortingDirection = errors.New("invalid sorting direction")
	// ErrNoSortableField signals a sort direction without a sort field.
	ErrNoSortableField = errors.New("no sortable field to order by")
	// ErrInvalidAssignment signals a chained OR/AND call without a left-hand side.
	ErrInvalidAssignment = errors.New("invalid assignment")
	// ErrIndexNotFound signals that the backend has no index for the relation.
	ErrIndexNotFound = errors.New("index not found")
	// ErrQuery signals that the backend rejected the query.
	ErrQuery = errors.New("query failed")
	// ErrNotFound signals that a query expected to match had no results.
	ErrNotFound = errors.New("not found")
	// ErrNoTransport signals a terminal operation on a builder without a transport.
	ErrNoTransport = errors.New("query: no transport configured")
)

// InvalidOperatorError carries the rejected operator.
type InvalidOperatorError struct {
	Operator Operator
}

func (e *InvalidOperatorError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidOperator.Error(), string(e.Operator))
}

func (e *InvalidOperatorError) Unwrap() error { return ErrInvalidOperator }

// InvalidValueError carries the rejected value.
type InvalidValueError struct {
	Value any
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%s: unsupported type %T", ErrInvalidValue.Error(), e.Value)
}

func (e *InvalidValueError) Unwrap() error { return ErrInvalidValue }

// InvalidArrayValueError is returned for an empty array value.
type InvalidArrayValueError struct {
	Field string
}

func (e *InvalidArrayValueError) Error() string {
	return fmt.Sprintf("%s: empty array for field %q", ErrInvalidArrayValue.Error(), e.Field)
}

func (e *InvalidArrayValueError) Unwrap() error { return ErrInvalidArrayValue }

// InvalidSortingDirectionError carries the rejected direction.
type InvalidSortingDirectionError struct {
	Direction SortDirection
}

func (e *InvalidSortingDirectionError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidSortingDirection.Error(), string(e.Direction))
}

func (e *InvalidSortingDirectionError) Unwrap() error { return ErrInvalidSortingDirection }

// NoSortableFieldError is returned by OrderDirection before any OrderBy.
type NoSortableFieldError struct{}

func (e *NoSortableFieldError) Error() string { return ErrNoSortableField.Error() }

func (e *NoSortableFieldError) Unwrap() error { return ErrNoSortableField }

// InvalidAssignmentError names the chaining call that had no prior predicate.
type InvalidAssignmentError struct {
	Method string
}

func (e *InvalidAssignmentError) Error() string {
	return fmt.Sprintf("%s: %s requires a preceding predicate", ErrInvalidAssignment.Error(), e.Method)
}

func (e *InvalidAssignmentError) Unwrap() error { return ErrInvalidAssignment }

// IndexNotFoundError carries the relation+partition identifier that was queried.
type IndexNotFoundError struct {
	Index string
}

func (e *IndexNotFoundError) Error() string {
	if e.Index == "" {
		return ErrIndexNotFound.Error()
	}
	return fmt.Sprintf("%s: %s", ErrIndexNotFound.Error(), e.Index)
}

func (e *IndexNotFoundError) Unwrap() error { return ErrIndexNotFound }

// QueryError carries the compiled query and the backend's raw error payload.
type QueryError struct {
	Query      string
	StatusCode int
	Payload    json.RawMessage
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("%s with status %d: %s", ErrQuery.Error(), e.StatusCode, e.Query)
	if len(e.Payload) > 0 {
		msg += ": " + string(e.Payload)
	}
	return msg
}

func (e *QueryError) Unwrap() error { return ErrQuery }

// NotFoundError carries the originating model name, if known.
type NotFoundError struct {
	Model string
}

func (e *NotFoundError) Error() string {
	if e.Model == "" {
		return ErrNotFound.Error()
	}
	return fmt.Sprintf("%s: no %s matched the query", ErrNotFound.Error(), e.Model)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StatusError is returned by transports for unsuccessful HTTP responses.
// The builder rewraps it into IndexNotFoundError or QueryError.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}
