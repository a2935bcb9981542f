package query

import (
	"context"
	"iter"
)

// Mapper converts a raw record. Records for which ok is false are dropped.
type Mapper[T any] func(item Item) (v T, ok bool)

// Mapped runs a builder's terminal operations through a Mapper.
type Mapped[T any] struct {
	b  *Builder
	fn Mapper[T]
}

// Map wraps b so that results are converted by fn.
func Map[T any](b *Builder, fn Mapper[T]) *Mapped[T] {
	return &Mapped[T]{b: b, fn: fn}
}

// Builder returns the underlying builder.
func (m *Mapped[T]) Builder() *Builder { return m.b }

func (m *Mapped[T]) mapAll(items []Item) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if v, ok := m.fn(item); ok {
			out = append(out, v)
		}
	}
	return out
}

// Get executes the query and maps every record.
func (m *Mapped[T]) Get(ctx context.Context) ([]T, error) {
	items, err := m.b.Get(ctx)
	if err != nil {
		return nil, err
	}
	return m.mapAll(items), nil
}

// First returns the first mapped record. found is false when nothing matched
// or the record was dropped by the mapper.
func (m *Mapped[T]) First(ctx context.Context) (v T, found bool, err error) {
	item, err := m.b.First(ctx)
	if err != nil || item == nil {
		return v, false, err
	}
	v, found = m.fn(item)
	return v, found, nil
}

// FirstOrFail is First, failing with NotFoundError when no record is found.
func (m *Mapped[T]) FirstOrFail(ctx context.Context) (T, error) {
	v, found, err := m.First(ctx)
	if err != nil {
		return v, err
	}
	if !found {
		return v, &NotFoundError{Model: m.b.modelName()}
	}
	return v, nil
}

// Paginate fetches one page of mapped records.
func (m *Mapped[T]) Paginate(ctx context.Context, size, page int) (*Page[T], error) {
	p, err := m.b.Paginate(ctx, size, page)
	if err != nil {
		return nil, err
	}
	return &Page[T]{
		Items:       m.mapAll(p.Items),
		Total:       p.Total,
		CurrentPage: p.CurrentPage,
		PerPage:     p.PerPage,
		LastPage:    p.LastPage,
	}, nil
}

// All iterates every mapped record.
func (m *Mapped[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for item, err := range m.b.All(ctx) {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			v, ok := m.fn(item)
			if !ok {
				continue
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Random returns up to n randomly sampled mapped records.
func (m *Mapped[T]) Random(ctx context.Context, n int) ([]T, error) {
	items, err := m.b.Random(ctx, n)
	if err != nil {
		return nil, err
	}
	return m.mapAll(items), nil
}

// Count returns the number of matching records.
func (m *Mapped[T]) Count(ctx context.Context) (int, error) {
	return m.b.Count(ctx)
}
