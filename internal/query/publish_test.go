package query

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const publishedAt20210915 = `(published:1 AND (use_time:0 OR (use_time:1 AND ((_exists_:start AND _exists_:stop AND start:[* TO "2021-09-15 00:00:00"] AND stop:["2021-09-15 00:00:00" TO *]) OR (_exists_:start AND NOT _exists_:stop AND start:[* TO "2021-09-15 00:00:00"]) OR (NOT _exists_:start AND _exists_:stop AND stop:["2021-09-15 00:00:00" TO *]) OR (NOT _exists_:start AND NOT _exists_:stop)))))^0`

var fixedInstant = time.Date(2021, 9, 15, 0, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedInstant }

func TestPublishedAt_Exact(t *testing.T) {
	got, err := New().PublishedAt(fixedInstant).GetQuery(false)
	require.NoError(t, err)
	assert.Equal(t, publishedAt20210915, got)
}

func TestPublishedAt_AutoInjected(t *testing.T) {
	b := New(WithClock(fixedClock))

	got, err := b.GetQuery(false)
	require.NoError(t, err)
	assert.Equal(t, publishedAt20210915, got)

	scoped, err := b.GetQuery(true)
	require.NoError(t, err)
	assert.Empty(t, scoped, "scoped compiles never inject the publication predicate")
}

func TestPublishedAt_DisablesAutoInjection(t *testing.T) {
	b := New(WithClock(time.Now)).PublishedAt(fixedInstant)
	assert.False(t, b.respectPublishingStatus)

	got, err := b.GetQuery(false)
	require.NoError(t, err)
	assert.Equal(t, publishedAt20210915, got)
}

func TestCompile_Idempotent(t *testing.T) {
	b := New(WithClock(fixedClock)).
		Relation("entry", 10000).
		Where("id", OpEq, []int{1, 2})

	first, err := b.GetQuery(false)
	require.NoError(t, err)
	second, err := b.GetQuery(false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, b.terms, 1, "compiling must not grow the term list")
}

func TestCompile_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	tests := []struct {
		name string
		b    *Builder
	}{
		{
			name: "entry_partition",
			b: New(WithClock(fixedClock)).
				Relation("entry", 10000).
				Where("id", OpEq, []int{1, 2}),
		},
		{
			name: "search_scope",
			b: New(WithoutPublishingStatus()).
				Relation("articles", 0).
				Or(func(q *Builder) {
					q.Where("title", OpLike, "green tea").Score(3).
						Where("body", OpLike, "green tea")
				}).
				Not(func(q *Builder) {
					q.Where("category", OpEq, []string{"draft", "archive"})
				}).
				Where("updated", OpGte, fixedInstant),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.b.GetQuery(false)
			require.NoError(t, err)
			g.Assert(t, tt.name, []byte(q))
		})
	}
}
