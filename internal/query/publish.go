package query

import "time"

// Publication window fields.
const (
	publishedField = "published"
	useTimeField   = "use_time"
	startField     = "start"
	stopField      = "stop"
)

// publishedAt builds the publication predicate for instant t: the record is
// published and either has no time window or a window containing t. The
// predicate is scored at weight 0 so it filters without affecting relevance.
func (b *Builder) publishedAt(t time.Time) (Node, error) {
	at := t.Format(DateTimeLayout)
	q := b.fork()
	q.And(func(q *Builder) {
		q.Where(publishedField, OpEq, true).
			Or(func(q *Builder) {
				q.Where(useTimeField, OpEq, false).
					And(func(q *Builder) {
						q.Where(useTimeField, OpEq, true).
							Or(func(q *Builder) {
								q.And(func(q *Builder) {
									q.Where(startField, OpNeq, nil).
										Where(stopField, OpNeq, nil).
										Where(startField, OpLte, at).
										Where(stopField, OpGte, at)
								}).And(func(q *Builder) {
									q.Where(startField, OpNeq, nil).
										whereMissing(stopField).
										Where(startField, OpLte, at)
								}).And(func(q *Builder) {
									q.whereMissing(startField).
										Where(stopField, OpNeq, nil).
										Where(stopField, OpGte, at)
								}).And(func(q *Builder) {
									q.whereMissing(startField).
										whereMissing(stopField)
								})
							})
					})
			})
	}).Score(0)
	return q.compile(true, And)
}

// whereMissing adds a bare "NOT _exists_:field" term for use inside an
// enclosing conjunction.
func (b *Builder) whereMissing(field string) *Builder {
	return b.push(&negation{inner: exists(CompileField(field))})
}
