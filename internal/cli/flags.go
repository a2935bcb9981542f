package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docquery/internal/query"
)

// operators recognised in --where. The leftmost match wins; at the same
// position the longer token does, so ">=" is not read as ">".
var operators = []query.Operator{
	query.OpNeq, query.OpGte, query.OpLte, query.OpEq, query.OpGt, query.OpLt,
}

// predicate is one --where flag.
type predicate struct {
	field string
	op    query.Operator
	value any
}

// parseWhere parses "field<op>value" (e.g. "rank>=2", "name=john doe") or
// "field like value". Values are typed: null, true/false, integers, and
// comma-separated lists in brackets; anything else is a string.
func parseWhere(s string) (predicate, error) {
	if field, value, ok := strings.Cut(s, " like "); ok {
		return newPredicate(field, query.OpLike, value)
	}
	best := -1
	var bestOp query.Operator
	for _, op := range operators {
		i := strings.Index(s, string(op))
		if i < 0 {
			continue
		}
		if best == -1 || i < best || (i == best && len(op) > len(bestOp)) {
			best, bestOp = i, op
		}
	}
	if best <= 0 {
		return predicate{}, fmt.Errorf("invalid predicate %q: expected field<op>value", s)
	}
	return newPredicate(s[:best], bestOp, s[best+len(bestOp):])
}

func newPredicate(field string, op query.Operator, raw string) (predicate, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return predicate{}, fmt.Errorf("invalid predicate: empty field")
	}
	return predicate{field: field, op: op, value: parseValue(strings.TrimSpace(raw))}, nil
}

func parseValue(raw string) any {
	switch {
	case raw == "null":
		return nil
	case raw == "true":
		return true
	case raw == "false":
		return false
	case len(raw) >= 2 && raw[0] == '[' && raw[len(raw)-1] == ']':
		var list []any
		for _, part := range strings.Split(raw[1:len(raw)-1], ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, parseValue(part))
			}
		}
		return list
	case len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"':
		return raw[1 : len(raw)-1]
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}

// queryFlags are shared by every command that builds a query.
type queryFlags struct {
	relationID  int
	where       []string
	or          bool
	raw         string
	orders      []string
	fields      []string
	size        int
	noPublished bool
	at          string
	scores      bool
	debug       bool
}

func (f *queryFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.IntVar(&f.relationID, "relation-id", 0, "partition id (directory) to scope the query to")
	fl.StringArrayVarP(&f.where, "where", "w", nil, `predicate "field<op>value" (repeatable)`)
	fl.BoolVar(&f.or, "or", false, "join --where predicates with OR instead of AND")
	fl.StringVar(&f.raw, "raw", "", "raw expression appended as-is")
	fl.StringArrayVarP(&f.orders, "order", "o", nil, `sort "field[:asc|desc]" (repeatable)`)
	fl.StringSliceVar(&f.fields, "fields", nil, "fields to return")
	fl.IntVar(&f.size, "size", 0, "maximum number of results")
	fl.BoolVar(&f.noPublished, "all-statuses", false, "do not restrict to published content")
	fl.StringVar(&f.at, "published-at", "", `restrict to content published at "YYYY-MM-DD[ HH:MM:SS]"`)
	fl.BoolVar(&f.scores, "scores", false, "include relevance scores")
	fl.BoolVar(&f.debug, "debug", false, "ask the API to echo the compiled query")
}

// apply scopes q to relation and applies the flags to it.
func (f *queryFlags) apply(q *query.Builder, relation string) (*query.Builder, error) {
	q.Relation(relation, f.relationID)

	preds := make([]predicate, 0, len(f.where))
	for _, w := range f.where {
		p, err := parseWhere(w)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	if f.or && len(preds) > 1 {
		q.Or(func(s *query.Builder) {
			for _, p := range preds {
				s.Where(p.field, p.op, p.value)
			}
		})
	} else {
		for _, p := range preds {
			q.Where(p.field, p.op, p.value)
		}
	}
	if f.raw != "" {
		q.Raw(f.raw)
	}

	for _, o := range f.orders {
		field, dir, _ := strings.Cut(o, ":")
		q.OrderBy(field, query.SortDirection(dir))
	}
	if len(f.fields) > 0 {
		q.Fields(f.fields...)
	}
	if f.size > 0 {
		q.Limit(f.size)
	}
	if f.scores {
		q.IncludeScores(true)
	}
	if f.debug {
		q.Debug()
	}

	switch {
	case f.at != "":
		t, err := parseInstant(f.at)
		if err != nil {
			return nil, err
		}
		q.PublishedAt(t)
	case f.noPublished:
		q.RespectPublishingStatus(false)
	}

	return q, q.Err()
}

func parseInstant(s string) (time.Time, error) {
	for _, layout := range []string{query.DateTimeLayout, time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid instant %q: want YYYY-MM-DD[ HH:MM:SS]", s)
}
