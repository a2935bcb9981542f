package query

import (
	"fmt"

	"go.uber.org/zap"
)

// scoped compiles fn against an isolated child builder and appends the
// result, optionally transformed by wrap. Empty scopes add nothing.
func (b *Builder) scoped(fn ScopeFunc, op BoolOp, wrap func(Node) Node) *Builder {
	if b.err != nil || fn == nil {
		return b
	}
	n, useScores, err := b.compileChild(fn, op)
	if err != nil {
		return b.fail(err)
	}
	b.useScores = b.useScores || useScores
	if n == nil {
		return b
	}
	if wrap != nil {
		n = wrap(n)
	}
	return b.push(n)
}

func (b *Builder) compileChild(fn ScopeFunc, op BoolOp) (Node, bool, error) {
	child := b.fork()
	fn(child)
	n, err := child.compile(true, op)
	if err != nil {
		return nil, false, err
	}
	return n, child.useScores, nil
}

// CompileScope compiles fn in an isolated scope joined by op and combines it
// with the terms already on b: "(prior OP nested)", or just the nested
// expression when b has no terms. b is not modified.
func (b *Builder) CompileScope(fn ScopeFunc, op BoolOp) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	nested, _, err := b.compileChild(fn, op)
	if err != nil {
		return "", err
	}
	prior, err := b.reduce(b.terms, And)
	if err != nil {
		return "", err
	}
	switch {
	case nested == nil:
		return Render(prior), nil
	case prior == nil:
		return Render(nested), nil
	}
	return Render(&group{op: op, items: []Node{prior, nested}}), nil
}

// compile drains the deferred mutators and reduces the terms into one node.
// Top-level compiles add the publication and partition predicates to a
// derived term list, so repeated compiles of the same state are identical.
func (b *Builder) compile(scoped bool, op BoolOp) (Node, error) {
	if err := b.runAppends(scoped); err != nil {
		return nil, err
	}

	terms := b.terms
	if !scoped {
		terms = append([]Node(nil), b.terms...)
		if b.respectPublishingStatus {
			n, err := b.publishedAt(b.now())
			if err != nil {
				return nil, err
			}
			terms = append(terms, n)
		}
		if b.hasRelation(EntryRelation) && b.relationID != 0 {
			terms = append(terms, &boost{
				inner: &term{text: fmt.Sprintf("%s:%d", PartitionField, b.relationID)},
			})
		}
	}
	return b.reduce(terms, op)
}

func (b *Builder) runAppends(scoped bool) error {
	appends := b.appends
	b.appends = nil
	for _, fn := range appends {
		fn(b, scoped)
	}
	return b.err
}

func (b *Builder) reduce(terms []Node, op BoolOp) (Node, error) {
	if b.err != nil {
		return nil, b.err
	}
	items := make([]Node, 0, len(terms))
	for _, t := range terms {
		if t != nil && !isPlaceholder(t) {
			items = append(items, t)
		}
	}
	switch len(items) {
	case 0:
		return nil, nil
	case 1:
		return items[0], nil
	default:
		return &group{op: op, items: items}, nil
	}
}

// GetQuery compiles the boolean expression. A scoped compile omits the
// publication and partition predicates.
func (b *Builder) GetQuery(scoped bool) (string, error) {
	n, err := b.compile(scoped, And)
	if err != nil {
		return "", err
	}
	q := Render(n)
	if b.debug {
		b.logger.Debug("compiled query", zap.String("query", q), zap.Bool("scoped", scoped))
	}
	return q, nil
}

// String returns the top-level compiled query, or "" if building failed.
func (b *Builder) String() string {
	q, err := b.GetQuery(false)
	if err != nil {
		return ""
	}
	return q
}
