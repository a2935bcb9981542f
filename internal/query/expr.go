package query

import (
	"strconv"
	"strings"
)

// Node is a compiled boolean expression.
//
// The interface is sealed: only types in this package implement it. Builders
// accumulate nodes and a single render pass turns the tree into query-string
// syntax, so composition never has to re-parse compiled text.
type Node interface {
	render(sb *strings.Builder)
	queryNode()
}

// Render returns the query-string form of n. A nil node renders as "".
func Render(n Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	n.render(&sb)
	return sb.String()
}

// term is a leaf: a field predicate, a range or raw caller-supplied text.
type term struct {
	text string
}

func (t *term) render(sb *strings.Builder) { sb.WriteString(t.text) }
func (*term) queryNode()                   {}

// group joins its items with op. More than one item is wrapped in parens.
type group struct {
	op    BoolOp
	items []Node
}

func (g *group) render(sb *strings.Builder) {
	if len(g.items) == 1 {
		g.items[0].render(sb)
		return
	}
	sb.WriteByte('(')
	for i, item := range g.items {
		if i > 0 {
			sb.WriteByte(' ')
			if !isPrefixed(item) {
				sb.WriteString(string(g.op))
				sb.WriteByte(' ')
			}
		}
		item.render(sb)
	}
	sb.WriteByte(')')
}

func (*group) queryNode() {}

// negation renders "NOT x", or "(NOT x)" when paren is set.
type negation struct {
	inner Node
	paren bool
}

func (n *negation) render(sb *strings.Builder) {
	if n.paren {
		sb.WriteByte('(')
	}
	sb.WriteString("NOT ")
	n.inner.render(sb)
	if n.paren {
		sb.WriteByte(')')
	}
}

func (*negation) queryNode() {}

// boost applies a score weight: "x^w".
type boost struct {
	inner  Node
	weight float64
}

func (b *boost) render(sb *strings.Builder) {
	b.inner.render(sb)
	sb.WriteByte('^')
	sb.WriteString(strconv.FormatFloat(b.weight, 'f', -1, 64))
}

func (*boost) queryNode() {}

// fuzzy marks the inner expression as fuzzy: "x~" or "x~d".
// One enclosing paren group of the inner expression is dropped.
type fuzzy struct {
	inner    Node
	distance int
}

func (f *fuzzy) render(sb *strings.Builder) {
	s := Render(f.inner)
	if len(s) > 2 && s[0] == '(' && s[len(s)-1] == ')' {
		s = s[1 : len(s)-1]
	}
	sb.WriteString(s)
	sb.WriteByte('~')
	if f.distance > 0 {
		sb.WriteString(strconv.Itoa(f.distance))
	}
}

func (*fuzzy) queryNode() {}

func and(items ...Node) Node { return &group{op: And, items: items} }

func or(items ...Node) Node { return &group{op: Or, items: items} }

// isPlaceholder reports whether n is the empty-group placeholder "()".
func isPlaceholder(n Node) bool {
	t, ok := n.(*term)
	return ok && t.text == "()"
}
