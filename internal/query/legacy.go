package query

import "strings"

// Compatibility shim for the deprecated OrWhere/AndWhere chaining calls.
//
// Those calls produce self-prefixed terms ("OR x", "AND x") that the reducer
// must splice in without inserting its own operator. New code paths build
// groups instead and never rely on prefixes.

// legacy is a term carrying its own leading boolean operator.
type legacy struct {
	prefix BoolOp
	inner  Node
}

func (l *legacy) render(sb *strings.Builder) {
	sb.WriteString(string(l.prefix))
	sb.WriteByte(' ')
	l.inner.render(sb)
}

func (*legacy) queryNode() {}

// isPrefixed reports whether n already starts with a boolean operator.
// Raw terms are sniffed for an "AND "/"OR " prefix. Boost and fuzzy render
// after their inner node, so the prefix stays in front of them.
func isPrefixed(n Node) bool {
	switch v := n.(type) {
	case *legacy:
		return true
	case *term:
		return strings.HasPrefix(v.text, "AND ") || strings.HasPrefix(v.text, "OR ")
	case *boost:
		return isPrefixed(v.inner)
	case *fuzzy:
		return isPrefixed(v.inner)
	default:
		return false
	}
}
