package query

// compileWhere turns one (field, operator, value) triple into a node.
//
// A nil node with a nil error means the predicate compiles to nothing
// (strict ranges against null). For ">=" and "<=" against null the result is
// the equivalent existence check, which callers append like any other term.
func compileWhere(field string, op Operator, value any) (Node, error) {
	if !op.Valid() {
		return nil, &InvalidOperatorError{Operator: op}
	}
	v, err := normalizeValue(value)
	if err != nil {
		return nil, err
	}
	return compilePredicate(CompileField(field), op, v)
}

func compilePredicate(field string, op Operator, v any) (Node, error) {
	if list, ok := v.([]any); ok {
		return compileList(field, op, list)
	}

	tok := escape(v, op)
	if tok.null {
		return compileNull(field, op), nil
	}

	base := &term{text: field + ":" + tok.text}
	switch op {
	case OpEq, OpLike:
		return base, nil
	case OpNeq:
		return &negation{inner: base, paren: true}, nil
	case OpGt:
		if tok.quoted {
			return &term{text: field + ":{" + tok.text + " TO *}"}, nil
		}
		return &term{text: field + ":>" + tok.text}, nil
	case OpGte:
		if tok.quoted {
			return &term{text: field + ":[" + tok.text + " TO *]"}, nil
		}
		return &term{text: field + ":>=" + tok.text}, nil
	case OpLt:
		if tok.quoted {
			return &term{text: field + ":{* TO " + tok.text + "}"}, nil
		}
		return &term{text: field + ":<" + tok.text}, nil
	case OpLte:
		if tok.quoted {
			return &term{text: field + ":[* TO " + tok.text + "]"}, nil
		}
		return &term{text: field + ":<=" + tok.text}, nil
	default:
		return nil, &InvalidOperatorError{Operator: op}
	}
}

// compileList expands an array value into one term per element joined by OR.
func compileList(field string, op Operator, list []any) (Node, error) {
	if len(list) == 0 {
		return nil, &InvalidArrayValueError{Field: field}
	}
	nodes := make([]Node, 0, len(list))
	for _, item := range list {
		n, err := compilePredicate(field, op, item)
		if err != nil {
			return nil, err
		}
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	switch len(nodes) {
	case 0:
		return nil, nil
	case 1:
		return nodes[0], nil
	default:
		return or(nodes...), nil
	}
}

// compileNull handles a null value. "!=" and ">=" become an existence check,
// "=", "like" and "<=" its negation; strict ranges have no meaning.
func compileNull(field string, op Operator) Node {
	switch op {
	case OpNeq, OpGte:
		return exists(field)
	case OpEq, OpLike, OpLte:
		return &negation{inner: exists(field), paren: true}
	default:
		return nil
	}
}

func exists(field string) Node {
	return &term{text: "_exists_:" + field}
}
