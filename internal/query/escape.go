package query

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateTimeLayout is the textual form of date/time predicate values.
const DateTimeLayout = "2006-01-02 15:04:05"

// fieldReplacements rewrites characters that collide with the query syntax.
// Extend the table to reserve more characters.
var fieldReplacements = []string{
	"-", "##D##",
}

var fieldReplacer = strings.NewReplacer(fieldReplacements...)

// CompileField rewrites a field name so it can be embedded in a query.
func CompileField(name string) string {
	return fieldReplacer.Replace(name)
}

// specialChars are backslash-escaped inside string values. The backslash
// entry comes first so escapes added for quotes are not doubled.
var specialChars = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
)

// token is an escaped scalar ready to be embedded after "field:".
type token struct {
	text   string
	null   bool
	quoted bool // string-typed value; ranges use bracket syntax
}

// escape converts a normalized scalar to its query token.
func escape(v any, op Operator) token {
	switch x := v.(type) {
	case nil:
		return token{null: true}
	case string:
		s := specialChars.Replace(x)
		if op == OpLike {
			return token{text: strings.ReplaceAll(s, " ", "*"), quoted: true}
		}
		return token{text: `"` + s + `"`, quoted: true}
	case bool:
		if x {
			return token{text: "1"}
		}
		return token{text: "0"}
	case time.Time:
		return escape(x.Format(DateTimeLayout), op)
	case int64:
		return token{text: strconv.FormatInt(x, 10)}
	case uint64:
		return token{text: strconv.FormatUint(x, 10)}
	default:
		return token{text: fmt.Sprint(x)}
	}
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	stringerTyp = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

// normalizeValue reduces a predicate value to nil, bool, int64, uint64,
// string, time.Time or a []any of those. Collections are flattened to their
// elements, keyed collections to their values in key order.
func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case Keyer:
		return normalizeValue(x.QueryKey())
	case time.Time:
		return x, nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		return nil, &InvalidValueError{Value: v}
	case []any:
		return normalizeList(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return normalizeValue(rv.Elem().Interface())
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Struct:
		if rv.Type().ConvertibleTo(timeType) {
			return rv.Convert(timeType).Interface(), nil
		}
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return normalizeList(items)
	case reflect.Map:
		return normalizeMap(rv)
	}

	if rv.Type().Implements(stringerTyp) {
		return v.(fmt.Stringer).String(), nil
	}
	return nil, &InvalidValueError{Value: v}
}

func normalizeList(items []any) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		n, err := normalizeValue(item)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func normalizeMap(rv reflect.Value) ([]any, error) {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	items := make([]any, len(keys))
	for i, k := range keys {
		items[i] = rv.MapIndex(k).Interface()
	}
	return normalizeList(items)
}
