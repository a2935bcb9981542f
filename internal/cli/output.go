package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// printer writes command results in the selected format.
type printer struct {
	format string
	w      io.Writer
}

// fields prints ordered key/value pairs: "key: value" lines in text mode,
// one JSON object otherwise.
func (p printer) fields(kv ...any) error {
	if p.format == "json" {
		obj := make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			obj[fmt.Sprint(kv[i])] = kv[i+1]
		}
		return p.json(obj)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if _, err := fmt.Fprintf(p.w, "%s: %v\n", kv[i], kv[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// records prints search results: a JSON document, or one line per record
// with keys sorted.
func (p printer) records(items []map[string]any, meta map[string]any) error {
	if p.format == "json" {
		out := map[string]any{"data": items}
		for k, v := range meta {
			out[k] = v
		}
		return p.json(out)
	}
	for _, it := range items {
		keys := make([]string, 0, len(it))
		for k := range it {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%v", k, it[k])
		}
		if _, err := fmt.Fprintln(p.w, strings.Join(parts, " ")); err != nil {
			return err
		}
	}
	if len(meta) > 0 {
		keys := make([]string, 0, len(meta))
		for k := range meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%v", k, meta[k])
		}
		if _, err := fmt.Fprintf(p.w, "-- %s\n", strings.Join(parts, " ")); err != nil {
			return err
		}
	}
	return nil
}

func (p printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
