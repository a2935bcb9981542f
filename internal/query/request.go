package query

import (
	"net/url"
	"strconv"
	"strings"
)

// SearchPath is the endpoint path every request targets.
const SearchPath = "search"

// Request is a compiled search request handed to a Transport.
type Request struct {
	Order      []string
	Dir        []SortDirection
	Relations  []string
	Fields     []string
	RelationID int
	Size       int
	Page       int
	Query      string
	Scores     bool
	Debug      bool
}

// Values returns the query parameters in wire order. Empty parameters are
// omitted.
func (r Request) Values() [][2]string {
	dirs := make([]string, len(r.Dir))
	for i, d := range r.Dir {
		dirs[i] = string(d)
	}
	params := [][2]string{
		{"order", strings.Join(r.Order, ",")},
		{"dir", strings.Join(dirs, ",")},
		{"relation", strings.Join(r.Relations, ",")},
		{"fields", strings.Join(r.Fields, ",")},
		{"relation_id", itoa(r.RelationID)},
		{"size", itoa(r.Size)},
		{"page", itoa(r.Page)},
		{"q", r.Query},
		{"scores", flag(r.Scores)},
		{"debug", flag(r.Debug)},
	}
	out := params[:0]
	for _, p := range params {
		if p[1] != "" {
			out = append(out, p)
		}
	}
	return out
}

// URL renders the request as a relative "search?..." URL. Every value is
// query-escaped, so list separators go out as %2C and decode back to commas.
func (r Request) URL() string {
	var sb strings.Builder
	sb.WriteString(SearchPath)
	for i, p := range r.Values() {
		if i == 0 {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
		sb.WriteString(p[0])
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p[1]))
	}
	return sb.String()
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func flag(v bool) string {
	if v {
		return "1"
	}
	return ""
}

// request compiles the builder into a request. Zero size means the
// builder's own size; zero page means unpaginated.
func (b *Builder) request(size, page int) (Request, error) {
	n, err := b.compile(false, And)
	if err != nil {
		return Request{}, err
	}
	if size == 0 {
		size = b.size
	}
	return Request{
		Order:      append([]string(nil), b.orderBy...),
		Dir:        append([]SortDirection(nil), b.sortDir...),
		Relations:  append([]string(nil), b.relations...),
		Fields:     append([]string(nil), b.fields...),
		RelationID: b.relationID,
		Size:       size,
		Page:       page,
		Query:      Render(n),
		Scores:     b.useScores,
		Debug:      b.debug,
	}, nil
}

// GetRequest compiles the builder into its relative request URL.
func (b *Builder) GetRequest() (string, error) {
	req, err := b.request(0, 0)
	if err != nil {
		return "", err
	}
	return req.URL(), nil
}
