// Package chi serves a fixture-backed content API that speaks the same
// search wire format as the production endpoint.
package chi

import (
	"cmp"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/docquery/internal/logger"
	"github.com/kailas-cloud/docquery/internal/query"
)

const defaultPageSize = 100

// idTerm matches "id:123" terms produced by Where("id", ...) and WhereIn.
var idTerm = regexp.MustCompile(`(?:^|[\s(])id:(\d+)`)

// Server answers search requests from in-memory fixtures.
type Server struct {
	fixtures Fixtures
	logger   *zap.Logger
}

// NewServer creates a mock API server.
func NewServer(fixtures Fixtures, logger *zap.Logger) *Server {
	if fixtures == nil {
		fixtures = Fixtures{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{fixtures: fixtures, logger: logger}
}

type pageResponse struct {
	Data        []map[string]any `json:"data"`
	CurrentPage int              `json:"current_page"`
	PerPage     int              `json:"per_page"`
	Total       int              `json:"total"`
	LastPage    int              `json:"last_page"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Search handles GET /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	log := logpkg.FromContext(r.Context())

	size, err := intParam(params.Get("size"), defaultPageSize)
	if err != nil || size < 1 || size > query.MaxQuerySize {
		writeError(w, http.StatusBadRequest, "invalid size")
		return
	}
	page, err := intParam(params.Get("page"), 1)
	if err != nil || page < 1 {
		writeError(w, http.StatusBadRequest, "invalid page")
		return
	}
	relationID, err := intParam(params.Get("relation_id"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid relation_id")
		return
	}

	var items []map[string]any
	for _, rel := range splitCSV(params.Get("relation")) {
		records, ok := s.fixtures[rel]
		if !ok {
			// The production API answers an unknown index with a 500.
			log.Info("Unknown relation", zap.String("relation", rel))
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   "index_not_found",
				Message: fmt.Sprintf("no such index [%s]", rel),
			})
			return
		}
		items = append(items, records...)
	}

	items = filterPartition(items, relationID)
	items = filterIDs(items, params.Get("q"))
	sortItems(items, splitCSV(params.Get("order")), splitCSV(params.Get("dir")))

	total := len(items)
	start := min((page-1)*size, total)
	end := min(start+size, total)
	window := project(items[start:end], splitCSV(params.Get("fields")))

	writeJSON(w, http.StatusOK, pageResponse{
		Data:        window,
		CurrentPage: page,
		PerPage:     size,
		Total:       total,
		LastPage:    max((total+size-1)/size, 1),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"relations": len(s.fixtures),
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{
		Error:   strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_"),
		Message: message,
	})
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// filterPartition keeps records of the given directory. Records without a
// directory_id are shared across partitions.
func filterPartition(items []map[string]any, relationID int) []map[string]any {
	if relationID == 0 {
		return items
	}
	want := strconv.Itoa(relationID)
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		dir, ok := it["directory_id"]
		if !ok || fmt.Sprint(dir) == want {
			out = append(out, it)
		}
	}
	return out
}

func filterIDs(items []map[string]any, q string) []map[string]any {
	matches := idTerm.FindAllStringSubmatch(q, -1)
	if len(matches) == 0 {
		return items
	}
	ids := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		ids[m[1]] = struct{}{}
	}
	out := make([]map[string]any, 0, len(ids))
	for _, it := range items {
		if _, ok := ids[fmt.Sprint(it["id"])]; ok {
			out = append(out, it)
		}
	}
	return out
}

// sortItems orders by the listed fields; a missing or "default" direction
// sorts ascending.
func sortItems(items []map[string]any, order, dirs []string) {
	if len(order) == 0 {
		return
	}
	slices.SortStableFunc(items, func(a, b map[string]any) int {
		for i, field := range order {
			c := compareValues(a[field], b[field])
			if i < len(dirs) && dirs[i] == string(query.DirDesc) {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	fa, aok := number(a)
	fb, bok := number(b)
	if aok && bok {
		return cmp.Compare(fa, fb)
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func project(items []map[string]any, fields []string) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, it := range items {
		if len(fields) == 0 {
			out[i] = it
			continue
		}
		rec := make(map[string]any, len(fields))
		for _, f := range fields {
			if v, ok := it[f]; ok {
				rec[f] = v
			}
		}
		out[i] = rec
	}
	return out
}
