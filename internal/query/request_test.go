package query

import (
	"net/url"
	"strings"
	"testing"
)

func TestRequest_URL(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "empty",
			req:  Request{},
			want: "search",
		},
		{
			name: "all parameters",
			req: Request{
				Order:      []string{"updated", "name"},
				Dir:        []SortDirection{DirDesc, DirDefault},
				Relations:  []string{"entry"},
				Fields:     []string{"id", "name"},
				RelationID: 10000,
				Size:       50,
				Page:       2,
				Query:      `name:"john doe"`,
				Scores:     true,
				Debug:      true,
			},
			want: "search?order=updated%2Cname&dir=desc%2Cdefault&relation=entry&fields=id%2Cname&relation_id=10000&size=50&page=2&q=name%3A%22john+doe%22&scores=1&debug=1",
		},
		{
			name: "falsy omitted",
			req:  Request{Size: 10000, Query: "a:1"},
			want: "search?size=10000&q=a%3A1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.URL(); got != tt.want {
				t.Errorf("URL() = %q\nwant      %q", got, tt.want)
			}
		})
	}
}

func TestBuilder_GetRequest(t *testing.T) {
	b := New(WithoutPublishingStatus()).
		Relation("entries", 0).
		Where("name", OpEq, "john doe").
		OrderBy("updated", DirDesc).
		Fields("id", "name").
		Limit(50)

	got, err := b.GetRequest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "search?order=updated&dir=desc&relation=entry&fields=id%2Cname&size=50&q=name%3A%22john+doe%22"
	if got != want {
		t.Errorf("GetRequest() = %q\nwant            %q", got, want)
	}

	values, err := url.ParseQuery(strings.TrimPrefix(got, SearchPath+"?"))
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if values.Get("fields") != "id,name" || values.Get("q") != `name:"john doe"` {
		t.Errorf("decoded = %v", values)
	}
}

func TestBuilder_GetRequestFlags(t *testing.T) {
	b := New(WithoutPublishingStatus()).Where("a", OpEq, 1).Score(2).Debug()
	got, err := b.GetRequest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "search?size=10000&q=a%3A1%5E2&scores=1&debug=1"
	if got != want {
		t.Errorf("GetRequest() = %q, want %q", got, want)
	}
}

func TestBuilder_GetRequestError(t *testing.T) {
	if _, err := New().OrderBy("a", "up").GetRequest(); err == nil {
		t.Fatal("expected error")
	}
}
