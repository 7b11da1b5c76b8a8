package googlebooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectlist/contentservice/internal/domain"
)

const volumesFixture = `{
	"totalItems": 980,
	"items": [
		{"id": "zyTCAlFPjgYC", "volumeInfo": {
			"title": "Dune", "subtitle": "Deluxe Edition", "authors": ["Frank Herbert"],
			"publishedDate": "1965-08-01", "description": "<p>Set on the desert planet Arrakis&hellip;</p>",
			"pageCount": 896,
			"industryIdentifiers": [{"type": "ISBN_13", "identifier": "9780441013593"}, {"type": "ISBN_10", "identifier": "0441013597"}],
			"imageLinks": {"thumbnail": "http://books.google.com/books/content?id=zyTCAlFPjgYC"}
		}},
		{"id": "zyTCAlFPjgYC", "volumeInfo": {"title": "Dune"}},
		{"id": "noimage", "volumeInfo": {"title": "Bare Book"}},
		{"id": "", "volumeInfo": {"title": "No Id"}}
	]
}`

func TestSearchNormalizesVolumes(t *testing.T) {
	var gotQuery, gotStart, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotStart = r.URL.Query().Get("startIndex")
		gotKey = r.URL.Query().Get("key")
		_, _ = w.Write([]byte(volumesFixture))
	}))
	defer srv.Close()

	provider := NewProvider(Config{APIKey: "secret", BaseURL: srv.URL, Client: srv.Client()})
	page, err := provider.Search(context.Background(), " dune ", 2)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if gotQuery != "dune" || gotStart != "20" || gotKey != "secret" {
		t.Fatalf("unexpected params q=%q startIndex=%q key=%q", gotQuery, gotStart, gotKey)
	}
	if page.TotalResults != 980 || len(page.Results) != 2 {
		t.Fatalf("unexpected page: total=%d len=%d", page.TotalResults, len(page.Results))
	}

	dune := page.Results[0]
	if dune.Title != "Dune: Deluxe Edition" {
		t.Fatalf("unexpected title %q", dune.Title)
	}
	if dune.Description != "Set on the desert planet Arrakis…" {
		t.Fatalf("unexpected description %q", dune.Description)
	}
	if dune.ImageURL != "https://books.google.com/books/content?id=zyTCAlFPjgYC" {
		t.Fatalf("expected https thumbnail, got %q", dune.ImageURL)
	}
	if dune.ExternalData["isbn13"] != "9780441013593" || dune.ExternalData["year"] != 1965 {
		t.Fatalf("unexpected extra: %#v", dune.ExternalData)
	}

	bare := page.Results[1]
	if bare.Description != domain.PlaceholderDescription || bare.ImageURL != domain.CategoryBook.PlaceholderImage() {
		t.Fatalf("expected placeholders, got %+v", bare)
	}
}

func TestSearchWithoutKeyOmitsKeyParam(t *testing.T) {
	hasKey := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasKey = r.URL.Query()["key"]
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	}))
	defer srv.Close()

	provider := NewProvider(Config{BaseURL: srv.URL, Client: srv.Client()})
	page, err := provider.Search(context.Background(), "anything", 1)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if hasKey {
		t.Fatalf("expected no key parameter")
	}
	if len(page.Results) != 0 || page.TotalResults != 0 {
		t.Fatalf("expected empty page, got %+v", page)
	}
}

func TestDiscoverRotatesSubjects(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q")+"@"+r.URL.Query().Get("startIndex"))
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	}))
	defer srv.Close()

	provider := NewProvider(Config{BaseURL: srv.URL, Client: srv.Client()})
	for _, page := range []int{1, 2, 11} {
		if _, err := provider.Discover(context.Background(), page); err != nil {
			t.Fatalf("discover page %d: %v", page, err)
		}
	}
	want := []string{"subject:fiction@0", "subject:fantasy@0", "subject:fiction@20"}
	if len(queries) != len(want) {
		t.Fatalf("unexpected queries %v", queries)
	}
	for i := range want {
		if queries[i] != want[i] {
			t.Fatalf("query %d: want %q, got %q", i, want[i], queries[i])
		}
	}
}
