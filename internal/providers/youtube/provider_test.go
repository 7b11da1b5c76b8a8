package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"connectlist/contentservice/internal/domain"
)

const videosFixture = `{
	"pageInfo": {"totalResults": 1},
	"items": [{
		"id": "abc123",
		"snippet": {"title": "Rick &amp; Roll", "description": "", "channelTitle": "Rick",
			"thumbnails": {"high": {"url": "https://i.ytimg.com/vi/abc123/hqdefault.jpg"}}},
		"contentDetails": {"duration": "PT3M33S"},
		"statistics": {"viewCount": "1500000000"}
	}]
}`

const searchFixture = `{
	"nextPageToken": "CBQQAA",
	"pageInfo": {"totalResults": 1000000},
	"items": [
		{"id": {"videoId": "cat1"}, "snippet": {"title": "Funny cats compilation", "description": "Cats being cats"}},
		{"id": {"channelId": "UCx"}, "snippet": {"title": "A channel result"}}
	]
}`

type recorder struct {
	mu      sync.Mutex
	paths   []string
	ids     []string
	queries []string
	tokens  []string
}

func (r *recorder) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.paths = append(r.paths, req.URL.Path)
		r.ids = append(r.ids, req.URL.Query().Get("id"))
		r.queries = append(r.queries, req.URL.Query().Get("q"))
		r.tokens = append(r.tokens, req.URL.Query().Get("pageToken"))
		r.mu.Unlock()

		switch req.URL.Path {
		case "/videos":
			_, _ = w.Write([]byte(videosFixture))
		case "/search":
			_, _ = w.Write([]byte(searchFixture))
		default:
			t.Errorf("unexpected path %s", req.URL.Path)
			http.NotFound(w, req)
		}
	})
}

func TestSearchWithShortURLUsesDirectLookup(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	provider := NewProvider(Config{APIKey: "k", BaseURL: srv.URL, Client: srv.Client()})
	page, err := provider.Search(context.Background(), "https://youtu.be/abc123", 1)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(rec.paths) != 1 || rec.paths[0] != "/videos" || rec.ids[0] != "abc123" {
		t.Fatalf("expected one /videos lookup for abc123, got paths=%v ids=%v", rec.paths, rec.ids)
	}
	if len(page.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(page.Results))
	}
	item := page.Results[0]
	if item.ID != "abc123" || item.Title != "Rick & Roll" {
		t.Fatalf("unexpected item %+v", item)
	}
	if item.Description != domain.PlaceholderDescription {
		t.Fatalf("expected placeholder description, got %q", item.Description)
	}
	if item.ExternalData["view_count"] != int64(1500000000) || item.ExternalData["duration"] != "PT3M33S" {
		t.Fatalf("unexpected extra %#v", item.ExternalData)
	}
}

func TestSearchWithPlainQueryUsesSearchEndpoint(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	provider := NewProvider(Config{APIKey: "k", BaseURL: srv.URL, Client: srv.Client()})
	page, err := provider.Resolve(context.Background(), "funny cats")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if len(rec.paths) != 1 || rec.paths[0] != "/search" || rec.queries[0] != "funny cats" {
		t.Fatalf("expected one /search call, got paths=%v queries=%v", rec.paths, rec.queries)
	}
	if len(page.Results) != 1 || page.Results[0].ID != "cat1" {
		t.Fatalf("expected channel result dropped, got %+v", page.Results)
	}
	if page.TotalResults != 1000000 {
		t.Fatalf("unexpected total %d", page.TotalResults)
	}
	if page.Results[0].ImageURL != domain.CategoryVideo.PlaceholderImage() {
		t.Fatalf("expected placeholder image, got %q", page.Results[0].ImageURL)
	}
}

func TestSearchSecondPageUsesRememberedToken(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	provider := NewProvider(Config{APIKey: "k", BaseURL: srv.URL, Client: srv.Client()})
	if _, err := provider.Search(context.Background(), "cats", 1); err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if _, err := provider.Search(context.Background(), "cats", 2); err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if rec.tokens[0] != "" || rec.tokens[1] != "CBQQAA" {
		t.Fatalf("unexpected page tokens %v", rec.tokens)
	}
}

func TestDiscoverReadsRegionalChart(t *testing.T) {
	var region, chart string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		region = r.URL.Query().Get("regionCode")
		chart = r.URL.Query().Get("chart")
		_, _ = w.Write([]byte(videosFixture))
	}))
	defer srv.Close()

	provider := NewProvider(Config{APIKey: "k", BaseURL: srv.URL, Client: srv.Client()})
	if _, err := provider.Discover(context.Background(), 3); err != nil {
		t.Fatalf("discover error: %v", err)
	}
	if chart != "mostPopular" || region != "CA" {
		t.Fatalf("unexpected chart=%q region=%q", chart, region)
	}
}

func TestSearchWithoutKeyIsDisabled(t *testing.T) {
	provider := NewProvider(Config{})
	_, err := provider.Search(context.Background(), "cats", 1)
	if !errors.Is(err, domain.ErrProviderDisabled) {
		t.Fatalf("expected ErrProviderDisabled, got %v", err)
	}
}
