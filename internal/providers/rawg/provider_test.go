package rawg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectlist/contentservice/internal/domain"
)

const gamesFixture = `{
	"count": 412,
	"results": [
		{"id": 3328, "slug": "the-witcher-3-wild-hunt", "name": "The Witcher 3: Wild Hunt", "released": "2015-05-18",
		 "background_image": "https://media.rawg.io/media/games/w3.jpg", "rating": 4.66, "metacritic": 92,
		 "genres": [{"name": "Action"}, {"name": "RPG"}],
		 "platforms": [{"platform": {"name": "PC"}}, {"platform": {"name": "PlayStation 4"}}]},
		{"id": 77, "slug": "obscure", "name": "Obscure Game", "released": null, "background_image": null}
	]
}`

func TestSearchNormalizesGames(t *testing.T) {
	var gotSearch, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("search")
		gotKey = r.URL.Query().Get("key")
		_, _ = w.Write([]byte(gamesFixture))
	}))
	defer srv.Close()

	provider := NewProvider(Config{APIKey: "k", BaseURL: srv.URL, Client: srv.Client()})
	page, err := provider.Search(context.Background(), "witcher", 1)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if gotSearch != "witcher" || gotKey != "k" {
		t.Fatalf("unexpected request params search=%q key=%q", gotSearch, gotKey)
	}
	if page.TotalResults != 412 || len(page.Results) != 2 {
		t.Fatalf("unexpected page: total=%d len=%d", page.TotalResults, len(page.Results))
	}

	witcher := page.Results[0]
	if witcher.Description != "Released 2015 · Action, RPG · PC, PlayStation 4" {
		t.Fatalf("unexpected description: %q", witcher.Description)
	}
	if witcher.ExternalData["slug"] != "the-witcher-3-wild-hunt" {
		t.Fatalf("missing slug: %#v", witcher.ExternalData)
	}

	obscure := page.Results[1]
	if obscure.Description != domain.PlaceholderDescription {
		t.Fatalf("expected placeholder description, got %q", obscure.Description)
	}
	if obscure.ImageURL != domain.CategoryGame.PlaceholderImage() {
		t.Fatalf("expected placeholder image, got %q", obscure.ImageURL)
	}
	for _, item := range page.Results {
		if item.ExternalData[domain.ExternalCategory] != "game" || item.ExternalData[domain.ExternalProviderID] == "" {
			t.Fatalf("missing tags: %#v", item.ExternalData)
		}
	}
}

func TestDiscoverOrdersByAdded(t *testing.T) {
	var gotOrdering, gotPage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOrdering = r.URL.Query().Get("ordering")
		gotPage = r.URL.Query().Get("page")
		_, _ = w.Write([]byte(`{"count":0,"results":[]}`))
	}))
	defer srv.Close()

	provider := NewProvider(Config{APIKey: "k", BaseURL: srv.URL, Client: srv.Client()})
	page, err := provider.Discover(context.Background(), 4)
	if err != nil {
		t.Fatalf("discover error: %v", err)
	}
	if gotOrdering != "-added" || gotPage != "4" {
		t.Fatalf("unexpected params ordering=%q page=%q", gotOrdering, gotPage)
	}
	if page.Results == nil || len(page.Results) != 0 {
		t.Fatalf("expected empty non-nil results, got %#v", page.Results)
	}
}
