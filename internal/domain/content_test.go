package domain

import (
	"sync"
	"testing"
)

func TestNewContentItemFillsPlaceholders(t *testing.T) {
	item := NewContentItem(CategoryBook, "googlebooks", " abc ", "Dune", "", "", map[string]any{
		"isbn":  "9780441013593",
		"empty": nil,
	})

	if item.ID != "abc" {
		t.Fatalf("unexpected id: %q", item.ID)
	}
	if item.Description != PlaceholderDescription {
		t.Fatalf("expected placeholder description, got %q", item.Description)
	}
	if item.ImageURL == "" || item.ImageURL != CategoryBook.PlaceholderImage() {
		t.Fatalf("expected placeholder image, got %q", item.ImageURL)
	}
	if item.ExternalData[ExternalCategory] != "book" {
		t.Fatalf("missing category tag: %#v", item.ExternalData)
	}
	if item.ExternalData[ExternalProviderID] != "abc" {
		t.Fatalf("missing provider id: %#v", item.ExternalData)
	}
	if _, ok := item.ExternalData["empty"]; ok {
		t.Fatal("nil extra values should be dropped")
	}
}

func TestNewContentItemDoesNotRetainExtra(t *testing.T) {
	extra := map[string]any{"genre": "sci-fi"}
	item := NewContentItem(CategoryMovie, "tmdb", "1", "Dune", "desc", "img", extra)
	extra["genre"] = "changed"
	if item.ExternalData["genre"] != "sci-fi" {
		t.Fatalf("item shares caller map: %#v", item.ExternalData)
	}
}

func TestCloneIsDeep(t *testing.T) {
	item := NewContentItem(CategoryGame, "rawg", "7", "Portal", "d", "i", map[string]any{
		"genres": []string{"puzzle"},
	})
	cloned := item.Clone()
	cloned.ExternalData["genres"].([]string)[0] = "shooter"
	cloned.ExternalData["extra"] = true

	if item.ExternalData["genres"].([]string)[0] != "puzzle" {
		t.Fatal("clone shares slice with original")
	}
	if _, ok := item.ExternalData["extra"]; ok {
		t.Fatal("clone shares map with original")
	}
}

func TestKeyIncludesCategory(t *testing.T) {
	movie := NewContentItem(CategoryMovie, "tmdb", "42", "A", "", "", nil)
	tv := NewContentItem(CategoryTV, "tmdb", "42", "B", "", "", nil)
	if movie.Key() == tv.Key() {
		t.Fatal("items from different categories must not share keys")
	}
}

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"Movie":   CategoryMovie,
		" series": CategoryTV,
		"people":  CategoryPerson,
		"poems":   CategoryPoetry,
		"opera":   Category("opera"),
	}
	for raw, want := range cases {
		if got := ParseCategory(raw); got != want {
			t.Errorf("ParseCategory(%q) = %q, want %q", raw, got, want)
		}
	}
	if Category("opera").Known() {
		t.Fatal("opera should not be a known category")
	}
}

func TestNormalizeQueryConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if got := NormalizeQuery(" ÉCLAIR Dunes "); got != "éclair dunes" {
					t.Errorf("unexpected normalization %q", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestCategoryLabelAndPlaceholderForFreeFormCategories(t *testing.T) {
	if got := Category("éclair").Label(); got != "Éclair" {
		t.Fatalf("expected rune-aware label, got %q", got)
	}
	got := Category("a&b c").PlaceholderImage()
	if got != "https://placehold.co/300x450/png?text=A%26b+c" {
		t.Fatalf("expected escaped placeholder text, got %q", got)
	}
	if got := CategoryTV.PlaceholderImage(); got != "https://placehold.co/300x450/png?text=TV+Series" {
		t.Fatalf("unexpected tv placeholder %q", got)
	}
}

func TestNormalizeQuery(t *testing.T) {
	tests := map[string]string{
		"Batman":            "batman",
		"  batman ":         "batman",
		"The  Dark Knight ": "the  dark knight",
		"Café":             "café",
		"":                  "",
	}
	for input, want := range tests {
		if got := NormalizeQuery(input); got != want {
			t.Errorf("NormalizeQuery(%q) = %q, want %q", input, got, want)
		}
	}
}
