package mock

import (
	"strings"
	"sync"
	"testing"

	"connectlist/contentservice/internal/domain"
)

func TestGenerateReturnsFiveNormalizedItems(t *testing.T) {
	for _, category := range append(append([]domain.Category(nil), domain.Categories...), "unknown") {
		items := Generate(category, "batman")
		if len(items) != ItemCount {
			t.Fatalf("%s: expected %d items, got %d", category, ItemCount, len(items))
		}
		seen := map[string]bool{}
		for _, item := range items {
			if seen[item.ID] {
				t.Fatalf("%s: duplicate id %s", category, item.ID)
			}
			seen[item.ID] = true
			if !strings.HasPrefix(item.ID, "mock-"+string(category)+"-") {
				t.Fatalf("%s: unexpected id %s", category, item.ID)
			}
			if item.Title == "" || item.Description == "" || item.ImageURL == "" {
				t.Fatalf("%s: incomplete item %+v", category, item)
			}
			if !strings.Contains(item.Title, "Batman") {
				t.Fatalf("%s: expected query in title, got %q", category, item.Title)
			}
			if item.ExternalData["mock"] != true || item.ExternalData[domain.ExternalProvider] != ProviderName {
				t.Fatalf("%s: missing mock tags %#v", category, item.ExternalData)
			}
			if item.Category != category {
				t.Fatalf("expected category %s, got %s", category, item.Category)
			}
		}
	}
}

func TestGenerateIsStableAcrossQueryForms(t *testing.T) {
	a := Generate(domain.CategoryMusic, "Batman")
	b := Generate(domain.CategoryMusic, "  batman ")
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("expected stable ids, got %s and %s", a[i].ID, b[i].ID)
		}
	}
	c := Generate(domain.CategoryMusic, "superman")
	if a[0].ID == c[0].ID {
		t.Fatalf("expected different ids for different queries")
	}
}

func TestPageReportsFixedTotal(t *testing.T) {
	page := Page(domain.CategoryPoetry, "rain")
	if page.TotalResults != ItemCount || len(page.Results) != ItemCount {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestGenerateConcurrentCallsAgree(t *testing.T) {
	want := Generate(domain.CategoryMovie, "dark knight")
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				got := Generate(domain.CategoryMovie, "dark knight")
				for j := range got {
					if got[j].Title != want[j].Title || got[j].ID != want[j].ID {
						t.Errorf("item %d: got %q/%q, want %q/%q", j, got[j].ID, got[j].Title, want[j].ID, want[j].Title)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	if want[0].Title != "Dark Knight" {
		t.Fatalf("expected title-cased query, got %q", want[0].Title)
	}
}
