// Package mock produces deterministic placeholder content for categories
// without a live provider and for live providers that failed.
package mock

import (
	"fmt"
	"hash/fnv"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"connectlist/contentservice/internal/domain"
)

const (
	ProviderName = "mock"
	ItemCount    = 5
)

type template struct {
	title       string
	description string
}

var templates = map[domain.Category][ItemCount]template{
	domain.CategoryMovie: {
		{"%s", "A feature film about %s."},
		{"%s Returns", "The long-awaited sequel to %s."},
		{"The Legend of %s", "An epic retelling of %s."},
		{"%s: Origins", "How %s began."},
		{"Beyond %s", "A drama set in the world of %s."},
	},
	domain.CategoryTV: {
		{"%s", "A television series about %s."},
		{"%s: The Series", "Season one of %s."},
		{"Chronicles of %s", "An anthology inspired by %s."},
		{"%s Tonight", "A late-night show on %s."},
		{"Inside %s", "A documentary series about %s."},
	},
	domain.CategoryPerson: {
		{"%s", "A public figure known for %s."},
		{"%s Jr.", "Actor associated with %s."},
		{"Dr. %s", "Writer and director of %s."},
		{"%s Smith", "Producer connected to %s."},
		{"Sir %s", "Composer linked to %s."},
	},
	domain.CategoryGame: {
		{"%s", "A video game about %s."},
		{"%s Tactics", "A strategy game set around %s."},
		{"%s Online", "A multiplayer adventure in %s."},
		{"Super %s", "A platformer starring %s."},
		{"%s Racing", "High-speed racing through %s."},
	},
	domain.CategoryBook: {
		{"%s", "A novel about %s."},
		{"The Book of %s", "A collection of essays on %s."},
		{"%s: A History", "A non-fiction history of %s."},
		{"Letters on %s", "Correspondence exploring %s."},
		{"The %s Handbook", "A practical guide to %s."},
	},
	domain.CategoryVideo: {
		{"%s", "A video about %s."},
		{"%s Explained", "A short explainer on %s."},
		{"Best of %s", "Highlights featuring %s."},
		{"%s Live", "A live recording of %s."},
		{"%s in 10 Minutes", "A quick tour of %s."},
	},
	domain.CategoryPlace: {
		{"%s", "A place called %s."},
		{"%s Square", "A public square named after %s."},
		{"%s Museum", "A museum dedicated to %s."},
		{"%s Park", "A park near %s."},
		{"Old %s", "The historic quarter of %s."},
	},
	domain.CategoryMusic: {
		{"%s", "A song titled %s."},
		{"%s (Acoustic)", "An acoustic take on %s."},
		{"Songs of %s", "An album inspired by %s."},
		{"%s Remix", "A dance remix of %s."},
		{"%s Live Sessions", "A live album around %s."},
	},
	domain.CategoryPoetry: {
		{"%s", "A poem about %s."},
		{"Ode to %s", "An ode celebrating %s."},
		{"%s at Dusk", "A short lyric on %s."},
		{"Sonnets for %s", "A sonnet sequence on %s."},
		{"Elegy for %s", "An elegy remembering %s."},
	},
}

var genericTemplates = [ItemCount]template{
	{"%s", "An item about %s."},
	{"%s II", "A follow-up to %s."},
	{"The %s Collection", "A collection related to %s."},
	{"%s Essentials", "The essentials of %s."},
	{"All About %s", "Everything about %s."},
}

// Generate returns exactly ItemCount items derived from the query. The same
// category and normalized query always yield the same ids.
func Generate(category domain.Category, query string) []domain.ContentItem {
	normalized := domain.NormalizeQuery(query)
	display := normalized
	if display == "" {
		display = "untitled"
	}
	// A Caser carries state, so each call builds its own.
	display = cases.Title(language.Und).String(display)

	set, ok := templates[category]
	if !ok {
		set = genericTemplates
	}

	hash := queryHash(normalized)
	items := make([]domain.ContentItem, 0, ItemCount)
	for i, tpl := range set {
		id := fmt.Sprintf("mock-%s-%s-%d", category, hash, i)
		items = append(items, domain.NewContentItem(
			category,
			ProviderName,
			id,
			fmt.Sprintf(tpl.title, display),
			fmt.Sprintf(tpl.description, display),
			"",
			map[string]any{"mock": true},
		))
	}
	return items
}

// Page wraps Generate with the fixed total the fallback path reports.
func Page(category domain.Category, query string) domain.Page {
	return domain.Page{Results: Generate(category, query), TotalResults: ItemCount}
}

func queryHash(normalized string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalized))
	return strconv.FormatUint(uint64(h.Sum32()), 16)
}
