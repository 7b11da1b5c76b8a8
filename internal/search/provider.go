package search

import (
	"context"
	"errors"
	"sort"

	"connectlist/contentservice/internal/domain"
)

var (
	ErrInvalidQuery    = errors.New("query is required")
	ErrQueryTooLong    = errors.New("query is too long")
	ErrUnknownSession  = errors.New("unknown session")
	ErrSessionLimit    = errors.New("open session limit reached")
	ErrLoadInProgress  = errors.New("discover load already in progress")
	ErrNoResolver      = errors.New("no url resolver configured")
	errProviderBlocked = errors.New("provider temporarily unhealthy")
)

// MaxQueryLength bounds queries accepted from the HTTP surface.
const MaxQueryLength = 200

// Provider is one category adapter. Search and Discover each map to a single
// upstream request and return normalized items or an error, never partial data.
type Provider interface {
	Name() string
	Category() domain.Category
	Search(ctx context.Context, query string, page int) (domain.Page, error)
	Discover(ctx context.Context, page int) (domain.Page, error)
}

// Toggle is implemented by providers that need credentials to run.
type Toggle interface {
	Enabled() bool
}

// URLResolver turns pasted input (a link or free text) into items.
type URLResolver interface {
	Resolve(ctx context.Context, input string) (domain.Page, error)
}

// Registry maps each category to at most one provider.
type Registry struct {
	providers map[domain.Category]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	registry := &Registry{providers: make(map[domain.Category]Provider, len(providers))}
	for _, provider := range providers {
		if provider == nil {
			continue
		}
		category := provider.Category()
		if category == "" {
			continue
		}
		registry.providers[category] = provider
	}
	return registry
}

func (r *Registry) Lookup(category domain.Category) (Provider, bool) {
	if r == nil {
		return nil, false
	}
	provider, ok := r.providers[category]
	return provider, ok
}

// Resolver returns the first registered provider able to resolve links.
func (r *Registry) Resolver() (Provider, URLResolver, bool) {
	if r == nil {
		return nil, nil, false
	}
	if provider, ok := r.providers[domain.CategoryVideo]; ok {
		if resolver, ok := provider.(URLResolver); ok {
			return provider, resolver, true
		}
	}
	return nil, nil, false
}

func (r *Registry) Providers() []domain.ProviderInfo {
	if r == nil || len(r.providers) == 0 {
		return nil
	}
	items := make([]domain.ProviderInfo, 0, len(r.providers))
	for category, provider := range r.providers {
		items = append(items, domain.ProviderInfo{
			Name:     provider.Name(),
			Category: category,
			Enabled:  isEnabled(provider),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}

// Categories lists every known category in display order and whether an
// enabled live provider backs it.
func (r *Registry) Categories() []domain.CategoryInfo {
	items := make([]domain.CategoryInfo, 0, len(domain.Categories))
	for _, category := range domain.Categories {
		provider, ok := r.Lookup(category)
		items = append(items, domain.CategoryInfo{
			Name:  category,
			Label: category.Label(),
			Live:  ok && isEnabled(provider),
		})
	}
	return items
}

func isEnabled(provider Provider) bool {
	if toggle, ok := provider.(Toggle); ok {
		return toggle.Enabled()
	}
	return true
}
