package search

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"connectlist/contentservice/internal/domain"
	"connectlist/contentservice/internal/metrics"
)

const (
	InitialMaxPage = 5
	InitialKeep    = 9
	MoreMaxPage    = 10
	MoreKeep       = 6
)

type discoverSource interface {
	Discover(ctx context.Context, category domain.Category, page int) Outcome
}

type feedState struct {
	items  []domain.ContentItem
	seen   map[string]struct{}
	loaded bool
}

// DiscoverFeed is the browse feed of one session: per category, an ordered,
// duplicate-free list of items grown a random page at a time.
type DiscoverFeed struct {
	source discoverSource

	mu      sync.Mutex
	rng     *rand.Rand
	feeds   map[domain.Category]*feedState
	loading map[domain.Category]bool
}

func NewDiscoverFeed(source discoverSource, rng *rand.Rand) *DiscoverFeed {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>17|1))
	}
	return &DiscoverFeed{
		source:  source,
		rng:     rng,
		feeds:   make(map[domain.Category]*feedState),
		loading: make(map[domain.Category]bool),
	}
}

// Initial loads the first batch for category. Once a category has loaded it
// returns the current feed without fetching again.
func (f *DiscoverFeed) Initial(ctx context.Context, category domain.Category) ([]domain.ContentItem, error) {
	f.mu.Lock()
	if feed := f.feeds[category]; feed != nil && feed.loaded {
		items := domain.CloneItems(feed.items)
		f.mu.Unlock()
		return items, nil
	}
	f.mu.Unlock()

	if _, err := f.load(ctx, category, InitialMaxPage, InitialKeep); err != nil {
		return nil, err
	}
	return f.Items(category), nil
}

// More appends up to MoreKeep unseen items from a random page and returns
// only the new ones. A page with nothing new appends nothing.
func (f *DiscoverFeed) More(ctx context.Context, category domain.Category) ([]domain.ContentItem, error) {
	return f.load(ctx, category, MoreMaxPage, MoreKeep)
}

func (f *DiscoverFeed) load(ctx context.Context, category domain.Category, maxPage, keep int) ([]domain.ContentItem, error) {
	f.mu.Lock()
	if f.loading[category] {
		f.mu.Unlock()
		return nil, ErrLoadInProgress
	}
	f.loading[category] = true
	page := f.rng.IntN(maxPage) + 1
	f.mu.Unlock()

	outcome := f.source.Discover(ctx, category, page)

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.loading, category)

	candidates := domain.CloneItems(outcome.Page.Results)
	f.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	feed := f.feeds[category]
	if feed == nil {
		feed = &feedState{seen: make(map[string]struct{})}
		f.feeds[category] = feed
	}
	added := make([]domain.ContentItem, 0, keep)
	for _, item := range candidates {
		if len(added) == keep {
			break
		}
		if _, dup := feed.seen[item.Key()]; dup {
			continue
		}
		feed.seen[item.Key()] = struct{}{}
		added = append(added, item)
	}
	feed.items = append(feed.items, added...)
	feed.loaded = true
	if len(added) > 0 {
		metrics.DiscoverItemsAppended.WithLabelValues(categoryLabel(category)).Add(float64(len(added)))
	}
	return domain.CloneItems(added), nil
}

// Items returns the full ordered feed for category.
func (f *DiscoverFeed) Items(category domain.Category) []domain.ContentItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	feed := f.feeds[category]
	if feed == nil || len(feed.items) == 0 {
		return []domain.ContentItem{}
	}
	return domain.CloneItems(feed.items)
}

// Loading returns the categories with a load in flight.
func (f *DiscoverFeed) Loading() map[domain.Category]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := make(map[domain.Category]bool, len(f.loading))
	for category, loading := range f.loading {
		snapshot[category] = loading
	}
	return snapshot
}
