package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"connectlist/contentservice/internal/domain"
	"connectlist/contentservice/internal/metrics"
)

const (
	defaultDirectoryLimit = 20
	defaultBranchTimeout  = 12 * time.Second
)

// Directory is the backend's user and list search.
type Directory interface {
	SearchUsers(ctx context.Context, query string, limit int) ([]domain.UserResult, error)
	SearchLists(ctx context.Context, query string, limit int) ([]domain.ListResult, error)
}

type liveSearcher interface {
	Live(ctx context.Context, category domain.Category, query string, page int) (domain.Page, error)
}

// DefaultAggregatedCategories are the content tabs of the search screen.
var DefaultAggregatedCategories = []domain.Category{
	domain.CategoryMovie,
	domain.CategoryTV,
	domain.CategoryPerson,
	domain.CategoryGame,
	domain.CategoryBook,
	domain.CategoryVideo,
}

// Aggregator fans one query out to every content tab plus the backend user
// and list search. Branches are isolated: a failed branch is an empty tab.
type Aggregator struct {
	searcher   liveSearcher
	directory  Directory
	categories []domain.Category
	timeout    time.Duration
	limit      int
	logger     *slog.Logger
}

type AggregatorOption func(*Aggregator)

func WithDirectory(directory Directory) AggregatorOption {
	return func(a *Aggregator) {
		a.directory = directory
	}
}

// WithPlaces adds the places tab to the fan-out.
func WithPlaces(enabled bool) AggregatorOption {
	return func(a *Aggregator) {
		if enabled {
			a.categories = append(a.categories, domain.CategoryPlace)
		}
	}
}

func WithBranchTimeout(timeout time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

func WithAggregatorLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewAggregator(searcher liveSearcher, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		searcher:   searcher,
		categories: append([]domain.Category(nil), DefaultAggregatedCategories...),
		timeout:    defaultBranchTimeout,
		limit:      defaultDirectoryLimit,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tabs lists the tabs every result carries, in display order.
func (a *Aggregator) Tabs() []domain.SearchTab {
	tabs := []domain.SearchTab{domain.TabUsers, domain.TabLists}
	for _, category := range a.categories {
		if tab, ok := domain.TabForCategory(category); ok {
			tabs = append(tabs, tab)
		}
	}
	return tabs
}

// Search waits for every branch. It never fails; an empty query returns an
// empty result without touching any provider.
func (a *Aggregator) Search(ctx context.Context, query string) domain.AggregatedResult {
	startedAt := time.Now()
	query = strings.TrimSpace(query)
	result := domain.AggregatedResult{
		Query:   query,
		Users:   []domain.UserResult{},
		Lists:   []domain.ListResult{},
		Content: make(map[domain.SearchTab][]domain.ContentItem, len(a.categories)),
	}
	for _, category := range a.categories {
		if tab, ok := domain.TabForCategory(category); ok {
			result.Content[tab] = []domain.ContentItem{}
		}
	}
	if query == "" {
		return result
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	fail := func(tab domain.SearchTab, err error) {
		metrics.AggregatedBranchFailures.WithLabelValues(string(tab)).Inc()
		a.logger.Warn("aggregated search branch failed",
			slog.String("tab", string(tab)),
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		mu.Lock()
		result.Failed = append(result.Failed, tab)
		mu.Unlock()
	}

	for _, category := range a.categories {
		tab, ok := domain.TabForCategory(category)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(category domain.Category, tab domain.SearchTab) {
			defer wg.Done()
			branchCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			page, err := a.searcher.Live(branchCtx, category, query, 1)
			if err != nil {
				fail(tab, err)
				return
			}
			items := page.Results
			if items == nil {
				items = []domain.ContentItem{}
			}
			mu.Lock()
			result.Content[tab] = items
			mu.Unlock()
		}(category, tab)
	}

	if a.directory != nil {
		wg.Add(2)
		go func() {
			defer wg.Done()
			branchCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			users, err := a.directory.SearchUsers(branchCtx, query, a.limit)
			if err != nil {
				fail(domain.TabUsers, err)
				return
			}
			if users == nil {
				users = []domain.UserResult{}
			}
			mu.Lock()
			result.Users = users
			mu.Unlock()
		}()
		go func() {
			defer wg.Done()
			branchCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			lists, err := a.directory.SearchLists(branchCtx, query, a.limit)
			if err != nil {
				fail(domain.TabLists, err)
				return
			}
			if lists == nil {
				lists = []domain.ListResult{}
			}
			mu.Lock()
			result.Lists = lists
			mu.Unlock()
		}()
	}

	wg.Wait()
	sort.Slice(result.Failed, func(i, j int) bool {
		return result.Failed[i] < result.Failed[j]
	})
	result.ElapsedMS = time.Since(startedAt).Milliseconds()
	return result
}
