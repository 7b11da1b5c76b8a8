package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"connectlist/contentservice/internal/domain"
)

var errFakeUpstream = errors.New("upstream exploded")

type fakeProvider struct {
	name     string
	category domain.Category
	items    int
	total    int
	err      error
	delay    time.Duration
	disabled bool
	release  chan struct{}

	searches  atomic.Int32
	discovers atomic.Int32
	lastPage  atomic.Int32
}

func newFakeProvider(category domain.Category, items int) *fakeProvider {
	return &fakeProvider{name: "fake-" + string(category), category: category, items: items, total: items * 10}
}

func (p *fakeProvider) Name() string              { return p.name }
func (p *fakeProvider) Category() domain.Category { return p.category }
func (p *fakeProvider) Enabled() bool             { return !p.disabled }

func (p *fakeProvider) Search(ctx context.Context, query string, page int) (domain.Page, error) {
	p.searches.Add(1)
	p.lastPage.Store(int32(page))
	return p.respond(ctx, query)
}

func (p *fakeProvider) Discover(ctx context.Context, page int) (domain.Page, error) {
	p.discovers.Add(1)
	p.lastPage.Store(int32(page))
	return p.respond(ctx, "popular")
}

func (p *fakeProvider) respond(ctx context.Context, seed string) (domain.Page, error) {
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return domain.Page{}, ctx.Err()
		}
	}
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return domain.Page{}, ctx.Err()
		}
	}
	if p.err != nil {
		return domain.Page{}, p.err
	}
	results := make([]domain.ContentItem, 0, p.items)
	for i := 0; i < p.items; i++ {
		id := fmt.Sprintf("%s-%d", seed, i)
		results = append(results, domain.NewContentItem(p.category, p.name, id, "Title "+id, "", "", nil))
	}
	return domain.Page{Results: results, TotalResults: p.total}, nil
}

type fakeResolver struct {
	*fakeProvider
	resolved atomic.Int32
}

func (r *fakeResolver) Resolve(ctx context.Context, input string) (domain.Page, error) {
	r.resolved.Add(1)
	return r.respond(ctx, "resolved")
}

type fakeDirectory struct {
	usersErr error
	listsErr error
	calls    atomic.Int32
}

func (d *fakeDirectory) SearchUsers(ctx context.Context, query string, limit int) ([]domain.UserResult, error) {
	d.calls.Add(1)
	if d.usersErr != nil {
		return nil, d.usersErr
	}
	return []domain.UserResult{{ID: "u1", Username: query + "_fan"}}, nil
}

func (d *fakeDirectory) SearchLists(ctx context.Context, query string, limit int) ([]domain.ListResult, error) {
	d.calls.Add(1)
	if d.listsErr != nil {
		return nil, d.listsErr
	}
	return []domain.ListResult{{ID: "l1", Title: "Best of " + query, ItemCount: 3}}, nil
}

// singleAttempt disables retry so call counts stay exact.
func singleAttempt() DispatcherOption {
	return WithRetryConfig(RetryConfig{MaxAttempts: 1})
}
