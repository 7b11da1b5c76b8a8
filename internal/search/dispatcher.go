package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectlist/contentservice/internal/domain"
	"connectlist/contentservice/internal/metrics"
	"connectlist/contentservice/internal/providers/mock"
)

const defaultProviderTimeout = 12 * time.Second

// discoverFallbackQuery seeds mock content when a discover call falls back.
const discoverFallbackQuery = "discover"

// Path records how a dispatch was served.
type Path string

const (
	PathLive     Path = "live"
	PathFallback Path = "fallback"
	PathMock     Path = "mock"
	PathEmpty    Path = "empty"
)

// Outcome is a dispatch result. Err carries the provider failure that caused
// a fallback; it is informational and never means the page is unusable.
type Outcome struct {
	Page     domain.Page
	Path     Path
	Provider string
	Err      error
	Elapsed  time.Duration
}

// Dispatcher routes category lookups to the registered provider and owns the
// fallback policy: any provider failure is replaced by mock content.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
	retry    RetryConfig
	health   *healthTracker
	logger   *slog.Logger
	now      func() time.Time
}

type DispatcherOption func(*Dispatcher)

func WithProviderTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func WithRetryConfig(cfg RetryConfig) DispatcherOption {
	return func(d *Dispatcher) {
		d.retry = cfg
	}
}

func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func withClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	if registry == nil {
		registry = NewRegistry()
	}
	d := &Dispatcher{
		registry: registry,
		timeout:  defaultProviderTimeout,
		retry:    DefaultRetryConfig(),
		health:   newHealthTracker(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Search never fails. An empty query yields an empty page without any call.
func (d *Dispatcher) Search(ctx context.Context, category domain.Category, query string, page int) Outcome {
	query = strings.TrimSpace(query)
	if query == "" {
		d.count(category, "search", PathEmpty)
		return Outcome{Page: domain.EmptyPage(), Path: PathEmpty}
	}
	page = max(page, 1)
	return d.dispatch(ctx, category, "search", query, func(ctx context.Context, provider Provider) (domain.Page, error) {
		return provider.Search(ctx, query, page)
	})
}

// Discover never fails; a failed or missing provider yields mock content.
func (d *Dispatcher) Discover(ctx context.Context, category domain.Category, page int) Outcome {
	page = max(page, 1)
	return d.dispatch(ctx, category, "discover", discoverFallbackQuery, func(ctx context.Context, provider Provider) (domain.Page, error) {
		return provider.Discover(ctx, page)
	})
}

// Live performs a provider search without fallback. Aggregated search uses it
// so that a failed branch shows as an empty tab rather than placeholders.
func (d *Dispatcher) Live(ctx context.Context, category domain.Category, query string, page int) (domain.Page, error) {
	provider, ok := d.registry.Lookup(category)
	if !ok {
		return domain.Page{}, fmt.Errorf("no provider for category %q", category)
	}
	query = strings.TrimSpace(query)
	page = max(page, 1)
	return d.call(ctx, provider, func(ctx context.Context) (domain.Page, error) {
		return provider.Search(ctx, query, page)
	})
}

// Resolve hands pasted input to the link-aware provider, falling back to mock
// video items like any other search.
func (d *Dispatcher) Resolve(ctx context.Context, input string) (Outcome, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Outcome{}, ErrInvalidQuery
	}
	provider, resolver, ok := d.registry.Resolver()
	if !ok {
		return Outcome{}, ErrNoResolver
	}
	category := provider.Category()
	startedAt := d.now()
	page, err := d.call(ctx, provider, func(ctx context.Context) (domain.Page, error) {
		return resolver.Resolve(ctx, input)
	})
	if err != nil {
		return d.fallback(category, "resolve", provider.Name(), input, err, startedAt), nil
	}
	d.count(category, "resolve", PathLive)
	return Outcome{Page: page, Path: PathLive, Provider: provider.Name(), Elapsed: d.now().Sub(startedAt)}, nil
}

func (d *Dispatcher) Categories() []domain.CategoryInfo {
	return d.registry.Categories()
}

func (d *Dispatcher) Diagnostics() []domain.ProviderDiagnostics {
	return d.health.diagnostics(d.registry.Providers())
}

func (d *Dispatcher) dispatch(ctx context.Context, category domain.Category, operation, query string, fn func(context.Context, Provider) (domain.Page, error)) Outcome {
	startedAt := d.now()
	provider, ok := d.registry.Lookup(category)
	if !ok {
		d.count(category, operation, PathMock)
		d.logger.Debug("no provider for category, serving mock content",
			slog.String("category", string(category)),
			slog.String("operation", operation),
		)
		return Outcome{Page: mock.Page(category, query), Path: PathMock, Provider: mock.ProviderName}
	}

	page, err := d.call(ctx, provider, func(ctx context.Context) (domain.Page, error) {
		return fn(ctx, provider)
	})
	if err != nil {
		return d.fallback(category, operation, provider.Name(), query, err, startedAt)
	}

	d.count(category, operation, PathLive)
	return Outcome{Page: page, Path: PathLive, Provider: provider.Name(), Elapsed: d.now().Sub(startedAt)}
}

func (d *Dispatcher) fallback(category domain.Category, operation, providerName, query string, err error, startedAt time.Time) Outcome {
	d.health.recordFallback(providerName, category)
	d.count(category, operation, PathFallback)
	d.logger.Warn("provider failed, serving fallback content",
		slog.String("provider", providerName),
		slog.String("category", string(category)),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
	return Outcome{
		Page:     mock.Page(category, query),
		Path:     PathFallback,
		Provider: providerName,
		Err:      err,
		Elapsed:  d.now().Sub(startedAt),
	}
}

// call runs one provider operation under the health circuit, the per-call
// timeout and transient-error retry.
func (d *Dispatcher) call(ctx context.Context, provider Provider, fn func(context.Context) (domain.Page, error)) (domain.Page, error) {
	name := provider.Name()
	if !isEnabled(provider) {
		return domain.Page{}, domain.NewProviderError(name, provider.Category(), domain.ErrProviderDisabled)
	}
	now := d.now()
	if blocked, until, lastErr := d.health.isBlocked(name, provider.Category(), now); blocked {
		return domain.Page{}, domain.NewProviderError(name, provider.Category(),
			fmt.Errorf("%w until %s: %s", errProviderBlocked, until.UTC().Format(time.RFC3339), lastErr))
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var page domain.Page
	err := RetryWithBackoff(callCtx, d.retry, func() error {
		var callErr error
		page, callErr = fn(callCtx)
		return callErr
	})
	if err == nil && callCtx.Err() != nil {
		err = callCtx.Err()
	}
	if err != nil {
		err = domain.NewProviderError(name, provider.Category(), err)
	}
	d.health.record(name, provider.Category(), err, d.now().Sub(now), d.now())
	if err != nil {
		return domain.Page{}, err
	}
	if page.Results == nil {
		page.Results = []domain.ContentItem{}
	}
	return page, nil
}

func (d *Dispatcher) count(category domain.Category, operation string, path Path) {
	metrics.DispatchTotal.WithLabelValues(categoryLabel(category), operation, string(path)).Inc()
}

// categoryLabel keeps metric label cardinality bounded for free-form categories.
func categoryLabel(category domain.Category) string {
	if !category.Known() {
		return "other"
	}
	return string(category)
}
