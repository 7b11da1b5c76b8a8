package search

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"connectlist/contentservice/internal/domain"
	"connectlist/contentservice/internal/metrics"
	"connectlist/contentservice/internal/providers/mock"
)

const (
	defaultSessionIdleTTL = 30 * time.Minute
	defaultMaxSessions    = 10000
)

// Session is the state of one mounted search screen: its result cache and
// discover feeds. Both die with the session.
type Session struct {
	id         string
	createdAt  time.Time
	lastSeen   atomic.Int64
	dispatcher *Dispatcher
	aggregator *Aggregator
	cache      *ResultCache
	feed       *DiscoverFeed
	inflight   singleflight.Group
	now        func() time.Time
}

func NewSession(id string, dispatcher *Dispatcher, aggregator *Aggregator) *Session {
	return newSession(id, dispatcher, aggregator, nil, time.Now)
}

func newSession(id string, dispatcher *Dispatcher, aggregator *Aggregator, rng *rand.Rand, now func() time.Time) *Session {
	if aggregator == nil {
		aggregator = NewAggregator(dispatcher)
	}
	s := &Session{
		id:         id,
		createdAt:  now(),
		dispatcher: dispatcher,
		aggregator: aggregator,
		cache:      NewResultCache(),
		feed:       NewDiscoverFeed(dispatcher, rng),
		now:        now,
	}
	s.touch()
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) touch() {
	s.lastSeen.Store(s.now().UnixNano())
}

// Search never fails. Live pages are cached per normalized query, and
// identical lookups that overlap share one provider call. Fallback and mock
// pages are not cached so the next lookup retries the provider.
func (s *Session) Search(ctx context.Context, category domain.Category, query string, page int) domain.Page {
	s.touch()
	page = max(page, 1)
	if domain.NormalizeQuery(query) == "" {
		return domain.EmptyPage()
	}
	if cached, ok := s.cache.Get(category, query, page); ok {
		return cached
	}

	// The shared call outlives any single caller; the dispatcher's provider
	// timeout still bounds it.
	flightCtx := context.WithoutCancel(ctx)
	key := CacheKey(category, query, page)
	results := s.inflight.DoChan(key, func() (any, error) {
		outcome := s.dispatcher.Search(flightCtx, category, query, page)
		if outcome.Path == PathLive {
			s.cache.Put(category, query, page, outcome.Page)
		}
		return outcome.Page, nil
	})
	select {
	case res := <-results:
		return res.Val.(domain.Page).Clone()
	case <-ctx.Done():
		return mock.Page(category, query)
	}
}

func (s *Session) DiscoverInitial(ctx context.Context, category domain.Category) ([]domain.ContentItem, error) {
	s.touch()
	return s.feed.Initial(ctx, category)
}

func (s *Session) DiscoverMore(ctx context.Context, category domain.Category) ([]domain.ContentItem, error) {
	s.touch()
	return s.feed.More(ctx, category)
}

func (s *Session) DiscoverItems(category domain.Category) []domain.ContentItem {
	s.touch()
	return s.feed.Items(category)
}

func (s *Session) DiscoverLoading() map[domain.Category]bool {
	return s.feed.Loading()
}

func (s *Session) AggregatedSearch(ctx context.Context, query string) domain.AggregatedResult {
	s.touch()
	return s.aggregator.Search(ctx, query)
}

// SessionManager keeps the open sessions and closes those left idle.
type SessionManager struct {
	dispatcher *Dispatcher
	aggregator *Aggregator
	idleTTL    time.Duration
	maxOpen    int
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string

	mu       sync.Mutex
	sessions map[string]*Session
}

type SessionOption func(*SessionManager)

func WithIdleTTL(ttl time.Duration) SessionOption {
	return func(m *SessionManager) {
		if ttl > 0 {
			m.idleTTL = ttl
		}
	}
}

// WithMaxSessions caps open sessions; Open fails with ErrSessionLimit at the cap.
func WithMaxSessions(limit int) SessionOption {
	return func(m *SessionManager) {
		if limit > 0 {
			m.maxOpen = limit
		}
	}
}

func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func NewSessionManager(dispatcher *Dispatcher, aggregator *Aggregator, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		dispatcher: dispatcher,
		aggregator: aggregator,
		idleTTL:    defaultSessionIdleTTL,
		maxOpen:    defaultMaxSessions,
		logger:     slog.Default(),
		now:        time.Now,
		newID:      uuid.NewString,
		sessions:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *SessionManager) Dispatcher() *Dispatcher {
	return m.dispatcher
}

func (m *SessionManager) Aggregator() *Aggregator {
	return m.aggregator
}

func (m *SessionManager) Open() (*Session, error) {
	if m.Len() >= m.maxOpen {
		m.Sweep()
	}
	session := newSession(m.newID(), m.dispatcher, m.aggregator, nil, m.now)

	m.mu.Lock()
	if len(m.sessions) >= m.maxOpen {
		m.mu.Unlock()
		return nil, ErrSessionLimit
	}
	m.sessions[session.id] = session
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
	return session, nil
}

func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrUnknownSession
	}
	return session, nil
}

// Close drops the session and everything it cached.
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrUnknownSession
	}
	session.cache.Flush()
	metrics.ActiveSessions.Set(float64(count))
	return nil
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle longer than the idle TTL and returns how many it closed.
func (m *SessionManager) Sweep() int {
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	var expired []*Session
	for id, session := range m.sessions {
		if session.LastSeen().Before(cutoff) {
			expired = append(expired, session)
			delete(m.sessions, id)
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	for _, session := range expired {
		session.cache.Flush()
	}
	metrics.ActiveSessions.Set(float64(count))
	if len(expired) > 0 {
		m.logger.Info("closed idle sessions", slog.Int("closed", len(expired)), slog.Int("open", count))
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is done.
func (m *SessionManager) Run(ctx context.Context) {
	interval := m.idleTTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
