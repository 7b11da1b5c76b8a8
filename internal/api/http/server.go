package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"connectlist/contentservice/internal/domain"
	"connectlist/contentservice/internal/search"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type SessionStore interface {
	Open() (*search.Session, error)
	Get(id string) (*search.Session, error)
	Close(id string) error
}

type Catalog interface {
	Categories() []domain.CategoryInfo
	Diagnostics() []domain.ProviderDiagnostics
	Resolve(ctx context.Context, input string) (search.Outcome, error)
}

type AggregatedSearcher interface {
	Search(ctx context.Context, query string) domain.AggregatedResult
}

type ListItemService interface {
	AddContentItem(ctx context.Context, listID string, item domain.ContentItem) (domain.ListItem, error)
}

type Server struct {
	sessions   SessionStore
	catalog    Catalog
	aggregator AggregatedSearcher
	lists      ListItemService
	logger     *slog.Logger
	rateRPS    float64
	rateBurst  int
	trust      proxyTrust
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithListItems(lists ListItemService) ServerOption {
	return func(s *Server) {
		s.lists = lists
	}
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.rateRPS = rps
			s.rateBurst = burst
		}
	}
}

// WithTrustedProxies lets the listed peers report the client address via
// X-Forwarded-For. Without it the TCP peer address identifies the client.
func WithTrustedProxies(prefixes []netip.Prefix) ServerOption {
	return func(s *Server) {
		s.trust = append(proxyTrust(nil), prefixes...)
	}
}

func NewServer(sessions SessionStore, catalog Catalog, aggregator AggregatedSearcher, options ...ServerOption) *Server {
	server := &Server{
		sessions:   sessions,
		catalog:    catalog,
		aggregator: aggregator,
		logger:     slog.Default(),
		rateRPS:    20,
		rateBurst:  40,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /categories", s.handleCategories)
	mux.HandleFunc("GET /providers/health", s.handleProvidersHealth)
	mux.HandleFunc("POST /sessions", s.handleOpenSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleCloseSession)
	mux.HandleFunc("GET /sessions/{id}/search", s.handleSessionSearch)
	mux.HandleFunc("GET /sessions/{id}/discover", s.handleDiscoverInitial)
	mux.HandleFunc("POST /sessions/{id}/discover/more", s.handleDiscoverMore)
	mux.HandleFunc("GET /sessions/{id}/discover/loading", s.handleDiscoverLoading)
	mux.HandleFunc("GET /search/all", s.handleAggregatedSearch)
	mux.HandleFunc("GET /video/resolve", s.handleVideoResolve)
	mux.HandleFunc("POST /lists/{id}/items", s.handleAddListItem)
	traced := otelhttp.NewHandler(observeMiddleware(s.logger, s.trust, mux), "content-service",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, s.trust, rateLimitMiddleware(s.rateRPS, s.rateBurst, s.trust, traced))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.catalog.Categories(),
	})
}

func (s *Server) handleProvidersHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"checkedAt": time.Now().UTC(),
		"items":     s.catalog.Diagnostics(),
	})
}

func (s *Server) handleOpenSession(w http.ResponseWriter, _ *http.Request) {
	session, err := s.sessions.Open()
	if errors.Is(err, search.ErrSessionLimit) {
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusServiceUnavailable, "session_limit", "too many open sessions, retry later")
		return
	}
	if err != nil {
		s.logger.Error("open session failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "open session failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        session.ID(),
		"createdAt": session.CreatedAt().UTC(),
	})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.PathValue("id")); err != nil {
		s.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionSearch(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	category, ok := requireCategory(w, r)
	if !ok {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if utf8.RuneCountInString(query) > search.MaxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("query too long (max %d characters)", search.MaxQueryLength))
		return
	}
	page, err := parsePositiveInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid page")
		return
	}

	result := session.Search(r.Context(), category, query, page)
	writeJSON(w, http.StatusOK, map[string]any{
		"category":     category,
		"query":        query,
		"page":         page,
		"results":      result.Results,
		"totalResults": result.TotalResults,
	})
}

func (s *Server) handleDiscoverInitial(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	category, ok := requireCategory(w, r)
	if !ok {
		return
	}
	items, err := session.DiscoverInitial(r.Context(), category)
	if err != nil {
		s.writeDiscoverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"items":    items,
	})
}

func (s *Server) handleDiscoverMore(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	category, ok := requireCategory(w, r)
	if !ok {
		return
	}
	items, err := session.DiscoverMore(r.Context(), category)
	if err != nil {
		s.writeDiscoverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category":  category,
		"items":     items,
		"feedTotal": len(session.DiscoverItems(category)),
	})
}

func (s *Server) handleDiscoverLoading(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loading": session.DiscoverLoading(),
	})
}

func (s *Server) handleAggregatedSearch(w http.ResponseWriter, r *http.Request) {
	query, ok := requireQuery(w, r, "q")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.aggregator.Search(r.Context(), query))
}

func (s *Server) handleVideoResolve(w http.ResponseWriter, r *http.Request) {
	input, ok := requireQuery(w, r, "input")
	if !ok {
		return
	}
	outcome, err := s.catalog.Resolve(r.Context(), input)
	switch {
	case errors.Is(err, search.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	case errors.Is(err, search.ErrNoResolver):
		writeError(w, http.StatusServiceUnavailable, "unavailable", "video resolution is not configured")
		return
	case err != nil:
		s.logger.Error("video resolve failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "video resolve failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"input":        input,
		"path":         outcome.Path,
		"results":      outcome.Page.Results,
		"totalResults": outcome.Page.TotalResults,
	})
}

func (s *Server) handleAddListItem(w http.ResponseWriter, r *http.Request) {
	if s.lists == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "list storage is not configured")
		return
	}
	var item domain.ContentItem
	if err := decodeJSONBody(r, &item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	item.Category = domain.ParseCategory(string(item.Category))

	saved, err := s.lists.AddContentItem(r.Context(), r.PathValue("id"), item)
	switch {
	case errors.Is(err, search.ErrInvalidListItem):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists", "item is already in this list")
		return
	case err != nil:
		s.logger.Error("add list item failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "add list item failed")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*search.Session, bool) {
	session, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, err)
		return nil, false
	}
	return session, true
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, search.ErrUnknownSession) {
		writeError(w, http.StatusNotFound, "session_not_found", "unknown or expired session")
		return
	}
	s.logger.Error("session lookup failed", slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "internal_error", "session lookup failed")
}

func (s *Server) writeDiscoverError(w http.ResponseWriter, err error) {
	if errors.Is(err, search.ErrLoadInProgress) {
		writeError(w, http.StatusConflict, "load_in_progress", "a discover load for this category is already running")
		return
	}
	s.logger.Error("discover failed", slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "internal_error", "discover failed")
}

func requireCategory(w http.ResponseWriter, r *http.Request) (domain.Category, bool) {
	category := domain.ParseCategory(r.URL.Query().Get("category"))
	if category == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "category is required")
		return "", false
	}
	return category, true
}

func requireQuery(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", key+" is required")
		return "", false
	}
	if utf8.RuneCountInString(value) > search.MaxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("%s too long (max %d characters)", key, search.MaxQueryLength))
		return "", false
	}
	return value, true
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return errors.New("request body is required")
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid value")
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
