package apihttp

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"connectlist/contentservice/internal/metrics"
)

const (
	requestIDHeader   = "X-Request-ID"
	maxRequestIDLen   = 64
	maxLoggedAgentLen = 120
)

// statusRecorder remembers the first status written and the body size.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

func (rec *statusRecorder) statusCode() int {
	if rec.status == 0 {
		return http.StatusOK
	}
	return rec.status
}

func inboundRequestID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(requestIDHeader))
	if id == "" || len(id) > maxRequestIDLen {
		return uuid.NewString()
	}
	return id
}

// observeMiddleware tags the response with a request id, then records one
// metric sample and one access log line per request. Search text is never
// logged; only the route label and the category are.
func observeMiddleware(logger *slog.Logger, trust proxyTrust, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := inboundRequestID(r)
		w.Header().Set(requestIDHeader, requestID)
		rec := &statusRecorder{ResponseWriter: w}
		began := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(began)

		route := normalizeRoute(r.URL.Path)
		status := rec.statusCode()
		if route != "/metrics" {
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		}

		attrs := []slog.Attr{
			slog.String("requestId", requestID),
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Int("bytes", rec.bytes),
			slog.Int64("durationMs", elapsed.Milliseconds()),
			slog.String("clientIP", trust.clientIP(r)),
		}
		if category := r.URL.Query().Get("category"); category != "" && len(category) <= 32 {
			attrs = append(attrs, slog.String("category", category))
		}
		if agent := r.UserAgent(); agent != "" {
			if len(agent) > maxLoggedAgentLen {
				agent = agent[:maxLoggedAgentLen]
			}
			attrs = append(attrs, slog.String("userAgent", agent))
		}
		logger.LogAttrs(r.Context(), requestLogLevel(route, status), "http request", attrs...)
	})
}

func recoveryMiddleware(logger *slog.Logger, trust proxyTrust, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			logger.LogAttrs(r.Context(), slog.LevelError, "handler panic",
				slog.Any("panic", recovered),
				slog.String("requestId", w.Header().Get(requestIDHeader)),
				slog.String("route", normalizeRoute(r.URL.Path)),
				slog.String("clientIP", trust.clientIP(r)),
				slog.String("stack", string(debug.Stack())),
			)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

// normalizeRoute collapses path parameters so metric labels stay bounded.
func normalizeRoute(path string) string {
	switch path {
	case "/health", "/metrics", "/categories", "/providers/health", "/sessions", "/search/all", "/video/resolve":
		return path
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "sessions":
		return "/sessions/{id}"
	case len(parts) >= 3 && parts[0] == "sessions":
		route := "/sessions/{id}/" + strings.Join(parts[2:], "/")
		switch route {
		case "/sessions/{id}/search", "/sessions/{id}/discover", "/sessions/{id}/discover/more", "/sessions/{id}/discover/loading":
			return route
		}
	case len(parts) == 3 && parts[0] == "lists" && parts[2] == "items":
		return "/lists/{id}/items"
	}
	return "/other"
}

// requestLogLevel keeps polling and scrape traffic at debug.
func requestLogLevel(route string, status int) slog.Level {
	if status >= http.StatusInternalServerError {
		return slog.LevelError
	}
	if status >= http.StatusBadRequest {
		return slog.LevelWarn
	}
	switch route {
	case "/health", "/metrics", "/sessions/{id}/discover/loading":
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// proxyTrust lists the peers allowed to report the client address through
// forwarding headers. With no entries the TCP peer is always the client.
type proxyTrust []netip.Prefix

// ParseTrustedProxies accepts IPs and CIDRs.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func (t proxyTrust) trusts(raw string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range t {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP walks X-Forwarded-For from the right, skipping trusted hops, but
// only when the TCP peer itself is a trusted proxy.
func (t proxyTrust) clientIP(r *http.Request) string {
	peer := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(peer); err == nil && host != "" {
		peer = host
	}
	if len(t) == 0 || !t.trusts(peer) {
		return peer
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !t.trusts(hop) {
				return hop
			}
		}
	}
	if xRealIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); xRealIP != "" {
		return xRealIP
	}
	return peer
}

// clientLimiters hands out one token bucket per client. Buckets idle for
// ten minutes are dropped.
type clientLimiters struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets *gocache.Cache
}

func newClientLimiters(rps float64, burst int) *clientLimiters {
	return &clientLimiters{
		limit:   rate.Limit(rps),
		burst:   burst,
		buckets: gocache.New(10*time.Minute, 5*time.Minute),
	}
}

func (c *clientLimiters) allow(client string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	var bucket *rate.Limiter
	if cached, ok := c.buckets.Get(client); ok {
		bucket = cached.(*rate.Limiter)
	} else {
		bucket = rate.NewLimiter(c.limit, c.burst)
	}
	c.buckets.SetDefault(client, bucket)
	return bucket.Allow()
}

// rateLimitMiddleware answers 429 once a client spends its bucket. Health
// checks and scrapes are exempt.
func rateLimitMiddleware(rps float64, burst int, trust proxyTrust, next http.Handler) http.Handler {
	clients := newClientLimiters(rps, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health", "/metrics":
			next.ServeHTTP(w, r)
			return
		}
		if !clients.allow(trust.clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
