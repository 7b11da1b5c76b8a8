package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"connectlist/contentservice/internal/domain"
	"connectlist/contentservice/internal/metrics"
)

const (
	providerFailureThreshold = 3
	providerBlockBase        = 2 * time.Minute
	providerBlockMax         = 15 * time.Minute
)

// circuitKey scopes the circuit to one adapter binding. A TMDB movie outage
// must not block TMDB people, so the category is part of the key.
type circuitKey struct {
	provider string
	category domain.Category
}

func newCircuitKey(provider string, category domain.Category) (circuitKey, bool) {
	name := strings.ToLower(strings.TrimSpace(provider))
	return circuitKey{provider: name, category: category}, name != ""
}

// circuit holds one binding's failure streak and counters. Only error text
// produced by the adapters is kept; user queries are never recorded.
type circuit struct {
	streak      int
	openUntil   time.Time
	lastErr     string
	lastOK      time.Time
	lastFailed  time.Time
	lastLatency time.Duration
	lastTimeout bool
	calls       int64
	failures    int64
	timeouts    int64
	fallbacks   int64
}

func (c *circuit) open(now time.Time) bool {
	return !c.openUntil.IsZero() && !now.After(c.openUntil)
}

func (c *circuit) succeed(now time.Time) {
	c.streak = 0
	c.openUntil = time.Time{}
	c.lastErr = ""
	c.lastOK = now
}

// fail records a failure and reports whether the circuit opened.
func (c *circuit) fail(err error, now time.Time) bool {
	c.streak++
	c.failures++
	c.lastFailed = now
	c.lastErr = err.Error()
	if c.streak < providerFailureThreshold {
		return false
	}
	c.openUntil = now.Add(exponentialBlockDuration(c.streak))
	return true
}

func (c *circuit) fill(item *domain.ProviderDiagnostics) {
	item.ConsecutiveFailures = c.streak
	item.BlockedUntil = timePtr(c.openUntil)
	item.LastError = c.lastErr
	item.LastSuccessAt = timePtr(c.lastOK)
	item.LastFailureAt = timePtr(c.lastFailed)
	item.LastLatencyMS = c.lastLatency.Milliseconds()
	item.LastTimeout = c.lastTimeout
	item.TotalRequests = c.calls
	item.TotalFailures = c.failures
	item.TimeoutCount = c.timeouts
	item.FallbackCount = c.fallbacks
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// healthTracker is the circuit registry shared by every session.
type healthTracker struct {
	mu       sync.Mutex
	circuits map[circuitKey]*circuit
}

func newHealthTracker() *healthTracker {
	return &healthTracker{circuits: make(map[circuitKey]*circuit)}
}

func (h *healthTracker) circuit(key circuitKey) *circuit {
	c := h.circuits[key]
	if c == nil {
		c = &circuit{}
		h.circuits[key] = c
	}
	return c
}

// isBlocked reports an open circuit with its expiry and the error that opened it.
func (h *healthTracker) isBlocked(provider string, category domain.Category, now time.Time) (bool, time.Time, string) {
	key, ok := newCircuitKey(provider, category)
	if !ok {
		return false, time.Time{}, ""
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.circuits[key]
	if c == nil || !c.open(now) {
		return false, time.Time{}, ""
	}
	return true, c.openUntil, c.lastErr
}

func (h *healthTracker) record(provider string, category domain.Category, err error, latency time.Duration, now time.Time) {
	key, ok := newCircuitKey(provider, category)
	if !ok {
		return
	}
	label := categoryLabel(category)

	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.circuit(key)
	c.calls++
	if latency > 0 {
		c.lastLatency = latency
		metrics.ProviderRequestDuration.WithLabelValues(key.provider, label).Observe(latency.Seconds())
	}
	c.lastTimeout = isTimeoutLikeError(err)
	if c.lastTimeout {
		c.timeouts++
	}

	switch {
	case err == nil:
		c.succeed(now)
		metrics.ProviderRequestsTotal.WithLabelValues(key.provider, label, "ok").Inc()
		metrics.ProviderAvailable.WithLabelValues(key.provider, label).Set(1)
	case c.fail(err, now):
		metrics.ProviderRequestsTotal.WithLabelValues(key.provider, label, failureStatus(c.lastTimeout)).Inc()
		metrics.ProviderAvailable.WithLabelValues(key.provider, label).Set(0)
	default:
		metrics.ProviderRequestsTotal.WithLabelValues(key.provider, label, failureStatus(c.lastTimeout)).Inc()
	}
}

func (h *healthTracker) recordFallback(provider string, category domain.Category) {
	key, ok := newCircuitKey(provider, category)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.circuit(key).fallbacks++
}

func failureStatus(timeout bool) string {
	if timeout {
		return "timeout"
	}
	return "error"
}

// exponentialBlockDuration is 2m doubled per failure past the threshold, capped at 15m.
func exponentialBlockDuration(consecutiveFailures int) time.Duration {
	d := providerBlockBase
	for i := providerFailureThreshold; i < consecutiveFailures; i++ {
		d *= 2
		if d >= providerBlockMax {
			return providerBlockMax
		}
	}
	return d
}

func isTimeoutLikeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "timeout") || strings.Contains(value, "deadline exceeded")
}

func (h *healthTracker) diagnostics(infos []domain.ProviderInfo) []domain.ProviderDiagnostics {
	if len(infos) == 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	items := make([]domain.ProviderDiagnostics, 0, len(infos))
	for _, info := range infos {
		item := domain.ProviderDiagnostics{
			Name:     info.Name,
			Category: info.Category,
			Enabled:  info.Enabled,
		}
		if key, ok := newCircuitKey(info.Name, info.Category); ok {
			if c := h.circuits[key]; c != nil {
				c.fill(&item)
			}
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].Category < items[j].Category
	})
	return items
}
