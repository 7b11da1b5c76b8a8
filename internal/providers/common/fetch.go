package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"connectlist/contentservice/internal/domain"
	"connectlist/contentservice/internal/metrics"
)

const (
	defaultUserAgent = "connectlist-content/1.0"
	maxErrorBody     = 1024
	maxPayloadBytes  = 4 * 1024 * 1024
)

// ResponseCache stores raw provider payloads keyed by request URL (secrets excluded).
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte)
}

type FetcherConfig struct {
	Provider  string
	UserAgent string
	Client    *http.Client
	Cache     ResponseCache
	Headers   http.Header
	// RatePerSecond <= 0 disables the outbound limiter.
	RatePerSecond float64
	Burst         int
}

// Fetcher performs the single authenticated GET each adapter call maps to.
type Fetcher struct {
	provider  string
	client    *http.Client
	userAgent string
	cache     ResponseCache
	headers   http.Header
	limiter   *rate.Limiter
}

func NewFetcher(cfg FetcherConfig) *Fetcher {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return &Fetcher{
		provider:  cfg.Provider,
		client:    client,
		userAgent: userAgent,
		cache:     cfg.Cache,
		headers:   cfg.Headers.Clone(),
		limiter:   limiter,
	}
}

func (f *Fetcher) Provider() string {
	return f.provider
}

// GetJSON issues GET endpoint?params&secrets and decodes the body into dest.
// Secrets are sent but never become part of the cache key. Any transport
// error, non-2xx status or undecodable body is returned as a *domain.ProviderError.
func (f *Fetcher) GetJSON(ctx context.Context, category domain.Category, endpoint string, params, secrets url.Values, dest any) error {
	uri, err := url.Parse(endpoint)
	if err != nil {
		return f.fail(category, 0, fmt.Errorf("invalid endpoint: %w", err))
	}
	query := uri.Query()
	for key, values := range params {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	uri.RawQuery = query.Encode()
	publicURL := uri.String()
	cacheKey := f.provider + ":" + publicURL

	if f.cache != nil {
		if payload, ok := f.cache.Get(ctx, cacheKey); ok {
			if err := json.Unmarshal(payload, dest); err == nil {
				metrics.ProviderCacheHitsTotal.WithLabelValues(f.provider).Inc()
				return nil
			}
		}
	}

	for key, values := range secrets {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	uri.RawQuery = query.Encode()

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return f.fail(category, 0, fmt.Errorf("rate limit wait: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return f.fail(category, 0, redactSecrets(err, publicURL, secrets))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")
	for key, values := range f.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return f.fail(category, 0, redactSecrets(err, publicURL, secrets))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return f.fail(category, resp.StatusCode, redactSecrets(errors.New(strings.TrimSpace(string(body))), publicURL, secrets))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return f.fail(category, resp.StatusCode, err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return f.fail(category, resp.StatusCode, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err))
	}

	if f.cache != nil {
		f.cache.Set(ctx, cacheKey, payload)
	}
	return nil
}

func (f *Fetcher) fail(category domain.Category, status int, err error) error {
	return &domain.ProviderError{
		Provider:   f.provider,
		Category:   category,
		StatusCode: status,
		Err:        err,
	}
}

// redactSecrets keeps credentials out of error text, which ends up in logs
// and provider diagnostics. Transport errors embed the request URL.
func redactSecrets(err error, publicURL string, secrets url.Values) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = publicURL
	}
	msg := err.Error()
	leaked := false
	for _, values := range secrets {
		for _, value := range values {
			if value == "" || !strings.Contains(msg, value) {
				continue
			}
			msg = strings.ReplaceAll(msg, value, "REDACTED")
			leaked = true
		}
	}
	if !leaked {
		return err
	}
	return &redactedError{msg: msg, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
