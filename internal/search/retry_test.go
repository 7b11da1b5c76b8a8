package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"connectlist/contentservice/internal/domain"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: 1 * time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetryWithBackoff_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryWithBackoff_SucceedsOnNthAttempt(t *testing.T) {
	var calls atomic.Int32
	err := RetryWithBackoff(context.Background(), fastRetry(3), func() error {
		if calls.Add(1) < 3 {
			return fmt.Errorf("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error after retries, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
}

func TestRetryWithBackoff_ExhaustsAllAttempts(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastRetry(3), func() error {
		calls++
		return fmt.Errorf("timeout")
	})
	if err == nil || err.Error() != "timeout" {
		t.Fatalf("expected last error 'timeout', got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
	}
	err := RetryWithBackoff(ctx, cfg, func() error {
		calls++
		if calls == 1 {
			cancel()
		}
		return fmt.Errorf("connection reset")
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestRetryWithBackoff_ProviderStatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{"server error retried", &domain.ProviderError{Provider: "tmdb", StatusCode: http.StatusBadGateway, Err: errors.New("bad gateway")}, 3},
		{"throttling retried", &domain.ProviderError{Provider: "rawg", StatusCode: http.StatusTooManyRequests, Err: errors.New("slow down")}, 3},
		{"client error permanent", &domain.ProviderError{Provider: "youtube", StatusCode: http.StatusForbidden, Err: errors.New("quota exceeded")}, 1},
		{"malformed payload permanent", &domain.ProviderError{Provider: "tmdb", StatusCode: http.StatusOK, Err: fmt.Errorf("%w: eof", domain.ErrMalformedPayload)}, 1},
		{"disabled permanent", domain.NewProviderError("rawg", domain.CategoryGame, domain.ErrProviderDisabled), 1},
		{"plain error permanent", fmt.Errorf("parse error: invalid JSON"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_ = RetryWithBackoff(context.Background(), fastRetry(3), func() error {
				calls++
				return tt.err
			})
			if calls != tt.wantCalls {
				t.Fatalf("expected %d calls, got %d", tt.wantCalls, calls)
			}
		})
	}
}

func TestRetryWithBackoff_MaxDelayCap(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:  4,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     60 * time.Millisecond,
		Multiplier:   10.0,
	}

	var timestamps []time.Time
	_ = RetryWithBackoff(context.Background(), cfg, func() error {
		timestamps = append(timestamps, time.Now())
		return fmt.Errorf("timeout")
	})

	if len(timestamps) != 4 {
		t.Fatalf("expected 4 timestamps, got %d", len(timestamps))
	}
	for i := 2; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		maxAllowed := time.Duration(float64(cfg.MaxDelay) * 1.5)
		if gap > maxAllowed {
			t.Errorf("gap[%d] = %v exceeds max delay cap of %v", i, gap, maxAllowed)
		}
	}
}

func TestExponentialBlockDuration(t *testing.T) {
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{3, 2 * time.Minute},
		{4, 4 * time.Minute},
		{5, 8 * time.Minute},
		{6, 15 * time.Minute},
		{10, 15 * time.Minute},
	}
	for _, tt := range tests {
		if got := exponentialBlockDuration(tt.failures); got != tt.want {
			t.Errorf("exponentialBlockDuration(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestHealthTrackerBlocksAndResets(t *testing.T) {
	health := newHealthTracker()
	baseTime := time.Now()
	testErr := fmt.Errorf("connection timeout")

	for i := 0; i < providerFailureThreshold; i++ {
		health.record("tmdb", domain.CategoryMovie, testErr, 100*time.Millisecond, baseTime)
	}
	blocked, until, lastErr := health.isBlocked("tmdb", domain.CategoryMovie, baseTime)
	if !blocked || lastErr != "connection timeout" {
		t.Fatalf("expected provider blocked after threshold failures, got %v %q", blocked, lastErr)
	}
	if got := until.Sub(baseTime); got != providerBlockBase {
		t.Fatalf("first block: expected %v, got %v", providerBlockBase, got)
	}

	afterBlock := until.Add(time.Second)
	if blocked, _, _ := health.isBlocked("tmdb", domain.CategoryMovie, afterBlock); blocked {
		t.Fatal("provider should be unblocked after block expires")
	}

	health.record("tmdb", domain.CategoryMovie, testErr, 100*time.Millisecond, afterBlock)
	_, until, _ = health.isBlocked("tmdb", domain.CategoryMovie, afterBlock)
	if got := until.Sub(afterBlock); got != 4*time.Minute {
		t.Fatalf("second block: expected 4m, got %v", got)
	}

	health.record("tmdb", domain.CategoryMovie, nil, 50*time.Millisecond, afterBlock.Add(time.Second))
	if blocked, _, _ := health.isBlocked("tmdb", domain.CategoryMovie, afterBlock.Add(2*time.Second)); blocked {
		t.Fatal("provider should be unblocked after success")
	}

	diagnostics := health.diagnostics([]domain.ProviderInfo{
		{Name: "tmdb", Category: domain.CategoryMovie, Enabled: true},
		{Name: "tmdb", Category: domain.CategoryPerson, Enabled: true},
	})
	if len(diagnostics) != 2 {
		t.Fatalf("expected two diagnostics entries, got %d", len(diagnostics))
	}
	got := diagnostics[0]
	if got.TotalRequests != 5 || got.TotalFailures != 4 || got.ConsecutiveFailures != 0 || got.TimeoutCount != 4 {
		t.Fatalf("unexpected diagnostics %+v", got)
	}
	if got.LastSuccessAt == nil || got.Category != domain.CategoryMovie {
		t.Fatalf("expected movie success timestamp, got %+v", got)
	}
	if diagnostics[1].TotalRequests != 0 {
		t.Fatalf("expected untouched person circuit, got %+v", diagnostics[1])
	}
}

func TestHealthTrackerScopesCircuitToCategory(t *testing.T) {
	health := newHealthTracker()
	now := time.Now()
	for i := 0; i < providerFailureThreshold; i++ {
		health.record("TMDB", domain.CategoryMovie, errFakeUpstream, time.Millisecond, now)
	}
	if blocked, _, _ := health.isBlocked("tmdb", domain.CategoryMovie, now); !blocked {
		t.Fatal("expected movie circuit open")
	}
	if blocked, _, _ := health.isBlocked("tmdb", domain.CategoryPerson, now); blocked {
		t.Fatal("expected person circuit unaffected by movie failures")
	}
}
