package provider_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/provider"
	"github.com/kbukum/transcriptcheck/resilience"
)

var errTransient = errors.New("transient failure")

func flaky(failUntil int32, calls *atomic.Int32) provider.RequestResponse[string, string] {
	return provider.Func("asr", func(_ context.Context, in string) (string, error) {
		if calls.Add(1) <= failUntil {
			return "", errTransient
		}
		return "ok:" + in, nil
	})
}

func quickRetry(attempts int) *resilience.RetryConfig {
	return &resilience.RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func TestWithResilience_EmptyConfigIsPassthrough(t *testing.T) {
	p := &echoProvider{name: "p"}
	if got := provider.WithResilience[string, string](p, provider.ResilienceConfig{}); got != provider.RequestResponse[string, string](p) {
		t.Error("expected the same provider back")
	}
}

func TestWithResilience_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	p := provider.WithResilience(flaky(2, &calls), provider.ResilienceConfig{Retry: quickRetry(3)})

	out, err := p.Execute(context.Background(), "clip")
	if err != nil || out != "ok:clip" {
		t.Fatalf("got %q, %v", out, err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestWithResilience_CircuitOpenBecomesServiceUnavailable(t *testing.T) {
	var calls atomic.Int32
	cb := resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour}
	p := provider.WithResilience(flaky(100, &calls), provider.ResilienceConfig{CircuitBreaker: &cb})

	if _, err := p.Execute(context.Background(), "a"); !errors.Is(err, errTransient) {
		t.Fatalf("first call should surface the provider error, got %v", err)
	}
	_, err := p.Execute(context.Background(), "b")
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeServiceUnavailable {
		t.Fatalf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
	if !appErr.Retryable {
		t.Error("open circuit should be retryable")
	}
	if appErr.Details["service"] != "asr" {
		t.Errorf("expected provider name in details, got %v", appErr.Details)
	}
	if calls.Load() != 1 {
		t.Errorf("open circuit must not call through, got %d calls", calls.Load())
	}
}

func TestWithResilience_BulkheadFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	slow := provider.Func("cas", func(_ context.Context, in string) (string, error) {
		close(started)
		<-release
		return in, nil
	})
	bh := resilience.BulkheadConfig{MaxConcurrent: 1}
	p := provider.WithResilience(slow, provider.ResilienceConfig{Bulkhead: &bh})

	go func() { _, _ = p.Execute(context.Background(), "first") }()
	<-started
	_, err := p.Execute(context.Background(), "second")
	close(release)

	if !apperrors.HasCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Errorf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
}

func TestWithResilience_DeadlineBecomesTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	p := provider.WithResilience(flaky(0, &calls), provider.ResilienceConfig{Retry: quickRetry(3)})

	_, err := p.Execute(ctx, "x")
	if !apperrors.HasCode(err, apperrors.ErrCodeTimeout) {
		t.Errorf("expected TIMEOUT, got %v", err)
	}
}

func TestWithSinkResilience_Retries(t *testing.T) {
	var calls atomic.Int32
	var sent []string
	sink := provider.SinkFunc("verdicts", func(_ context.Context, v string) error {
		if calls.Add(1) == 1 {
			return errTransient
		}
		sent = append(sent, v)
		return nil
	})
	wrapped := provider.WithSinkResilience(sink, provider.ResilienceConfig{Retry: quickRetry(2)})
	if err := wrapped.Send(context.Background(), "invalid"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sent) != 1 || calls.Load() != 2 {
		t.Errorf("sent=%v calls=%d", sent, calls.Load())
	}
}

func TestDefaultResilienceConfig(t *testing.T) {
	cfg := provider.DefaultResilienceConfig("asr")
	if cfg.IsEmpty() || cfg.Retry == nil || cfg.CircuitBreaker == nil || cfg.Bulkhead == nil {
		t.Errorf("expected all policies, got %+v", cfg)
	}
}
