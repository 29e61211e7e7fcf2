package resilience

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/kbukum/transcriptcheck/errors"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(clock *fakeClock) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "asr",
		MaxFailures: 2,
		Timeout:     time.Minute,
		Now:         clock.Now,
	})
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := newTestBreaker(clock)
	boom := errors.New("connection refused")

	_ = cb.Execute(func() error { return boom })
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after 1 failure, got %s", cb.State())
	}
	_ = cb.Execute(func() error { return boom })
	if cb.State() != StateOpen {
		t.Fatalf("expected open after 2 failures, got %s", cb.State())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("open circuit must fail fast, got %v (called=%v)", err, called)
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	cb := newTestBreaker(clock)
	cb.config.OnStateChange = func(_ string, from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errors.New("x") })
	}
	clock.Advance(time.Minute)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open after timeout, got %s", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe should pass through: %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected closed after successful probe, got %s", cb.State())
	}

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := newTestBreaker(clock)
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errors.New("x") })
	}
	clock.Advance(2 * time.Minute)
	_ = cb.Execute(func() error { return errors.New("still broken") })
	if cb.State() != StateOpen {
		t.Errorf("expected reopened circuit, got %s", cb.State())
	}
}

func TestCircuitBreaker_IgnoresNonRetryableErrors(t *testing.T) {
	cb := newTestBreaker(&fakeClock{t: time.Unix(0, 0)})
	for i := 0; i < 5; i++ {
		_ = cb.Execute(func() error { return apperrors.NotFound("chunk", "") })
	}
	if cb.State() != StateClosed {
		t.Errorf("NOT_FOUND should not trip the breaker, got %s", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := newTestBreaker(&fakeClock{t: time.Unix(0, 0)})
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errors.New("x") })
	}
	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("expected closed after reset, got %s", cb.State())
	}
}
