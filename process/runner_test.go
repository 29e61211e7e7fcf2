package process_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/process"
	"github.com/kbukum/transcriptcheck/provider"
	"github.com/kbukum/transcriptcheck/resilience"
)

func TestAdapterAppliesTimeout(t *testing.T) {
	a := process.NewAdapter(process.Config{
		Name:        "sleep",
		Timeout:     100 * time.Millisecond,
		GracePeriod: 100 * time.Millisecond,
	}, provider.ResilienceConfig{})

	start := time.Now()
	_, err := a.Run(context.Background(), process.Command{Binary: "sleep", Args: []string{"10"}})
	if !apperrors.HasCode(err, apperrors.ErrCodeTimeout) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("timeout not enforced")
	}
}

func TestAdapterCircuitBreakerTrips(t *testing.T) {
	a := process.NewAdapter(process.Config{Name: "false"}, provider.ResilienceConfig{
		CircuitBreaker: &resilience.CircuitBreakerConfig{
			Name:             "false",
			MaxFailures:      2,
			Timeout:          time.Minute,
			HalfOpenMaxCalls: 1,
		},
	})

	for i := 0; i < 2; i++ {
		if _, err := a.Run(context.Background(), process.Command{Binary: "false"}); err == nil {
			t.Fatalf("call %d: expected failure", i)
		}
	}
	_, err := a.Run(context.Background(), process.Command{Binary: "false"})
	if !apperrors.HasCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Fatalf("expected SERVICE_UNAVAILABLE once open, got %v", err)
	}
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen in chain, got %v", err)
	}
}

func TestAdapterExecute(t *testing.T) {
	a := process.NewAdapter(process.Config{Name: "echo"}, provider.ResilienceConfig{})
	if a.Name() != "echo" || !a.IsAvailable(context.Background()) {
		t.Fatalf("unexpected provider identity")
	}
	res, err := a.Execute(context.Background(), process.Command{Binary: "echo", Args: []string{"ok"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.TrimSpace(string(res.Stdout)) != "ok" {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

func TestSubprocessProvider(t *testing.T) {
	var got process.Command
	fake := process.RunnerFunc(func(_ context.Context, cmd process.Command) (*process.Result, error) {
		got = cmd
		return &process.Result{Stdout: []byte("  42 \n")}, nil
	})
	p := process.NewSubprocessProvider("wc", fake,
		func(path string) process.Command {
			return process.Command{Binary: "wc", Args: []string{"-l", path}}
		},
		func(r *process.Result) (string, error) {
			return strings.TrimSpace(string(r.Stdout)), nil
		},
	)

	out, err := p.Execute(context.Background(), "/tmp/x")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "42" {
		t.Errorf("out = %q", out)
	}
	if got.Binary != "wc" || len(got.Args) != 2 || got.Args[1] != "/tmp/x" {
		t.Errorf("command = %+v", got)
	}
}

func TestSubprocessProviderPropagatesError(t *testing.T) {
	fake := process.RunnerFunc(func(context.Context, process.Command) (*process.Result, error) {
		return nil, apperrors.ExternalServiceError("tool", errors.New("boom"))
	})
	p := process.NewSubprocessProvider("tool", fake,
		func(string) process.Command { return process.Command{Binary: "tool"} },
		func(*process.Result) (string, error) { return "unreachable", nil },
	).WithAvailabilityCheck(func(context.Context) bool { return false })

	if p.IsAvailable(context.Background()) {
		t.Errorf("availability check not applied")
	}
	if _, err := p.Execute(context.Background(), "x"); !apperrors.HasCode(err, apperrors.ErrCodeExternalService) {
		t.Fatalf("expected EXTERNAL_SERVICE_ERROR, got %v", err)
	}
}
