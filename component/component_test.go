package component

import (
	"context"
	"fmt"
	"testing"

	"github.com/kbukum/transcriptcheck/logger"
)

// mockComponent implements Component for testing.
type mockComponent struct {
	name       string
	startErr   error
	stopErr    error
	health     Health
	startOrder *[]string
	stopOrder  *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.startOrder != nil {
		*m.startOrder = append(*m.startOrder, m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) Health {
	return m.health
}

type describedComponent struct {
	mockComponent
}

func (d *describedComponent) Describe() Description {
	return Description{Type: "ledger", Details: "sqlite"}
}

func newTestRegistry() *Registry {
	return NewRegistry(logger.NewNop())
}

func TestRegisterDuplicate(t *testing.T) {
	r := newTestRegistry()
	if err := r.Register(&mockComponent{name: "ledger"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&mockComponent{name: "ledger"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestGet(t *testing.T) {
	r := newTestRegistry()
	r.Register(&mockComponent{name: "ledger"})

	got := r.Get("ledger")
	if got == nil {
		t.Fatal("expected to get registered component")
	}
	if got.Name() != "ledger" {
		t.Errorf("expected 'ledger', got %q", got.Name())
	}
	if r.Get("missing") != nil {
		t.Error("expected nil for unregistered component")
	}
}

func TestStartAllOrder(t *testing.T) {
	r := newTestRegistry()
	order := []string{}

	r.Register(&mockComponent{name: "ledger", startOrder: &order})
	r.Register(&describedComponent{mockComponent{name: "redis", startOrder: &order}})

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if len(order) != 2 || order[0] != "ledger" || order[1] != "redis" {
		t.Errorf("expected start order [ledger, redis], got %v", order)
	}
}

func TestStartAllSkipsStarted(t *testing.T) {
	r := newTestRegistry()
	order := []string{}
	r.Register(&mockComponent{name: "ledger", startOrder: &order})
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	r.Register(&mockComponent{name: "server", startOrder: &order})
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[1] != "server" {
		t.Errorf("expected [ledger, server], got %v", order)
	}
}

func TestStartAllError(t *testing.T) {
	r := newTestRegistry()
	order := []string{}
	r.Register(&mockComponent{name: "ledger", startErr: fmt.Errorf("connection refused")})
	r.Register(&mockComponent{name: "redis", startOrder: &order})

	if err := r.StartAll(context.Background()); err == nil {
		t.Error("expected error from StartAll")
	}
	if len(order) != 0 {
		t.Errorf("expected later components not to start, got %v", order)
	}
}

func TestStopAllReverseOrder(t *testing.T) {
	r := newTestRegistry()
	order := []string{}

	r.Register(&mockComponent{name: "ledger", stopOrder: &order})
	r.Register(&mockComponent{name: "redis", stopOrder: &order})
	r.Register(&mockComponent{name: "kafka", stopOrder: &order})

	r.StartAll(context.Background())
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(order) != 3 || order[0] != "kafka" || order[1] != "redis" || order[2] != "ledger" {
		t.Errorf("expected reverse stop order [kafka, redis, ledger], got %v", order)
	}
}

func TestStopAllSkipsUnstarted(t *testing.T) {
	r := newTestRegistry()
	order := []string{}
	r.Register(&mockComponent{name: "ledger", stopOrder: &order})

	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("expected 0 stops for unstarted components, got %d", len(order))
	}
}

func TestStopAllWithErrors(t *testing.T) {
	r := newTestRegistry()
	r.Register(&mockComponent{name: "ledger", stopErr: fmt.Errorf("stop failed")})
	r.StartAll(context.Background())

	if err := r.StopAll(context.Background()); err == nil {
		t.Error("expected error from StopAll")
	}
}

func TestHealthAllAndOverall(t *testing.T) {
	r := newTestRegistry()
	r.Register(&mockComponent{name: "ledger", health: Health{Name: "ledger", Status: StatusHealthy}})
	r.Register(&mockComponent{name: "redis", health: Health{Name: "redis", Status: StatusDegraded}})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if got := Overall(results); got != StatusDegraded {
		t.Errorf("Overall = %s, want degraded", got)
	}

	results = append(results, Health{Name: "kafka", Status: StatusUnhealthy})
	if got := Overall(results); got != StatusUnhealthy {
		t.Errorf("Overall = %s, want unhealthy", got)
	}
	if got := Overall(nil); got != StatusHealthy {
		t.Errorf("Overall(nil) = %s, want healthy", got)
	}
}
