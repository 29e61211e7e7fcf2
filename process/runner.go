package process

import (
	"context"
	"time"

	"github.com/kbukum/transcriptcheck/provider"
)

// Runner executes commands. Run and *Adapter satisfy it; tests substitute
// a fake that never forks.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, cmd Command) (*Result, error)

func (f RunnerFunc) Run(ctx context.Context, cmd Command) (*Result, error) { return f(ctx, cmd) }

var _ provider.RequestResponse[Command, *Result] = (*Adapter)(nil)

// Config configures a process adapter.
type Config struct {
	Name string `yaml:"name,omitempty" mapstructure:"name"`
	// GracePeriod is the default grace period for SIGTERM→SIGKILL.
	GracePeriod time.Duration `yaml:"grace_period,omitempty" mapstructure:"grace_period"`
	// Timeout bounds each execution. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`
}

// Adapter applies per-binary defaults and exposes execution as a
// provider.RequestResponse[Command, *Result].
type Adapter struct {
	config Config
	state  *provider.ResilienceState
}

// NewAdapter creates a process adapter. Policies in res are shared across
// calls, so repeated crashes trip the circuit breaker.
func NewAdapter(cfg Config, res provider.ResilienceConfig) *Adapter {
	return &Adapter{config: cfg, state: provider.BuildResilience(cfg.Name, res)}
}

// Run executes cmd with adapter defaults and resilience applied.
func (a *Adapter) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.GracePeriod == 0 && a.config.GracePeriod > 0 {
		cmd.GracePeriod = a.config.GracePeriod
	}
	return provider.ExecuteWithResilience(ctx, a.state, func() (*Result, error) {
		runCtx := ctx
		if a.config.Timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, a.config.Timeout)
			defer cancel()
		}
		return Run(runCtx, cmd)
	})
}

func (a *Adapter) Name() string                       { return a.config.Name }
func (a *Adapter) IsAvailable(_ context.Context) bool { return true }

func (a *Adapter) Execute(ctx context.Context, cmd Command) (*Result, error) {
	return a.Run(ctx, cmd)
}

// SubprocessProvider turns a command-line tool into a typed
// provider.RequestResponse: buildCmd renders the input as a Command and
// parseOut decodes the Result.
type SubprocessProvider[I, O any] struct {
	name      string
	runner    Runner
	buildCmd  func(I) Command
	parseOut  func(*Result) (O, error)
	available func(context.Context) bool
}

// NewSubprocessProvider creates a provider backed by runner.
func NewSubprocessProvider[I, O any](
	name string,
	runner Runner,
	buildCmd func(I) Command,
	parseOut func(*Result) (O, error),
) *SubprocessProvider[I, O] {
	return &SubprocessProvider[I, O]{
		name:     name,
		runner:   runner,
		buildCmd: buildCmd,
		parseOut: parseOut,
	}
}

// WithAvailabilityCheck sets a custom availability check for the provider.
func (p *SubprocessProvider[I, O]) WithAvailabilityCheck(fn func(context.Context) bool) *SubprocessProvider[I, O] {
	p.available = fn
	return p
}

func (p *SubprocessProvider[I, O]) Name() string { return p.name }

func (p *SubprocessProvider[I, O]) IsAvailable(ctx context.Context) bool {
	if p.available != nil {
		return p.available(ctx)
	}
	return true
}

func (p *SubprocessProvider[I, O]) Execute(ctx context.Context, input I) (O, error) {
	result, err := p.runner.Run(ctx, p.buildCmd(input))
	if err != nil {
		var zero O
		return zero, err
	}
	return p.parseOut(result)
}
