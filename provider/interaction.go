package provider

import "context"

// RequestResponse takes one input and returns one output.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}

// Sink accepts input with no meaningful output.
type Sink[I any] interface {
	Provider
	Send(ctx context.Context, input I) error
}

// Func turns a plain function into an always-available RequestResponse.
func Func[I, O any](name string, fn func(ctx context.Context, input I) (O, error)) RequestResponse[I, O] {
	return &funcRR[I, O]{name: name, fn: fn}
}

type funcRR[I, O any] struct {
	name string
	fn   func(ctx context.Context, input I) (O, error)
}

func (f *funcRR[I, O]) Name() string                       { return f.name }
func (f *funcRR[I, O]) IsAvailable(_ context.Context) bool { return true }
func (f *funcRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return f.fn(ctx, input)
}

// SinkFunc turns a plain function into an always-available Sink.
func SinkFunc[I any](name string, fn func(ctx context.Context, input I) error) Sink[I] {
	return &funcSink[I]{name: name, fn: fn}
}

type funcSink[I any] struct {
	name string
	fn   func(ctx context.Context, input I) error
}

func (f *funcSink[I]) Name() string                            { return f.name }
func (f *funcSink[I]) IsAvailable(_ context.Context) bool      { return true }
func (f *funcSink[I]) Send(ctx context.Context, input I) error { return f.fn(ctx, input) }
