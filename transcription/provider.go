package transcription

import (
	"context"

	"github.com/kbukum/transcriptcheck/provider"
)

// Provider is the interface speech-to-text backends implement.
type Provider interface {
	provider.Provider
	Transcribe(ctx context.Context, req Request) (*Transcript, error)
}

// AsRequestResponse exposes p to the provider middleware stack.
func AsRequestResponse(p Provider) provider.RequestResponse[Request, *Transcript] {
	return &rrAdapter{p: p}
}

// FromRequestResponse turns a (possibly wrapped) RequestResponse back into a Provider.
func FromRequestResponse(rr provider.RequestResponse[Request, *Transcript]) Provider {
	return &providerAdapter{rr: rr}
}

type rrAdapter struct{ p Provider }

func (a *rrAdapter) Name() string                         { return a.p.Name() }
func (a *rrAdapter) IsAvailable(ctx context.Context) bool { return a.p.IsAvailable(ctx) }
func (a *rrAdapter) Execute(ctx context.Context, req Request) (*Transcript, error) {
	return a.p.Transcribe(ctx, req)
}

type providerAdapter struct {
	rr provider.RequestResponse[Request, *Transcript]
}

func (a *providerAdapter) Name() string                         { return a.rr.Name() }
func (a *providerAdapter) IsAvailable(ctx context.Context) bool { return a.rr.IsAvailable(ctx) }
func (a *providerAdapter) Transcribe(ctx context.Context, req Request) (*Transcript, error) {
	return a.rr.Execute(ctx, req)
}

// Wrap applies middlewares to p, outermost first.
func Wrap(p Provider, middlewares ...provider.Middleware[Request, *Transcript]) Provider {
	if len(middlewares) == 0 {
		return p
	}
	return FromRequestResponse(provider.Chain(middlewares...)(AsRequestResponse(p)))
}
