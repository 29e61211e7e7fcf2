// Package provider models transcriptcheck's collaborators as generic
// providers so the same middleware stack (logging, tracing, resilience) wraps
// the ASR engine, the content-addressed store and the verdict publisher.
//
//   - RequestResponse[I, O]: one input, one output (ASR call, CAS fetch)
//   - Sink[I]: one input, acknowledgement only (verdict publishing)
//
// Middleware composes with Chain; the first middleware is outermost:
//
//	fetch := provider.Chain(
//	    provider.WithLogging[string, []byte](log),
//	    provider.WithTracing[string, []byte]("audit"),
//	)(provider.WithResilience(rawFetch, cfg))
//
// Registry holds named factories so a backend (openai, whisper) can be chosen
// from configuration.
package provider
