// Package observability wires OpenTelemetry tracing and metrics for transcriptcheck.
//
// InitTracer installs a global TracerProvider and InitMeter a global
// MeterProvider, both exporting over OTLP/HTTP to the configured collector.
// When telemetry is disabled nothing is installed and StartSpan returns
// non-recording spans from the default no-op provider, so callers never need
// to check whether tracing is on. Instruments created from Meter before
// InitMeter runs are forwarded once the provider is set.
package observability
