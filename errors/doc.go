// Package errors provides the structured error type shared by every layer of
// transcriptcheck. Each AppError carries a machine-readable code, an HTTP status
// and a retryable flag, so callers can tell a failed verdict apart from an
// inconclusive one.
package errors
