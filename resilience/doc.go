// Package resilience guards calls to transcriptcheck's collaborators (ASR,
// object storage, ledger, brokers).
//
// Retry, Bulkhead and CircuitBreaker compose; the provider package stacks
// them as Bulkhead, then CircuitBreaker, then Retry. Failure classification
// defers to the retryable flag on errors.AppError, so a NOT_FOUND chunk or a
// CONFIGURATION_ERROR is neither retried nor counted against a breaker.
package resilience
