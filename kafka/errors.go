package kafka

import (
	"context"
	"errors"
	"strings"

	kafkago "github.com/segmentio/kafka-go"

	apperrors "github.com/kbukum/transcriptcheck/errors"
)

// FromKafka converts a broker error into an AppError carrying the topic.
// Connection failures become SERVICE_UNAVAILABLE, rejected messages a
// non-retryable EXTERNAL_SERVICE_ERROR, and everything else a retryable one.
func FromKafka(err error, topic string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout("kafka " + topic).WithCause(err)
	}

	switch {
	case IsConnectionError(err):
		return apperrors.ServiceUnavailable("kafka").WithCause(err).WithDetail("topic", topic)
	case IsNonRetryableError(err):
		appErr := apperrors.ExternalServiceError("kafka", err).WithDetail("topic", topic)
		appErr.Retryable = false
		return appErr
	default:
		return apperrors.ExternalServiceError("kafka", err).WithDetail("topic", topic)
	}
}

// IsConnectionError checks if a Kafka error is a connection-level error.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	connectionPatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"broker not available",
		"leader not available",
		"connection closed",
		"dial tcp",
		"network exception",
	}
	for _, p := range connectionPatterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// IsRetryableError determines if a Kafka error should trigger a retry.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if IsConnectionError(err) {
		return true
	}
	var kerr kafkago.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary()
	}
	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"temporary",
		"request timed out",
		"not enough replicas",
		"offset out of range",
	}
	for _, p := range retryablePatterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// IsNonRetryableError checks if the error should not be retried.
func IsNonRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	nonRetryablePatterns := []string{
		"message too large",
		"invalid topic",
		"invalid partition",
		"unknown topic",
		"authorization failed",
	}
	for _, p := range nonRetryablePatterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}
