package ledger

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"gorm.io/gorm"

	"github.com/kbukum/transcriptcheck/errors"
)

// IsConnectionError checks if a database error is a connection error
// that might be resolved by retrying.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"connection closed",
		"driver: bad connection",
		"database is locked",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// FromDatabase converts a gorm or pgx error to an AppError. Every ledger
// failure except a missing record is a retryable collaborator error.
func FromDatabase(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.IsAppError(err) {
		return err
	}

	switch {
	case stderrors.Is(err, gorm.ErrRecordNotFound), stderrors.Is(err, pgx.ErrNoRows):
		return errors.NotFound(resource, "")
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout("ledger").WithCause(err)
	case IsConnectionError(err):
		return (&errors.AppError{
			Code:       errors.ErrCodeDatabaseError,
			Message:    "The ledger is temporarily unavailable. Please try again.",
			HTTPStatus: http.StatusServiceUnavailable,
			Retryable:  true,
		}).WithCause(err)
	}
	return errors.DatabaseError(err)
}
