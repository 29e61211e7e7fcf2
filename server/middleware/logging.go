package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/transcriptcheck/logger"
)

// probe paths are polled constantly and would drown the request log
var probePaths = map[string]bool{
	"/health": true,
	"/alive":  true,
	"/ready":  true,
}

// RequestLogger logs every request with method, path, status code and
// duration. 5xx logs at error, 4xx at warn, the rest at debug.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if probePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			fields := logger.MergeWithDuration(map[string]interface{}{
				"method":           r.Method,
				"path":             r.URL.Path,
				logger.FieldStatus: sw.status,
				"bytes_in":         r.ContentLength,
			}, time.Since(start))
			id := logger.RequestIDFromContext(r.Context())
			if id == "" {
				id = r.Header.Get(HeaderRequestID)
			}
			if id != "" {
				fields[logger.FieldRequestID] = id
			}
			logByStatus(log, fields, sw.status)
		})
	}
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
