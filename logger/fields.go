package logger

import (
	"time"
)

// Standard field key constants for structured logging.
const (
	FieldComponent  = "component"
	FieldTraceID    = "trace_id"
	FieldRequestID  = "request_id"
	FieldOperation  = "operation"
	FieldStatus     = "status"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
	FieldAuditID    = "audit_id"
	FieldVideoID    = "video_id"
	FieldChunkStart = "chunk_start"
	FieldWindow     = "window"
	FieldCID        = "cid"
	FieldScore      = "score"
	FieldProvider   = "provider"
	FieldTopic      = "topic"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	log.Info("chunk stored", logger.Fields(logger.FieldCID, cid, logger.FieldChunkStart, 30))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// WindowFields describes a sampled [start, end] window of a video.
func WindowFields(videoID string, start, end float64) map[string]interface{} {
	return map[string]interface{}{
		FieldVideoID: videoID,
		FieldWindow:  [2]float64{start, end},
	}
}

// MergeWithError adds an error field to an existing map.
func MergeWithError(fields map[string]interface{}, err error) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[FieldError] = err.Error()
	return fields
}

// MergeWithDuration adds a duration field to an existing map.
func MergeWithDuration(fields map[string]interface{}, d time.Duration) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[FieldDuration] = d.Milliseconds()
	return fields
}
