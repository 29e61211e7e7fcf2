package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/transcriptcheck/audit"
	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/logger"
	"github.com/kbukum/transcriptcheck/validation"
)

// ValidationRequest is the payload of a request-topic message.
type ValidationRequest struct {
	VideoID string `json:"video_id"`
}

// Validator runs one audit. *audit.Validator satisfies it.
type Validator interface {
	Validate(ctx context.Context, videoID string) (*audit.Verdict, error)
}

// DecodeRequest parses a request message. The message key is used as the
// video id when the body omits it.
func DecodeRequest(msg kafkago.Message) (ValidationRequest, error) {
	var req ValidationRequest
	if len(msg.Value) > 0 {
		if err := json.Unmarshal(msg.Value, &req); err != nil {
			return req, apperrors.InvalidInput("value", "request is not valid JSON").WithCause(err)
		}
	}
	if strings.TrimSpace(req.VideoID) == "" {
		req.VideoID = string(msg.Key)
	}
	req.VideoID = strings.TrimSpace(req.VideoID)
	if appErr := validation.New().Required("video_id", req.VideoID).Validate(); appErr != nil {
		return req, appErr
	}
	return req, nil
}

// ValidationHandler returns a MessageHandler that runs one audit per request.
// The verdict itself is published by the validator's sink; the handler only
// reports whether the run finished.
func ValidationHandler(v Validator, timeout time.Duration, log *logger.Logger) MessageHandler {
	wlog := log.WithComponent("kafka.worker")
	return func(ctx context.Context, msg kafkago.Message) error {
		req, err := DecodeRequest(msg)
		if err != nil {
			return err
		}

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		verdict, err := v.Validate(ctx, req.VideoID)
		if err != nil {
			return err
		}
		fields := map[string]interface{}{
			logger.FieldVideoID: req.VideoID,
			"offset":            msg.Offset,
		}
		if verdict != nil {
			fields[logger.FieldAuditID] = verdict.AuditID
			fields[logger.FieldStatus] = string(verdict.Status)
		}
		wlog.Info("Validation request handled", logger.MergeWithDuration(fields, time.Since(start)))
		return nil
	}
}
