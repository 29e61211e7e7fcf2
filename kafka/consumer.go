package kafka

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/logger"
	"github.com/kbukum/transcriptcheck/pipeline"
	"github.com/kbukum/transcriptcheck/resilience"
)

// MessageReader is the subset of *kafkago.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// MessageHandler processes one message. A returned error is logged and the
// message is still committed, so a bad request never blocks its partition.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

const maxReadBackoff = 30 * time.Second

// readRetry paces reconnect attempts after fetch errors: 1s, 2s, 4s ... capped at 30s.
var readRetry = resilience.RetryConfig{
	InitialBackoff: time.Second,
	MaxBackoff:     maxReadBackoff,
	BackoffFactor:  2,
	Jitter:         0.2,
}

// Consumer reads one topic as part of a consumer group.
type Consumer struct {
	reader   MessageReader
	topic    string
	groupID  string
	log      *logger.Logger
	failures int
	backoff  func(failures int) time.Duration
}

// NewConsumer creates a group consumer for topic.
func NewConsumer(cfg Config, topic string, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, apperrors.Configuration("kafka: disabled")
	}

	dialer, err := CreateDialer(&cfg)
	if err != nil {
		return nil, err
	}

	clog := log.WithComponent("kafka.consumer")
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           cfg.GroupID,
		Dialer:            dialer,
		StartOffset:       kafkago.FirstOffset,
		MinBytes:          1,
		MaxBytes:          1e6,
		SessionTimeout:    ParseDuration(cfg.SessionTimeout),
		HeartbeatInterval: ParseDuration(cfg.HeartbeatInterval),
		RebalanceTimeout:  ParseDuration(cfg.RebalanceTimeout),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			clog.Error("reader: "+msg, map[string]interface{}{
				"args":            fmt.Sprintf("%v", args),
				logger.FieldTopic: topic,
				"group_id":        cfg.GroupID,
			})
		}),
	})

	clog.Info("Kafka consumer initialized", map[string]interface{}{
		logger.FieldTopic: topic,
		"group_id":        cfg.GroupID,
		"brokers":         cfg.Brokers,
	})
	return NewConsumerWithReader(reader, topic, cfg.GroupID, log), nil
}

// NewConsumerWithReader builds a consumer around an existing reader.
func NewConsumerWithReader(reader MessageReader, topic, groupID string, log *logger.Logger) *Consumer {
	return &Consumer{
		reader:  reader,
		topic:   topic,
		groupID: groupID,
		log:     log.WithComponent("kafka.consumer"),
		backoff: readBackoff,
	}
}

func readBackoff(failures int) time.Duration {
	// The cap is reached by the 6th failure; bounding the exponent keeps the float finite.
	return resilience.Backoff(min(failures, 8), readRetry)
}

// Consume fetches messages until ctx is cancelled, calling handler for each
// and committing it afterwards. Delivery is at least once.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	c.log.Info("Starting consume loop", map[string]interface{}{
		logger.FieldTopic: c.topic,
		"group_id":        c.groupID,
	})

	messages := pipeline.From[kafkago.Message](&fetchIter{c: c})
	return pipeline.Drain(messages, func(ctx context.Context, msg kafkago.Message) error {
		if err := handler(ctx, msg); err != nil {
			c.log.WithContext(ctx).Error("Message processing failed", map[string]interface{}{
				logger.FieldError: err.Error(),
				logger.FieldTopic: msg.Topic,
				"partition":       msg.Partition,
				"offset":          msg.Offset,
			})
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("Commit failed", map[string]interface{}{
				logger.FieldError: err.Error(),
				logger.FieldTopic: msg.Topic,
				"offset":          msg.Offset,
			})
		}
		return nil
	}).Run(ctx)
}

// fetchIter turns the reader into a pipeline source. Read errors back off and
// retry; only cancellation ends the stream.
type fetchIter struct {
	c *Consumer
}

func (it *fetchIter) Next(ctx context.Context) (kafkago.Message, bool, error) {
	for {
		msg, err := it.c.reader.FetchMessage(ctx)
		if err == nil {
			it.c.failures = 0
			return msg, true, nil
		}
		if ctx.Err() != nil {
			return kafkago.Message{}, false, ctx.Err()
		}
		if err := it.c.handleFailure(ctx, err); err != nil {
			return kafkago.Message{}, false, err
		}
	}
}

// Close is a no-op; the reader belongs to the Consumer.
func (it *fetchIter) Close() error { return nil }

func (c *Consumer) handleFailure(ctx context.Context, err error) error {
	c.failures++
	if c.failures <= 3 {
		c.log.Error("Kafka read error", map[string]interface{}{
			logger.FieldError: err.Error(),
			"failures":        c.failures,
			logger.FieldTopic: c.topic,
			"group_id":        c.groupID,
		})
	}

	timer := time.NewTimer(c.backoff(c.failures))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Topic returns the consumer's topic.
func (c *Consumer) Topic() string { return c.topic }

// Close shuts down the reader.
func (c *Consumer) Close() error {
	c.log.Info("Kafka consumer closing", map[string]interface{}{
		logger.FieldTopic: c.topic,
		"group_id":        c.groupID,
	})
	return c.reader.Close()
}
