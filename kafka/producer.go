package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/logger"
	"github.com/kbukum/transcriptcheck/resilience"
)

// MessageWriter is the subset of *kafkago.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Producer wraps a kafka-go Writer with TLS/SASL, retries, and logging.
type Producer struct {
	writer MessageWriter
	cfg    Config
	log    *logger.Logger
	mu     sync.RWMutex
	closed bool
}

// NewProducer creates a producer for the configured brokers. The writer has
// no fixed topic; every message names its own.
func NewProducer(cfg Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, apperrors.Configuration("kafka: disabled")
	}

	transport, err := CreateTransport(&cfg)
	if err != nil {
		return nil, err
	}

	plog := log.WithComponent("kafka.producer")
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Transport:    transport,
		Balancer:     &kafkago.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: ParseDuration(cfg.BatchTimeout),
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:  ResolveCompression(cfg.Compression),
		WriteTimeout: ParseDuration(cfg.WriteTimeout),
		// retries are driven by WriteMessages so each one is logged
		MaxAttempts: 1,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			plog.Error("writer: "+msg, map[string]interface{}{
				"args": fmt.Sprintf("%v", args),
			})
		}),
	}

	plog.Info("Kafka producer initialized", map[string]interface{}{
		"brokers":     cfg.Brokers,
		"compression": cfg.Compression,
		"batch_size":  cfg.BatchSize,
	})
	return &Producer{writer: writer, cfg: cfg, log: plog}, nil
}

// NewProducerWithWriter builds a producer around an existing writer.
func NewProducerWithWriter(cfg Config, w MessageWriter, log *logger.Logger) *Producer {
	cfg.ApplyDefaults()
	return &Producer{writer: w, cfg: cfg, log: log.WithComponent("kafka.producer")}
}

// WriteMessages sends messages, retrying transient broker errors up to
// Config.Retries attempts. Failures are returned as AppErrors.
func (p *Producer) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return apperrors.ServiceUnavailable("kafka producer").WithDetail("reason", "closed")
	}

	topic := msgs[0].Topic
	err := resilience.RetryFunc(ctx, resilience.RetryConfig{
		MaxAttempts:    p.cfg.Retries,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		BackoffFactor:  2,
		Jitter:         0.1,
		RetryIf:        IsRetryableError,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			p.log.Warn("Kafka write failed, retrying", map[string]interface{}{
				logger.FieldTopic: topic,
				"attempt":         attempt,
				"backoff_ms":      backoff.Milliseconds(),
				logger.FieldError: err.Error(),
			})
		},
	}, func() error {
		return p.writer.WriteMessages(ctx, msgs...)
	})
	if err != nil {
		return FromKafka(err, topic).WithDetail("messages", len(msgs))
	}
	return nil
}

// SendJSON marshals value as JSON and sends it to topic under key.
func (p *Producer) SendJSON(ctx context.Context, topic, key string, value any, headers ...kafkago.Header) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.Internal(err).WithDetail(logger.FieldTopic, topic)
	}
	msg := kafkago.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   data,
		Headers: append([]kafkago.Header{{Key: "content-type", Value: []byte("application/json")}}, headers...),
		Time:    time.Now().UTC(),
	}
	return p.WriteMessages(ctx, msg)
}

// Closed reports whether Close has been called.
func (p *Producer) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Close shuts down the producer. Safe to call more than once.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.log.Info("Kafka producer closing")
	return p.writer.Close()
}
