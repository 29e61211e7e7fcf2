package kafka

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/transcriptcheck/provider"
)

// JSONSender is implemented by *Producer.
type JSONSender interface {
	SendJSON(ctx context.Context, topic, key string, value any, headers ...kafkago.Header) error
	Closed() bool
}

// Publisher sends values of one type as JSON to a fixed topic. It is a
// provider.Sink, so it can be wrapped with provider.WithSinkResilience and
// handed to anything that accepts a sink.
type Publisher[T any] struct {
	sender    JSONSender
	topic     string
	key       func(T) string
	eventType string
}

var _ provider.Sink[int] = (*Publisher[int])(nil)

// NewPublisher returns a publisher for topic. key picks the partition key of
// each value; eventType is sent in the "event-type" header.
func NewPublisher[T any](sender JSONSender, topic, eventType string, key func(T) string) *Publisher[T] {
	return &Publisher[T]{sender: sender, topic: topic, key: key, eventType: eventType}
}

// Name identifies the sink in logs and circuit breaker names.
func (p *Publisher[T]) Name() string { return "kafka:" + p.topic }

// IsAvailable is false once the producer has been closed.
func (p *Publisher[T]) IsAvailable(_ context.Context) bool { return !p.sender.Closed() }

// Send publishes value.
func (p *Publisher[T]) Send(ctx context.Context, value T) error {
	var key string
	if p.key != nil {
		key = p.key(value)
	}
	return p.sender.SendJSON(ctx, p.topic, key, value,
		kafkago.Header{Key: "event-type", Value: []byte(p.eventType)})
}

// Topic returns the destination topic.
func (p *Publisher[T]) Topic() string { return p.topic }
