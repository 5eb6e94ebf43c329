package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes events to the primary ledger event topic.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher parks undecodable messages on the dead letter topic.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter abstracts kafka.Writer so producers can be tested without a broker.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
