package producers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newDLQProducer(w KafkaWriter) *DLQProducer {
	return &DLQProducer{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		writer:   w,
		dlqTopic: "ledger_events_dlq",
	}
}

func TestDLQProducer_PublishToDLQ(t *testing.T) {
	ctx := context.Background()

	t.Run("wraps the original message with a reason and timestamp", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newDLQProducer(mockWriter)

		rawEvent := []byte(`{"event_type":"TIP_PLACED"}`)

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 || string(msgs[0].Key) != "evt-1" {
				return false
			}
			var wrapped map[string]string
			if err := json.Unmarshal(msgs[0].Value, &wrapped); err != nil {
				return false
			}
			return wrapped["original_key"] == "evt-1" &&
				wrapped["original_value"] == string(rawEvent) &&
				wrapped["dlq_reason"] == "unmarshal failure" &&
				wrapped["timestamp"] != ""
		})).Return(nil).Once()

		require.NoError(t, producer.PublishToDLQ(ctx, "evt-1", rawEvent, "unmarshal failure"))
		mockWriter.AssertExpectations(t)
	})

	t.Run("surfaces writer errors", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newDLQProducer(mockWriter)

		writeErr := errors.New("broker unavailable")
		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writeErr).Once()

		err := producer.PublishToDLQ(ctx, "evt-2", []byte("payload"), "bad event")
		require.Error(t, err)
		assert.ErrorIs(t, err, writeErr)
		mockWriter.AssertExpectations(t)
	})

	t.Run("fails when the producer is disabled", func(t *testing.T) {
		producer := newDLQProducer(nil)

		err := producer.PublishToDLQ(ctx, "evt-3", []byte("payload"), "bad event")
		require.Error(t, err)
		assert.Equal(t, "DLQ producer not initialized", err.Error())
	})
}

func TestDLQProducer_Close(t *testing.T) {
	t.Run("closes the underlying writer", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newDLQProducer(mockWriter)

		mockWriter.On("Close").Return(nil).Once()
		require.NoError(t, producer.Close())
		mockWriter.AssertExpectations(t)
	})

	t.Run("surfaces close errors", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newDLQProducer(mockWriter)

		closeErr := errors.New("connection reset")
		mockWriter.On("Close").Return(closeErr).Once()
		assert.ErrorIs(t, producer.Close(), closeErr)
		mockWriter.AssertExpectations(t)
	})

	t.Run("is a no-op for a disabled producer", func(t *testing.T) {
		producer := newDLQProducer(nil)
		require.NoError(t, producer.Close())
	})
}
