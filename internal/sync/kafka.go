package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// KafkaTransport carries sync events over Kafka for deployments where
// tabs of one user can land on different nodes. Each transport instance
// joins its own consumer group so every instance sees every event
// (broadcast semantics, not work sharing).
type KafkaTransport struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	topic      string
}

// KafkaTransportConfig holds configuration for the Kafka transport.
type KafkaTransportConfig struct {
	Brokers []string
	// GroupID must be unique per instance; the tab id is a good choice.
	GroupID string
}

// NewKafkaTransport creates a Kafka-backed sync transport using Watermill.
func NewKafkaTransport(cfg KafkaTransportConfig, logger *slog.Logger) (*KafkaTransport, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.Brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:       cfg.Brokers,
		Unmarshaler:   kafka.DefaultMarshaler{},
		ConsumerGroup: cfg.GroupID,
	}, wmLogger)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
	}

	return &KafkaTransport{
		publisher:  publisher,
		subscriber: subscriber,
		topic:      ChannelName,
	}, nil
}

func (t *KafkaTransport) Publish(ctx context.Context, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return t.publisher.Publish(t.topic, msg)
}

func (t *KafkaTransport) Subscribe(ctx context.Context) (<-chan []byte, error) {
	messages, err := t.subscriber.Subscribe(ctx, t.topic)
	if err != nil {
		return nil, err
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		for msg := range messages {
			select {
			case out <- msg.Payload:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()

	return out, nil
}

func (t *KafkaTransport) Close() error {
	pubErr := t.publisher.Close()
	subErr := t.subscriber.Close()
	if pubErr != nil {
		return pubErr
	}
	return subErr
}
