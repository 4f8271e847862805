package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/swapbnb/api/internal/logging"
)

// KafkaPublisher writes events as JSON to a Kafka topic, keyed by messageKey
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireAll,
			WriteTimeout:           10 * time.Second,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   messageKey(event),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}
	return nil
}

// messageKey keeps an exchange's events on one partition. Events outside an
// exchange are keyed by the first recipient, or the actor when there is none.
func messageKey(event Event) []byte {
	switch {
	case event.ExchangeID != uuid.Nil:
		return []byte(event.ExchangeID.String())
	case len(event.RecipientIDs) > 0:
		return []byte(event.RecipientIDs[0].String())
	default:
		return []byte(event.ActorID.String())
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Consumer reads events from Kafka in a consumer group and hands them to a Handler
type Consumer struct {
	reader  *kafka.Reader
	handler Handler
	logger  *logging.Logger
}

func NewConsumer(brokers []string, topic, groupID string, handler Handler, logger *logging.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		}),
		handler: handler,
		logger:  logger,
	}
}

// Run consumes until ctx is cancelled. Handler failures are logged and the offset is still
// committed; notifications are not worth blocking the partition for.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			c.logger.Error("failed to fetch event", "error", err)
			continue
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Warn("discarding malformed event", "offset", msg.Offset, "error", err)
		} else if err := c.handler.Handle(ctx, event); err != nil {
			c.logger.Error("failed to handle event", "event_id", event.ID, "type", event.Type, "error", err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit offset", "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
