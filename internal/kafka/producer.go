package kafka

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Domenick1991/flightsaga/internal/events"
	"github.com/Domenick1991/flightsaga/internal/messaging"
)

const (
	headerEventID    = "event_id"
	headerKind       = "kind"
	headerCausation  = "causation_id"
	headerQueue      = "queue"
	headerRoutingKey = "routing_key"
	headerReason     = "reason"
	headerAttempt    = "attempt"
)

// Producer publishes saga events, one topic per routing key.
type Producer struct {
	brokers         []string
	writer          *kafka.Writer
	deadLetterTopic string
	logger          *zap.Logger
}

func NewProducer(brokers []string, deadLetterTopic string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr: kafka.TCP(brokers...),
		// Hash keeps every event about one booking on one partition.
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		brokers:         brokers,
		writer:          writer,
		deadLetterTopic: deadLetterTopic,
		logger:          logger,
	}
}

func (p *Producer) Publish(ctx context.Context, env events.Envelope) error {
	msg, err := eventMessage(env)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	p.logger.Debug("event published",
		zap.String("topic", msg.Topic),
		zap.String("key", env.Key),
		zap.String("event_id", env.Header.ID))
	return nil
}

func (p *Producer) DeadLetter(ctx context.Context, d messaging.Delivery, reason string) error {
	if err := p.writer.WriteMessages(ctx, deadLetterMessage(p.deadLetterTopic, d, reason)); err != nil {
		return fmt.Errorf("failed to dead-letter message from %s: %w", d.Queue, err)
	}
	p.logger.Warn("message dead-lettered",
		zap.String("queue", d.Queue),
		zap.String("routing_key", d.RoutingKey),
		zap.String("reason", reason))
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker and lists its partitions.
func (p *Producer) CheckConnection(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}

	p.logger.Info("connected to Kafka", zap.Int("partitions", len(partitions)))
	return nil
}

func eventMessage(env events.Envelope) (kafka.Message, error) {
	body, err := events.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	headers := []kafka.Header{
		{Key: headerEventID, Value: []byte(env.Header.ID)},
		{Key: headerKind, Value: []byte(env.Header.Kind)},
	}
	if env.Header.CausationID != "" {
		headers = append(headers, kafka.Header{Key: headerCausation, Value: []byte(env.Header.CausationID)})
	}
	return kafka.Message{
		Topic:   env.RoutingKey(),
		Key:     []byte(env.Key),
		Value:   body,
		Headers: headers,
		Time:    env.Header.PublishedAt,
	}, nil
}

func deadLetterMessage(topic string, d messaging.Delivery, reason string) kafka.Message {
	return kafka.Message{
		Topic: topic,
		Key:   []byte(d.Queue),
		Value: d.Body,
		Headers: []kafka.Header{
			{Key: headerQueue, Value: []byte(d.Queue)},
			{Key: headerRoutingKey, Value: []byte(d.RoutingKey)},
			{Key: headerReason, Value: []byte(reason)},
			{Key: headerAttempt, Value: []byte(strconv.Itoa(d.Attempt))},
		},
		Time: time.Now(),
	}
}

var (
	_ messaging.Publisher      = (*Producer)(nil)
	_ messaging.DeadLetterSink = (*Producer)(nil)
)
