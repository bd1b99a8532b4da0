package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/wastenot/internal/interfaces"
)

// DefaultTopic receives ItemAdded events when no topic is configured.
const DefaultTopic = "item_added"

const batchTimeout = 10 * time.Millisecond

// keyed events choose their own partition key.
type keyed interface {
	PartitionKey() string
}

// Publisher writes events asynchronously: Publish returns once the message is
// queued and delivery failures are logged from the writer's completion callback.
type Publisher struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger
}

func NewPublisher(brokers []string, topic string, logger *zap.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Publisher{topic: topic, logger: logger}
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		Compression:            kafka.Lz4,
		AllowAutoTopicCreation: true,
		BatchTimeout:           batchTimeout,
		Async:                  true,
		Completion:             p.completed,
	}
	return p
}

func (p *Publisher) completed(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		p.logger.Warn("failed to deliver event",
			zap.String("topic", m.Topic),
			zap.ByteString("key", m.Key),
			zap.Error(err))
	}
}

// Publish queues event as JSON for topic, or for the publisher's default topic when topic is empty.
func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	if topic == "" {
		topic = p.topic
	}
	msg, err := buildMessage(topic, event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func buildMessage(topic string, event any) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Topic: topic,
		Value: data,
	}
	if k, ok := event.(keyed); ok {
		msg.Key = []byte(k.PartitionKey())
	}
	return msg, nil
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
