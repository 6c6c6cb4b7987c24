// Package events forwards audit entries to Kafka for downstream compliance
// tooling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/medassist/medassist/internal/platform/hipaa"
	"github.com/segmentio/kafka-go"
)

const DefaultAuditTopic = "medassist.audit"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher is a hipaa.AuditSink. Entries are keyed by user so one
// user's trail stays ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultAuditTopic
	}
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: int(kafka.RequireAll),
	})
	return &KafkaPublisher{writer: writer, topic: topic}
}

func (p *KafkaPublisher) Append(ctx context.Context, entry hipaa.AuditEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding audit entry: %w", err)
	}

	key := "anonymous"
	if entry.UserID != nil {
		key = entry.UserID.String()
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  entry.Timestamp,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(entry.Action)},
		},
	})
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
