// Package bus wraps the kafka-go transactions topic: a producer for the
// tap's decoded-swap envelopes, and a reader for the consumer's
// subscription to the same topic. New, grounded on the teacher's absence
// of a bus (no Kafka wiring anywhere in the retrieval pack), so the
// kafka-go API is used directly rather than adapted from an existing
// wrapper; the producer/consumer split and key=txHash convention follow
// spec.md §6 exactly.
package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"sentryx/internal/model"
)

// Producer publishes Envelopes to the transactions topic, keyed by txHash.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer builds a Producer bound to a single topic.
func NewProducer(brokers []string, clientID, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
			Async:    false,
		},
	}
}

// PublishEnvelope marshals env and writes it with key=env.TxHash.
func (p *Producer) PublishEnvelope(ctx context.Context, env model.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("bus: marshal envelope: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(env.TxHash),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("bus: write message: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer reads Envelopes from the transactions topic with
// fromBeginning = false, per spec.md §4.7.
type Consumer struct {
	reader *kafka.Reader
}

// NewConsumer builds a Consumer bound to a single topic and consumer group.
func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			GroupID:     groupID,
			Topic:       topic,
			StartOffset: kafka.LastOffset,
		}),
	}
}

// Message is one decoded bus record: the parsed envelope plus the
// broker-assigned timestamp, used as a fallback age-gate clock.
type Message struct {
	Envelope        model.Envelope
	BrokerTimestamp int64 // unix millis
}

// ReadMessage blocks for the next message, parses its envelope, and
// returns both. A parse failure is returned as an error so the caller can
// log-and-continue without crashing the consume loop.
func (c *Consumer) ReadMessage(ctx context.Context) (Message, error) {
	raw, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("bus: fetch message: %w", err)
	}

	var env model.Envelope
	if err := json.Unmarshal(raw.Value, &env); err != nil {
		_ = c.reader.CommitMessages(ctx, raw)
		return Message{}, fmt.Errorf("bus: unmarshal envelope: %w", err)
	}

	if err := c.reader.CommitMessages(ctx, raw); err != nil {
		return Message{}, fmt.Errorf("bus: commit offset: %w", err)
	}

	return Message{
		Envelope:        env,
		BrokerTimestamp: raw.Time.UnixMilli(),
	}, nil
}

// Close stops the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
