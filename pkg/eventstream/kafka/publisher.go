// Package kafka publishes eventstream events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/fastrag/pkg/eventstream"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "fastrag.documents"

// messageWriter is the part of kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes JSON encoded events keyed by document id, so every event
// for one document lands on the same partition.
type Publisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is a comma separated list of host:port addresses.
	Brokers string

	// Topic defaults to DefaultTopic.
	Topic string

	// WriteTimeout bounds each produce request. Defaults to 10s.
	WriteTimeout time.Duration
}

// NewPublisher creates a Kafka publisher. No connection is made until the
// first event is written.
func NewPublisher(c Config, logger *slog.Logger) (*Publisher, error) {
	brokers := splitBrokers(c.Brokers)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	timeout := c.WriteTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		WriteTimeout:           timeout,
		AllowAutoTopicCreation: true,
	}

	logger.Info("kafka event publisher configured", "brokers", brokers, "topic", topic)
	return newPublisher(w, topic, logger), nil
}

func newPublisher(w messageWriter, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{writer: w, topic: topic, logger: logger}
}

// PublishDocumentIngested writes event to the topic.
func (p *Publisher) PublishDocumentIngested(ctx context.Context, event *eventstream.DocumentIngestedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: marshaling event: %v", eventstream.ErrPublish, err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Document.ID),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: writing to %s: %v", eventstream.ErrPublish, p.topic, err)
	}

	p.logger.Debug("published event", "topic", p.topic, "event_id", event.EventID)
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
