// Package kafka publishes comment lifecycle events.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Producer wraps a Kafka producer bound to one topic.
type Producer struct {
	producer *kafka.Producer
	config   *Config
	logger   *slog.Logger
}

// NewProducer creates a new idempotent Kafka producer
func NewProducer(config *Config, logger *slog.Logger) (*Producer, error) {
	producerConfig := &kafka.ConfigMap{
		"bootstrap.servers":                     config.Brokers,
		"enable.idempotence":                    config.EnableIdempotence,
		"acks":                                  config.Acks,
		"max.in.flight.requests.per.connection": 5,
	}

	p, err := kafka.NewProducer(producerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	producer := &Producer{
		producer: p,
		config:   config,
		logger:   logger,
	}

	go producer.handleDeliveryReports()

	logger.Info("Kafka producer initialized",
		"brokers", config.Brokers,
		"topic", config.Topic)

	return producer, nil
}

// PublishEvent serializes event to JSON and enqueues it keyed by key. Delivery
// is reported asynchronously.
func (p *Producer) PublishEvent(_ context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := p.config.Topic
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(key),
		Value: data,
	}

	if err := p.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	p.logger.Debug("event queued", "topic", topic, "key", key, "size", len(data))
	return nil
}

func (p *Producer) handleDeliveryReports() {
	for e := range p.producer.Events() {
		ev, ok := e.(*kafka.Message)
		if !ok {
			continue
		}
		if ev.TopicPartition.Error != nil {
			p.logger.Error("Delivery failed",
				"topic", *ev.TopicPartition.Topic,
				"error", ev.TopicPartition.Error)
			continue
		}
		p.logger.Debug("Message delivered",
			"topic", *ev.TopicPartition.Topic,
			"partition", ev.TopicPartition.Partition,
			"offset", ev.TopicPartition.Offset)
	}
}

// Close flushes pending messages for up to 10 seconds and closes the producer.
func (p *Producer) Close() {
	if remaining := p.producer.Flush(10000); remaining > 0 {
		p.logger.Error("Some messages were not delivered", "count", remaining)
	}
	p.producer.Close()
	p.logger.Info("Kafka producer closed")
}
