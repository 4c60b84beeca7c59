package kafka

import (
	"fmt"
	"strings"
)

// Config holds Kafka producer configuration
type Config struct {
	Brokers           string
	Topic             string
	EnableIdempotence bool
	Acks              string
}

// NewConfig validates brokers and fills producer defaults.
func NewConfig(brokers, topic string) (*Config, error) {
	brokers = strings.TrimSpace(brokers)
	if brokers == "" {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if strings.TrimSpace(topic) == "" {
		topic = "comment-events"
	}

	return &Config{
		Brokers:           brokers,
		Topic:             topic,
		EnableIdempotence: true,
		Acks:              "all",
	}, nil
}

// GetBrokersList returns brokers as a slice
func (c *Config) GetBrokersList() []string {
	parts := strings.Split(c.Brokers, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
