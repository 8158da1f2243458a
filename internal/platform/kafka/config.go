package kafka

import "time"

// ProducerConfig holds configuration for the Kafka producer.
type ProducerConfig struct {
	Brokers         string
	Topic           string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// Enabled reports whether a broker list was configured.
func (c ProducerConfig) Enabled() bool {
	return c.Brokers != ""
}

// DefaultProducerConfig returns defaults; Brokers stays empty so forwarding is off.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Topic:           "consents.notifications",
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}
}
