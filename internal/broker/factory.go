package broker

import (
	"context"
	"fmt"

	"viewfilter/internal/config"
	"viewfilter/internal/logger"
	"viewfilter/pkg/models"
)

// Producer publishes view filter events. The service only writes; nothing
// here consumes.
type Producer interface {
	Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error
	Close() error
}

// NewProducer returns a Kafka producer, or an error when no brokers are configured.
func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	if !cfg.Kafka.Enabled() {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	return NewKafkaProducer(cfg.Kafka, log), nil
}
