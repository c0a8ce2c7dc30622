package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"viewfilter/internal/config"
	"viewfilter/internal/constants"
	"viewfilter/internal/logger"
	"viewfilter/pkg/metrics"
	"viewfilter/pkg/models"
	"viewfilter/pkg/tracing"
)

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	writer messageWriter
	logger logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           constants.KafkaBatchTimeout,
		WriteTimeout:           constants.KafkaWriteTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &KafkaProducer{writer: w, logger: log}
}

// Publish writes msg keyed by its envelope id. Events of one view share a
// partition when callers key them by view.
func (p *KafkaProducer) Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error {
	if err := models.ValidateMessageEnvelope(&msg); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := msg.ID
	viewID, _ := msg.Payload["view_id"].(string)
	if viewID != "" {
		key = viewID
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   body,
		Headers: tracing.MessageHeaders(ctx, viewID),
		Time:    start,
	})
	metrics.ObserveKafkaWriteDuration(constants.ServiceName, topic, time.Since(start))

	if err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to write kafka message", "topic", topic, "error", err)
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.IncKafkaMessagesWritten(constants.ServiceName, topic)
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
