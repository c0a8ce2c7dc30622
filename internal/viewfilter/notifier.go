package viewfilter

import (
	"context"
	"time"

	"github.com/google/uuid"

	"viewfilter/internal/broker"
	"viewfilter/internal/constants"
	"viewfilter/internal/rules"
	"viewfilter/pkg/logging"
	"viewfilter/pkg/models"
)

type EventPublisher struct {
	producer broker.Producer
	topic    string
}

func NewEventPublisher(producer broker.Producer, topic string) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		topic:    topic,
	}
}

// PublishViewFiltersEvent announces a saved rule set. It is a no-op without
// a producer or topic.
func (p *EventPublisher) PublishViewFiltersEvent(ctx context.Context, viewID string, rs rules.RuleSet, changedBy string) error {
	if p == nil || p.producer == nil || p.topic == "" {
		return nil
	}

	event := models.ViewFiltersEvent{
		EventType: models.EventTypeViewFiltersUpdated,
		ViewID:    viewID,
		Action:    models.ActionSave,
		RuleCount: len(rs.Rules),
		ChangedBy: changedBy,
		Timestamp: time.Now().UTC(),
	}
	if rs.Mode != nil {
		event.Mode = string(*rs.Mode)
	}

	envelope := models.MessageEnvelope{
		ID:        uuid.New().String(),
		Source:    constants.ServiceName,
		Timestamp: event.Timestamp,
		Payload:   event.Payload(),
		Metadata: models.Metadata{
			TraceID:   logging.GetTraceID(ctx),
			RequestID: logging.GetRequestID(ctx),
			EventType: event.EventType,
		},
	}

	return p.producer.Publish(ctx, p.topic, envelope)
}
