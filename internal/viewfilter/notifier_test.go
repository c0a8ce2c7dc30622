package viewfilter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viewfilter/internal/constants"
	"viewfilter/internal/rules"
	"viewfilter/pkg/logging"
	"viewfilter/pkg/models"
)

type capturingProducer struct {
	topic string
	msgs  []models.MessageEnvelope
}

func (p *capturingProducer) Publish(_ context.Context, topic string, msg models.MessageEnvelope) error {
	p.topic = topic
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *capturingProducer) Close() error {
	return nil
}

func TestEventPublisher(t *testing.T) {
	producer := &capturingProducer{}
	pub := NewEventPublisher(producer, "view-filter-events")

	ctx := logging.WithRequestID(context.Background(), "req-1")
	rs := rules.NewRuleSet(rules.ModeAny, rules.NewRule("1", rules.OperatorIs, "a"), rules.NewRule("3", rules.OperatorLess, "5"))
	require.NoError(t, pub.PublishViewFiltersEvent(ctx, "view-1", rs, "42"))

	require.Len(t, producer.msgs, 1)
	msg := producer.msgs[0]
	assert.Equal(t, "view-filter-events", producer.topic)
	assert.Equal(t, constants.ServiceName, msg.Source)
	assert.Equal(t, "req-1", msg.Metadata.RequestID)
	assert.Equal(t, models.EventTypeViewFiltersUpdated, msg.Metadata.EventType)
	assert.NoError(t, models.ValidateMessageEnvelope(&msg))

	assert.Equal(t, "view-1", msg.Payload["view_id"])
	assert.Equal(t, "any", msg.Payload["mode"])
	assert.Equal(t, 2, msg.Payload["rule_count"])
	assert.Equal(t, "42", msg.Payload["changed_by"])
}

func TestEventPublisherDisabled(t *testing.T) {
	rs := rules.NewRuleSet(rules.ModeAll)

	var nilPublisher *EventPublisher
	assert.NoError(t, nilPublisher.PublishViewFiltersEvent(context.Background(), "view-1", rs, "1"))

	producer := &capturingProducer{}
	assert.NoError(t, NewEventPublisher(producer, "").PublishViewFiltersEvent(context.Background(), "view-1", rs, "1"))
	assert.Empty(t, producer.msgs)
}
