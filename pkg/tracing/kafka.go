package tracing

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"viewfilter/pkg/logging"
)

const (
	HeaderViewID    = "view_id"
	HeaderRequestID = "request_id"
)

// MessageHeaders builds the headers of an event about viewID: the view, the
// request that caused it and the trace propagation fields of ctx.
func MessageHeaders(ctx context.Context, viewID string) []kafka.Header {
	var headers headerCarrier
	if viewID != "" {
		headers.Set(HeaderViewID, viewID)
	}
	if requestID := logging.GetRequestID(ctx); requestID != "" {
		headers.Set(HeaderRequestID, requestID)
	}

	otel.GetTextMapPropagator().Inject(ctx, &headers)
	return headers
}

// headerCarrier adapts kafka headers to a propagation.TextMapCarrier.
type headerCarrier []kafka.Header

func (c headerCarrier) Get(key string) string {
	for _, h := range c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i := range *c {
		if (*c)[i].Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = h.Key
	}
	return keys
}
