package monitoring

import (
	"context"
	"time"

	"github.com/earlycare-ai/gateway/pkg/common/kafka"
	"github.com/earlycare-ai/gateway/pkg/common/logger"
)

// EventBusObserver bridges lifecycle events onto the Kafka event bus so
// downstream sinks (audit-service) can consume them. Publishing is best
// effort with a short deadline; a broker outage never blocks the request.
type EventBusObserver struct {
	producer *kafka.Producer
	source   string
	timeout  time.Duration
}

func NewEventBusObserver(producer *kafka.Producer, source string) *EventBusObserver {
	return &EventBusObserver{
		producer: producer,
		source:   source,
		timeout:  2 * time.Second,
	}
}

func (e *EventBusObserver) Update(eventType string, data map[string]interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	if err := e.producer.PublishEvent(ctx, eventType, e.source, data); err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).
			Warn("Lifecycle event not published")
	}
}
