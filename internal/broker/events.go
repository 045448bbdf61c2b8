package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"ninamar-service/internal/models"
	"ninamar-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher publishes notification events to the notifications topic
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// Publish enqueues a notification event keyed by its subject
func (ep *EventPublisher) Publish(ctx context.Context, event *models.NotificationEvent) error {
	ctx, span := util.StartSpanWith(ctx, "EventPublisher.Publish", "event_type", event.EventType)
	defer span.End()

	err := ep.producer.PublishEvent(ctx, event.Key(), event)
	util.RecordError(span, err)
	return err
}

// EventHandler routes incoming notification events
type EventHandler struct {
	handlers map[string]func(context.Context, *models.NotificationEvent) error
	logger   *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{
		handlers: make(map[string]func(context.Context, *models.NotificationEvent) error),
		logger:   util.Named("broker"),
	}
}

// On registers the handler of an event type
func (eh *EventHandler) On(eventType string, handler func(context.Context, *models.NotificationEvent) error) {
	eh.handlers[eventType] = handler
}

// OnAll registers handler for every notification event type
func (eh *EventHandler) OnAll(handler func(context.Context, *models.NotificationEvent) error) {
	for _, t := range []string{
		models.EventTypeOrderCreated,
		models.EventTypeOrderStatusChanged,
		models.EventTypeNewsletterSubscribed,
		models.EventTypeContactReceived,
	} {
		eh.On(t, handler)
	}
}

// HandleMessage routes messages to appropriate handlers. Unknown event types
// are skipped so they get committed.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		eh.logger.Error("Dropping undecodable message", zap.ByteString("key", msg.Key), zap.Error(err))
		return nil
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	handler, ok := eh.handlers[baseEvent.EventType]
	if !ok {
		eh.logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
		return nil
	}

	var event models.NotificationEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
	}
	return handler(ctx, &event)
}
