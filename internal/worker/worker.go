package worker

import (
	"context"
	"fmt"

	"ninamar-service/internal/broker"
	"ninamar-service/internal/models"
	"ninamar-service/internal/util"

	"go.uber.org/zap"
)

// EventStore records which events were already delivered
type EventStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// Deliverer sends the emails of a notification event
type Deliverer interface {
	Deliver(ctx context.Context, event *models.NotificationEvent) error
}

// NotificationWorker delivers notification events consumed from Kafka
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        EventStore
	deliverer    Deliverer
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, store EventStore, deliverer Deliverer) *NotificationWorker {
	w := &NotificationWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		store:        store,
		deliverer:    deliverer,
		logger:       util.Named("worker"),
	}
	w.eventHandler.OnAll(w.handle)
	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

func (w *NotificationWorker) handle(ctx context.Context, event *models.NotificationEvent) error {
	ctx, span := util.StartSpanWith(ctx, "NotificationWorker.handle",
		"event_id", event.EventID, "event_type", event.EventType)
	defer span.End()

	done, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event %s: %w", event.EventID, err)
	}
	if done {
		w.logger.Info("Event already processed, skipping", zap.String("event_id", event.EventID))
		return nil
	}

	if err := w.deliverer.Deliver(ctx, event); err != nil {
		util.NotificationsFailedTotal.WithLabelValues(event.EventType).Inc()
		util.RecordError(span, err)
		return err
	}

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		w.logger.Error("Failed to mark event processed", zap.String("event_id", event.EventID), zap.Error(err))
	}
	util.NotificationsDispatchedTotal.WithLabelValues(event.EventType).Inc()
	return nil
}
