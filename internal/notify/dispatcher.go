package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ninamar-service/internal/models"
	"ninamar-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single detached delivery
const DefaultTimeout = 30 * time.Second

// Sink receives notification events, either to deliver them or to enqueue them
type Sink interface {
	Publish(ctx context.Context, event *models.NotificationEvent) error
}

// Dispatcher sends notifications without blocking the caller. Delivery errors
// are logged and counted, never returned.
type Dispatcher struct {
	sink    Sink
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher over sink
func NewDispatcher(sink Sink, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		sink:    sink,
		timeout: timeout,
		logger:  util.Named("notify"),
		now:     time.Now,
	}
}

// OrderCreated sends the customer confirmation and the admin alert
func (d *Dispatcher) OrderCreated(ctx context.Context, order *models.Order, items []models.OrderItem) {
	event := d.newEvent(models.EventTypeOrderCreated)
	event.Order = order
	event.Items = items
	d.dispatch(ctx, event)
}

// OrderStatusChanged sends the customer status update
func (d *Dispatcher) OrderStatusChanged(ctx context.Context, order *models.Order, items []models.OrderItem, shipment *models.Shipment) {
	event := d.newEvent(models.EventTypeOrderStatusChanged)
	event.Order = order
	event.Items = items
	event.Shipment = shipment
	d.dispatch(ctx, event)
}

// NewsletterSubscribed sends the welcome email
func (d *Dispatcher) NewsletterSubscribed(ctx context.Context, sub *models.NewsletterSubscriber) {
	event := d.newEvent(models.EventTypeNewsletterSubscribed)
	event.Subscriber = sub
	d.dispatch(ctx, event)
}

// ContactReceived relays a contact form to the shop and acknowledges it to the sender
func (d *Dispatcher) ContactReceived(ctx context.Context, msg *models.ContactMessage) {
	event := d.newEvent(models.EventTypeContactReceived)
	event.Contact = msg
	d.dispatch(ctx, event)
}

// Wait blocks until in-flight deliveries finish
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) newEvent(eventType string) *models.NotificationEvent {
	return &models.NotificationEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: d.now(),
		},
	}
}

func (d *Dispatcher) dispatch(parent context.Context, event *models.NotificationEvent) {
	// keep trace values, drop the request's cancellation
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.timeout)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				d.fail(event, fmt.Errorf("panic: %v", r))
			}
		}()

		if err := d.sink.Publish(ctx, event); err != nil {
			d.fail(event, err)
			return
		}
		util.NotificationsDispatchedTotal.WithLabelValues(event.EventType).Inc()
	}()
}

func (d *Dispatcher) fail(event *models.NotificationEvent, err error) {
	util.NotificationsFailedTotal.WithLabelValues(event.EventType).Inc()
	d.logger.Error("Notification failed",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.String("key", event.Key()),
		zap.Error(err))
}
