package models

import "time"

// Event types
const (
	EventTypeOrderCreated         = "ORDER_CREATED"
	EventTypeOrderStatusChanged   = "ORDER_STATUS_CHANGED"
	EventTypeNewsletterSubscribed = "NEWSLETTER_SUBSCRIBED"
	EventTypeContactReceived      = "CONTACT_RECEIVED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// NotificationEvent carries the snapshot an email is rendered from.
// Only the fields relevant to EventType are set.
type NotificationEvent struct {
	BaseEvent
	Order      *Order                `json:"order,omitempty"`
	Items      []OrderItem           `json:"items,omitempty"`
	Shipment   *Shipment             `json:"shipment,omitempty"`
	Subscriber *NewsletterSubscriber `json:"subscriber,omitempty"`
	Contact    *ContactMessage       `json:"contact,omitempty"`
}

// Key returns the partition key for the event
func (e *NotificationEvent) Key() string {
	switch {
	case e.Order != nil:
		return "order-" + e.Order.ID.String()
	case e.Subscriber != nil:
		return "subscriber-" + e.Subscriber.Email
	case e.Contact != nil:
		return "contact-" + e.Contact.Email
	}
	return e.EventID
}
