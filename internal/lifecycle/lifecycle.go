package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"ninamar-service/internal/models"
)

var (
	ErrUnknownStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// PaymentNotApprovedError rejects a status change on an order whose payment is not approved
type PaymentNotApprovedError struct {
	PaymentStatus models.PaymentStatus
}

func (e *PaymentNotApprovedError) Error() string {
	return fmt.Sprintf("payment not approved: payment_status=%s", e.PaymentStatus)
}

// forward order of the non-cancelled states
var rank = map[models.OrderStatus]int{
	models.OrderStatusPending:    0,
	models.OrderStatusPaid:       1,
	models.OrderStatusProcessing: 2,
	models.OrderStatusShipped:    3,
	models.OrderStatusDelivered:  4,
}

var cancellableFrom = map[models.OrderStatus]bool{
	models.OrderStatusPaid:       true,
	models.OrderStatusProcessing: true,
	models.OrderStatusShipped:    true,
}

// Valid reports whether s is a known order status
func Valid(s models.OrderStatus) bool {
	_, ok := rank[s]
	return ok || s == models.OrderStatusCancelled
}

// Terminal reports whether no further transition can leave s
func Terminal(s models.OrderStatus) bool {
	return s == models.OrderStatusDelivered || s == models.OrderStatusCancelled
}

// Change describes the effect of a transition. Stamps in the embedded update
// are only set for timestamps that were null on the order.
type Change struct {
	From    models.OrderStatus
	Changed bool
	models.StatusUpdate
}

// NotifiesCustomer reports whether the change sends the status-update email
func (c Change) NotifiesCustomer() bool {
	if !c.Changed {
		return false
	}
	switch c.Status {
	case models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusDelivered:
		return true
	}
	return false
}

// Apply writes the change onto o
func (c Change) Apply(o *models.Order) {
	o.Status = c.Status
	if c.PaidAt != nil {
		o.PaidAt = c.PaidAt
	}
	if c.ProcessingAt != nil {
		o.ProcessingAt = c.ProcessingAt
	}
	if c.ShippedAt != nil {
		o.ShippedAt = c.ShippedAt
	}
	if c.DeliveredAt != nil {
		o.DeliveredAt = c.DeliveredAt
	}
}

// Transition validates moving o to status to and computes the timestamps to stamp.
// It never mutates o.
func Transition(o *models.Order, to models.OrderStatus, now time.Time) (Change, error) {
	if !Valid(to) {
		return Change{}, fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}

	noop := Change{From: o.Status, StatusUpdate: models.StatusUpdate{Status: o.Status}}

	if to == models.OrderStatusPending {
		if o.Status == models.OrderStatusPending {
			return noop, nil
		}
		return Change{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}

	if o.PaymentStatus != models.PaymentStatusApproved {
		return Change{}, &PaymentNotApprovedError{PaymentStatus: o.PaymentStatus}
	}

	if to == o.Status {
		return noop, nil
	}
	if Terminal(o.Status) {
		return Change{}, fmt.Errorf("%w: %s is final", ErrInvalidTransition, o.Status)
	}

	change := Change{From: o.Status, Changed: true, StatusUpdate: models.StatusUpdate{Status: to}}

	if to == models.OrderStatusCancelled {
		if !cancellableFrom[o.Status] {
			return Change{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
		}
		return change, nil
	}

	if rank[to] < rank[o.Status] {
		return Change{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}

	target := rank[to]
	stamp := func(current *time.Time, state models.OrderStatus) *time.Time {
		if current != nil || rank[state] > target {
			return nil
		}
		t := now
		return &t
	}
	change.PaidAt = stamp(o.PaidAt, models.OrderStatusPaid)
	change.ProcessingAt = stamp(o.ProcessingAt, models.OrderStatusProcessing)
	change.ShippedAt = stamp(o.ShippedAt, models.OrderStatusShipped)
	change.DeliveredAt = stamp(o.DeliveredAt, models.OrderStatusDelivered)

	return change, nil
}
