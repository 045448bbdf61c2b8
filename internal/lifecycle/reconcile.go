package lifecycle

import (
	"time"

	"ninamar-service/internal/models"
)

// Gateway payment statuses
const (
	GatewayApproved  = "approved"
	GatewayRejected  = "rejected"
	GatewayPending   = "pending"
	GatewayInProcess = "in_process"
)

// Outcome classifies what a payment notification did to an order
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeAwaiting  Outcome = "awaiting"
	OutcomeStale     Outcome = "stale"
	OutcomeUnhandled Outcome = "unhandled"
)

// Payment is the authoritative payment state fetched from the gateway
type Payment struct {
	ID     string
	Status string
	Method string
}

// ReconcilePayment maps a gateway payment onto the order. A nil update means
// nothing is written. Applying the same approved payment twice yields the same
// update, with paid_at kept from the first application.
func ReconcilePayment(o *models.Order, p Payment, now time.Time) (*models.PaymentUpdate, Outcome) {
	switch p.Status {
	case GatewayApproved:
		status := o.Status
		if o.Status == models.OrderStatusPending ||
			(o.Status == models.OrderStatusCancelled && o.PaymentStatus == models.PaymentStatusRejected) {
			status = models.OrderStatusPaid
		}
		paidAt := o.PaidAt
		if paidAt == nil {
			t := now
			paidAt = &t
		}
		return &models.PaymentUpdate{
			PaymentStatus: models.PaymentStatusApproved,
			PaymentID:     p.ID,
			PaymentMethod: p.Method,
			Status:        status,
			PaidAt:        paidAt,
		}, OutcomeApplied

	case GatewayRejected:
		if o.PaymentStatus == models.PaymentStatusApproved {
			return nil, OutcomeStale
		}
		return &models.PaymentUpdate{
			PaymentStatus: models.PaymentStatusRejected,
			PaymentID:     p.ID,
			PaymentMethod: p.Method,
			Status:        models.OrderStatusCancelled,
		}, OutcomeApplied

	case GatewayPending, GatewayInProcess:
		return nil, OutcomeAwaiting
	}
	return nil, OutcomeUnhandled
}

// ApplyPayment writes u onto o
func ApplyPayment(o *models.Order, u *models.PaymentUpdate) {
	o.PaymentStatus = u.PaymentStatus
	o.PaymentID = &u.PaymentID
	o.PaymentMethod = &u.PaymentMethod
	o.Status = u.Status
	if o.PaidAt == nil && u.PaidAt != nil {
		o.PaidAt = u.PaidAt
	}
}
