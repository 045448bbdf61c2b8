package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ninamar-service/internal/lifecycle"
	"ninamar-service/internal/models"
	"ninamar-service/internal/payment"
	"ninamar-service/internal/store"
	"ninamar-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Webhook outcomes that never reach the reconciliation rules
const (
	OutcomeIgnored      lifecycle.Outcome = "ignored"
	OutcomeNoReference  lifecycle.Outcome = "no_reference"
	OutcomeUnknownOrder lifecycle.Outcome = "unknown_order"
	OutcomeFailed       lifecycle.Outcome = "failed"
)

// DefaultCurrency is the currency of every preference
const DefaultCurrency = "COP"

var preferenceTolerance = decimal.NewFromInt(1)

// PaymentConfig holds the URLs handed to the gateway
type PaymentConfig struct {
	SuccessURL          string
	FailureURL          string
	PendingURL          string
	NotificationURL     string
	Currency            string
	StatementDescriptor string
}

// PaymentService creates hosted checkouts and reconciles gateway notifications
type PaymentService struct {
	store   OrderStore
	gateway PaymentGateway
	cfg     PaymentConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewPaymentService creates a new payment service
func NewPaymentService(store OrderStore, gateway PaymentGateway, cfg PaymentConfig) *PaymentService {
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	return &PaymentService{
		store:   store,
		gateway: gateway,
		cfg:     cfg,
		logger:  util.Named("payments"),
		now:     time.Now,
	}
}

// PreferenceResult is what the storefront needs to redirect to the gateway
type PreferenceResult struct {
	PreferenceID     string `json:"preference_id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point,omitempty"`
}

// CreatePreference requests a hosted checkout page for a pending order
func (ps *PaymentService) CreatePreference(ctx context.Context, orderID uuid.UUID) (*PreferenceResult, error) {
	ctx, span := util.StartSpanWith(ctx, "PaymentService.CreatePreference", "order_id", orderID.String())
	defer span.End()

	order, err := ps.store.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order.PaymentStatus == models.PaymentStatusApproved {
		return nil, ErrAlreadyPaid
	}
	if lifecycle.Terminal(order.Status) {
		return nil, ErrOrderClosed
	}

	items, err := ps.store.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	req := ps.preferenceRequest(order, items)
	sum := decimal.Zero
	for _, it := range req.Items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	if sum.Sub(order.Total).Abs().GreaterThan(preferenceTolerance) {
		util.PaymentPreferencesTotal.WithLabelValues("total_mismatch").Inc()
		ps.logger.Error("Preference items do not match order total",
			zap.String("order_id", order.ID.String()),
			zap.String("items_total", sum.String()),
			zap.String("order_total", order.Total.String()))
		return nil, fmt.Errorf("%w: items %s, order %s", ErrTotalMismatch, sum, order.Total)
	}

	pref, err := ps.gateway.CreatePreference(ctx, req)
	if err != nil {
		util.PaymentPreferencesTotal.WithLabelValues("error").Inc()
		util.RecordError(span, err)
		ps.logger.Error("Failed to create payment preference",
			zap.String("order_id", order.ID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	util.PaymentPreferencesTotal.WithLabelValues("created").Inc()
	ps.logger.Info("Payment preference created",
		zap.String("order_id", order.ID.String()),
		zap.String("preference_id", pref.ID))

	return &PreferenceResult{
		PreferenceID:     pref.ID,
		InitPoint:        pref.InitPoint,
		SandboxInitPoint: pref.SandboxInitPoint,
	}, nil
}

func (ps *PaymentService) preferenceRequest(order *models.Order, items []models.OrderItem) *payment.PreferenceRequest {
	req := &payment.PreferenceRequest{
		Items: make([]payment.Item, 0, len(items)+1),
		Payer: payment.Payer{
			Name:           order.CustomerName,
			Email:          order.CustomerEmail,
			Phone:          &payment.Phone{Number: order.CustomerPhone},
			Identification: &payment.Identification{Type: "CC", Number: order.CustomerDoc},
		},
		BackURLs: payment.BackURLs{
			Success: withOrder(ps.cfg.SuccessURL, order),
			Failure: withOrder(ps.cfg.FailureURL, order),
			Pending: withOrder(ps.cfg.PendingURL, order),
		},
		NotificationURL:     ps.cfg.NotificationURL,
		ExternalReference:   order.ID.String(),
		StatementDescriptor: ps.cfg.StatementDescriptor,
	}
	if req.BackURLs.Success != "" {
		req.AutoReturn = "approved"
	}

	for _, it := range items {
		pi := payment.Item{
			ID:         it.ProductSlug,
			Title:      it.ProductName,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			CurrencyID: ps.cfg.Currency,
		}
		if len(it.Customizations) > 0 {
			parts := make([]string, 0, len(it.Customizations))
			for _, c := range it.Customizations {
				parts = append(parts, c.OptionName+": "+c.ValueName)
			}
			pi.Description = strings.Join(parts, ", ")
		}
		if it.ProductImage != nil {
			pi.PictureURL = *it.ProductImage
		}
		req.Items = append(req.Items, pi)
	}

	if order.ShippingCost.IsPositive() {
		req.Items = append(req.Items, payment.Item{
			ID:         "shipping",
			Title:      "Envío",
			Quantity:   1,
			UnitPrice:  order.ShippingCost,
			CurrencyID: ps.cfg.Currency,
		})
	}
	return req
}

func withOrder(raw string, order *models.Order) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("order", order.ID.String())
	u.RawQuery = q.Encode()
	return u.String()
}

// HandleNotification reconciles one gateway notification. An error means the
// gateway should retry; every other outcome is acknowledged.
func (ps *PaymentService) HandleNotification(ctx context.Context, body []byte, query url.Values) (lifecycle.Outcome, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.HandleNotification")
	defer span.End()

	outcome, err := ps.handleNotification(ctx, body, query)
	util.PaymentWebhooksTotal.WithLabelValues(string(outcome)).Inc()
	if err != nil {
		util.RecordError(span, err)
	}
	return outcome, err
}

func (ps *PaymentService) handleNotification(ctx context.Context, body []byte, query url.Values) (lifecycle.Outcome, error) {
	topic, paymentID, err := payment.ParseNotification(body, query)
	if topic != "" && topic != payment.TopicPayment {
		ps.logger.Info("Ignoring non-payment notification", zap.String("topic", topic))
		return OutcomeIgnored, nil
	}
	if err != nil {
		ps.logger.Warn("Malformed payment notification", zap.Error(err))
		return OutcomeIgnored, invalid("data.id", "%v", err)
	}

	p, err := ps.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		ps.logger.Error("Failed to fetch payment",
			zap.String("payment_id", paymentID), zap.Error(err))
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	logger := ps.logger.With(
		zap.String("payment_id", paymentID),
		zap.String("payment_status", p.Status),
		zap.String("external_reference", p.ExternalReference))

	orderID, err := uuid.Parse(strings.TrimSpace(p.ExternalReference))
	if err != nil {
		logger.Warn("Payment has no usable external reference")
		return OutcomeNoReference, nil
	}

	order, err := ps.store.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Warn("Payment references an unknown order")
			return OutcomeUnknownOrder, nil
		}
		return OutcomeFailed, fmt.Errorf("failed to load order: %w", err)
	}

	method := p.PaymentMethodID
	if method == "" {
		method = p.PaymentTypeID
	}
	update, outcome := lifecycle.ReconcilePayment(order, lifecycle.Payment{
		ID:     p.ID.String(),
		Status: p.Status,
		Method: method,
	}, ps.now())
	if update == nil {
		logger.Info("Payment notification requires no change", zap.String("outcome", string(outcome)))
		return outcome, nil
	}

	if _, err := ps.store.ApplyPayment(ctx, order.ID, *update); err != nil {
		return OutcomeFailed, fmt.Errorf("failed to apply payment: %w", err)
	}
	if update.Status != order.Status {
		util.OrderStatusTransitionsTotal.WithLabelValues(update.Status.String()).Inc()
	}
	logger.Info("Payment applied",
		zap.String("order_id", order.ID.String()),
		zap.String("status", update.Status.String()))
	return outcome, nil
}
