package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"ninamar-service/internal/lifecycle"
	"ninamar-service/internal/models"
	"ninamar-service/internal/store"
	"ninamar-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultOrderPrefix starts every order number
	DefaultOrderPrefix = "NM"

	dayLayout = "20060102"
)

var totalTolerance = decimal.RequireFromString("0.01")

// OrderService handles order business logic
type OrderService struct {
	store     OrderStore
	sequencer Sequencer
	notifier  Notifier
	prefix    string
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrderService creates a new order service. A nil sequencer falls back to
// random order number suffixes.
func NewOrderService(store OrderStore, sequencer Sequencer, notifier Notifier, prefix string) *OrderService {
	if prefix == "" {
		prefix = DefaultOrderPrefix
	}
	return &OrderService{
		store:     store,
		sequencer: sequencer,
		notifier:  notifier,
		prefix:    prefix,
		logger:    util.Named("orders"),
		now:       time.Now,
	}
}

// CreateOrderRequest represents a checkout submission
type CreateOrderRequest struct {
	CustomerName     string             `json:"customer_name" validate:"required,max=200"`
	CustomerEmail    string             `json:"customer_email" validate:"required,email,max=254"`
	CustomerPhone    string             `json:"customer_phone" validate:"required,max=40"`
	CustomerDocument string             `json:"customer_document" validate:"required,max=40"`
	Address          string             `json:"shipping_address" validate:"required"`
	City             string             `json:"shipping_city" validate:"required,max=120"`
	Region           string             `json:"shipping_region" validate:"required,max=120"`
	PostalCode       string             `json:"shipping_postal_code" validate:"max=20"`
	Country          string             `json:"shipping_country" validate:"max=80"`
	Items            []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	Subtotal         decimal.Decimal    `json:"subtotal"`
	ShippingCost     decimal.Decimal    `json:"shipping_cost"`
	Total            decimal.Decimal    `json:"total"`
	IdempotencyKey   string             `json:"-"`
}

// OrderItemRequest is one configured line of a checkout
type OrderItemRequest struct {
	ProductID      *uuid.UUID                  `json:"product_id"`
	ProductName    string                      `json:"product_name" validate:"required"`
	ProductSlug    string                      `json:"product_slug"`
	ProductImage   *string                     `json:"product_image"`
	BasePrice      decimal.Decimal             `json:"base_price"`
	Customizations models.CustomizationDetails `json:"customization_details"`
	Engraving      *string                     `json:"engraving"`
	Quantity       int                         `json:"quantity" validate:"min=1"`
}

// ShipmentInput is the carrier information attached when an order ships
type ShipmentInput struct {
	Carrier           string     `json:"carrier" validate:"required"`
	TrackingNumber    string     `json:"tracking_number" validate:"required"`
	ShippingDate      *time.Time `json:"shipping_date"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	Notes             *string    `json:"notes"`
}

func (r *CreateOrderRequest) normalize() {
	for _, f := range []*string{
		&r.CustomerName, &r.CustomerEmail, &r.CustomerPhone, &r.CustomerDocument,
		&r.Address, &r.City, &r.Region, &r.PostalCode, &r.Country,
	} {
		*f = strings.TrimSpace(*f)
	}
	for i := range r.Items {
		r.Items[i].ProductName = strings.TrimSpace(r.Items[i].ProductName)
	}
}

func (r *CreateOrderRequest) validate() error {
	r.normalize()
	if err := checkStruct("", r); err != nil {
		return err
	}

	lines := decimal.Zero
	for i, item := range r.Items {
		field := fmt.Sprintf("items[%d]", i)
		if item.BasePrice.IsNegative() {
			return invalid(field+".base_price", "cannot be negative")
		}
		for _, c := range item.Customizations {
			if c.AdditionalPrice.IsNegative() {
				return invalid(field+".customization_details", "additional price cannot be negative")
			}
		}
		lines = lines.Add(lineTotal(item))
	}

	if !r.Subtotal.IsPositive() {
		return invalid("subtotal", "must be greater than 0")
	}
	if r.ShippingCost.IsNegative() {
		return invalid("shipping_cost", "cannot be negative")
	}
	if !r.Total.IsPositive() {
		return invalid("total", "must be greater than 0")
	}
	if r.Subtotal.Add(r.ShippingCost).Sub(r.Total).Abs().GreaterThan(totalTolerance) {
		return invalid("total", "does not equal subtotal plus shipping")
	}
	if lines.Sub(r.Subtotal).Abs().GreaterThan(totalTolerance) {
		return invalid("subtotal", "does not equal the sum of the items")
	}
	return nil
}

func unitPrice(item OrderItemRequest) decimal.Decimal {
	return item.BasePrice.Add(item.Customizations.AdditionalTotal())
}

func lineTotal(item OrderItemRequest) decimal.Decimal {
	return unitPrice(item).Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// CreateOrder validates and persists a checkout, then notifies the customer and the shop
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.OrderDetail, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if err := req.validate(); err != nil {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	if req.IdempotencyKey != "" {
		existing, err := s.store.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate order request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("order_id", existing.ID.String()))
			return s.detail(ctx, existing)
		}
	}

	now := s.now()
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   s.orderNumber(ctx, now),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		CustomerDoc:   req.CustomerDocument,
		Address:       req.Address,
		City:          req.City,
		Region:        req.Region,
		Country:       req.Country,
		Subtotal:      req.Subtotal,
		ShippingCost:  req.ShippingCost,
		Total:         req.Total,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}
	if order.Country == "" {
		order.Country = models.DefaultCountry
	}
	if pc := req.PostalCode; pc != "" {
		order.PostalCode = &pc
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		order.IdempotencyKey = &key
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, store.ErrDuplicateIdempotencyKey) {
			return s.concurrentDuplicate(ctx, req.IdempotencyKey, err)
		}
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, models.OrderItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			ProductSlug:    it.ProductSlug,
			ProductImage:   it.ProductImage,
			BasePrice:      it.BasePrice,
			Customizations: it.Customizations,
			Engraving:      it.Engraving,
			Quantity:       it.Quantity,
			UnitPrice:      unitPrice(it),
			TotalPrice:     lineTotal(it),
			CreatedAt:      now,
		})
	}

	if err := s.store.CreateOrderItems(ctx, items); err != nil {
		util.OrdersFailedTotal.WithLabelValues("items_failed").Inc()
		util.RecordError(span, err)
		if delErr := s.store.DeleteOrder(ctx, order.ID); delErr != nil {
			s.logger.Error("Failed to remove order after item failure",
				zap.String("order_id", order.ID.String()), zap.Error(delErr))
			return nil, fmt.Errorf("failed to create order items: %w", errors.Join(err, delErr))
		}
		return nil, fmt.Errorf("failed to create order items: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.Total.String()))

	s.notifier.OrderCreated(ctx, order, items)

	return &models.OrderDetail{Order: order, Items: items}, nil
}

// concurrentDuplicate resolves a checkout that lost the race for its
// idempotency key to the order that won it
func (s *OrderService) concurrentDuplicate(ctx context.Context, key string, cause error) (*models.OrderDetail, error) {
	existing, err := s.store.GetOrderByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load order for idempotency key: %w", errors.Join(cause, err))
	}
	if existing == nil {
		return nil, fmt.Errorf("failed to create order: %w", cause)
	}
	s.logger.Info("Concurrent duplicate order request",
		zap.String("idempotency_key", key),
		zap.String("order_id", existing.ID.String()))
	return s.detail(ctx, existing)
}

// orderNumber builds PREFIX-YYYYMMDD-NNNN from the daily sequence
func (s *OrderService) orderNumber(ctx context.Context, now time.Time) string {
	day := now.Format(dayLayout)
	if s.sequencer != nil {
		seq, err := s.sequencer.NextDailySequence(ctx, "order", now)
		if err == nil {
			return fmt.Sprintf("%s-%s-%04d", s.prefix, day, seq)
		}
		s.logger.Warn("Order sequence unavailable, using random suffix", zap.Error(err))
	}
	b := make([]byte, 2)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s-%s-%04d", s.prefix, day, now.UnixNano()%10000)
	}
	return fmt.Sprintf("%s-%s-%s", s.prefix, day, strings.ToUpper(hex.EncodeToString(b)))
}

func (s *OrderService) detail(ctx context.Context, order *models.Order) (*models.OrderDetail, error) {
	items, err := s.store.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	shipment, err := s.store.GetShipmentByOrderID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipment: %w", err)
	}
	return &models.OrderDetail{Order: order, Items: items, Shipment: shipment}, nil
}

func (s *OrderService) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

// GetOrder retrieves an order with its lines and shipment
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.OrderDetail, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, order)
}

// TrackOrder finds an order by its number and the customer's email
func (s *OrderService) TrackOrder(ctx context.Context, orderNumber, email string) (*models.OrderDetail, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	email = strings.TrimSpace(email)
	if orderNumber == "" {
		return nil, invalid("order_number", "is required")
	}
	if email == "" {
		return nil, invalid("email", "is required")
	}

	order, err := s.store.GetOrderByNumber(ctx, strings.ToUpper(orderNumber))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if !strings.EqualFold(order.CustomerEmail, email) {
		return nil, ErrOrderNotFound
	}
	return s.detail(ctx, order)
}

// ListOrders returns one page of orders for the back office
func (s *OrderService) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, int, error) {
	if f.Status != "" && !lifecycle.Valid(f.Status) {
		return nil, 0, invalid("status", "unknown status %q", f.Status)
	}
	if f.Limit < 0 || f.Offset < 0 {
		return nil, 0, invalid("limit", "must not be negative")
	}
	return s.store.ListOrders(ctx, f)
}

// UpdateStatus moves an order through its lifecycle. When the order ships the
// optional shipment is stored with it.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, to models.OrderStatus, shipment *ShipmentInput) (*models.OrderDetail, error) {
	ctx, span := util.StartSpanWith(ctx, "OrderService.UpdateStatus", "order_id", id.String(), "status", to.String())
	defer span.End()

	if shipment != nil && to != models.OrderStatusShipped {
		return nil, invalid("shipment", "can only be set when shipping the order")
	}
	if shipment != nil {
		if err := shipment.validate(); err != nil {
			return nil, err
		}
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	change, err := lifecycle.Transition(order, to, s.now())
	if err != nil {
		s.logger.Info("Status update rejected",
			zap.String("order_id", id.String()),
			zap.String("from", order.Status.String()),
			zap.String("to", to.String()),
			zap.Error(err))
		return nil, err
	}

	// shipment before status: a failed save changes nothing
	if shipment != nil {
		shipped := *order
		change.Apply(&shipped)
		if _, err := s.saveShipment(ctx, &shipped, shipment); err != nil {
			util.RecordError(span, err)
			return nil, err
		}
	}

	if change.Changed {
		order, err = s.store.UpdateOrderStatus(ctx, id, change.StatusUpdate)
		if err != nil {
			util.RecordError(span, err)
			return nil, fmt.Errorf("failed to update order status: %w", err)
		}
		util.OrderStatusTransitionsTotal.WithLabelValues(to.String()).Inc()
		s.logger.Info("Order status updated",
			zap.String("order_id", id.String()),
			zap.String("from", change.From.String()),
			zap.String("to", to.String()))
	}

	detail, err := s.detail(ctx, order)
	if err != nil {
		return nil, err
	}
	if change.NotifiesCustomer() {
		s.notifier.OrderStatusChanged(ctx, order, detail.Items, detail.Shipment)
	}
	return detail, nil
}

func (in *ShipmentInput) validate() error {
	in.Carrier = strings.TrimSpace(in.Carrier)
	in.TrackingNumber = strings.TrimSpace(in.TrackingNumber)
	return checkStruct("shipment", in)
}

// UpsertShipment stores the carrier information of an order
func (s *OrderService) UpsertShipment(ctx context.Context, id uuid.UUID, in *ShipmentInput) (*models.Shipment, error) {
	if in == nil {
		return nil, invalid("shipment", "is required")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.saveShipment(ctx, order, in)
}

func (s *OrderService) saveShipment(ctx context.Context, order *models.Order, in *ShipmentInput) (*models.Shipment, error) {
	sh := &models.Shipment{
		ID:                uuid.New(),
		OrderID:           order.ID,
		Carrier:           strings.TrimSpace(in.Carrier),
		TrackingNumber:    strings.TrimSpace(in.TrackingNumber),
		EstimatedDelivery: in.EstimatedDelivery,
		Notes:             in.Notes,
	}
	switch {
	case in.ShippingDate != nil:
		sh.ShippingDate = *in.ShippingDate
	case order.ShippedAt != nil:
		sh.ShippingDate = *order.ShippedAt
	default:
		sh.ShippingDate = s.now()
	}
	if err := s.store.UpsertShipment(ctx, sh); err != nil {
		return nil, fmt.Errorf("failed to save shipment: %w", err)
	}
	return sh, nil
}
