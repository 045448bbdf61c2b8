package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// OrderStatus is the lifecycle state of an order
type OrderStatus string

// Order statuses
const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) String() string {
	return string(s)
}

// PaymentStatus is the payment state recorded on an order
type PaymentStatus string

// Payment statuses
const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusRejected PaymentStatus = "rejected"
)

func (s PaymentStatus) String() string {
	return string(s)
}

// DefaultCountry is used when the checkout form leaves the country empty
const DefaultCountry = "Colombia"

// Order represents a customer purchase
type Order struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	OrderNumber    string          `db:"order_number" json:"order_number"`
	IdempotencyKey *string         `db:"idempotency_key" json:"-"`
	CustomerName   string          `db:"customer_name" json:"customer_name"`
	CustomerEmail  string          `db:"customer_email" json:"customer_email"`
	CustomerPhone  string          `db:"customer_phone" json:"customer_phone"`
	CustomerDoc    string          `db:"customer_document" json:"customer_document"`
	Address        string          `db:"shipping_address" json:"shipping_address"`
	City           string          `db:"shipping_city" json:"shipping_city"`
	Region         string          `db:"shipping_region" json:"shipping_region"`
	PostalCode     *string         `db:"shipping_postal_code" json:"shipping_postal_code,omitempty"`
	Country        string          `db:"shipping_country" json:"shipping_country"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	ShippingCost   decimal.Decimal `db:"shipping_cost" json:"shipping_cost"`
	Total          decimal.Decimal `db:"total" json:"total"`
	Status         OrderStatus     `db:"status" json:"status"`
	PaymentStatus  PaymentStatus   `db:"payment_status" json:"payment_status"`
	PaymentMethod  *string         `db:"payment_method" json:"payment_method,omitempty"`
	PaymentID      *string         `db:"payment_id" json:"payment_id,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
	PaidAt         *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	ProcessingAt   *time.Time      `db:"processing_at" json:"processing_at,omitempty"`
	ShippedAt      *time.Time      `db:"shipped_at" json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time      `db:"delivered_at" json:"delivered_at,omitempty"`
}

// CustomizationDetail is the snapshot of one selected option stored on an order line.
// It is never re-validated against the catalog after the order is placed.
type CustomizationDetail struct {
	OptionName      string          `json:"option_name"`
	ValueName       string          `json:"value_name"`
	AdditionalPrice decimal.Decimal `json:"additional_price"`
}

// CustomizationDetails is stored as JSONB
type CustomizationDetails []CustomizationDetail

// Value implements driver.Valuer
func (d CustomizationDetails) Value() (driver.Value, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner
func (d *CustomizationDetails) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = CustomizationDetails{}
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported customization_details type %T", src)
	}
}

// AdditionalTotal sums the additional prices of all selections
func (d CustomizationDetails) AdditionalTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, c := range d {
		sum = sum.Add(c.AdditionalPrice)
	}
	return sum
}

// OrderItem is one customized product line of an order
type OrderItem struct {
	ID             uuid.UUID            `db:"id" json:"id"`
	OrderID        uuid.UUID            `db:"order_id" json:"order_id"`
	ProductID      *uuid.UUID           `db:"product_id" json:"product_id,omitempty"`
	ProductName    string               `db:"product_name" json:"product_name"`
	ProductSlug    string               `db:"product_slug" json:"product_slug"`
	ProductImage   *string              `db:"product_image" json:"product_image,omitempty"`
	BasePrice      decimal.Decimal      `db:"base_price" json:"base_price"`
	Customizations CustomizationDetails `db:"customization_details" json:"customization_details"`
	Engraving      *string              `db:"engraving" json:"engraving,omitempty"`
	Quantity       int                  `db:"quantity" json:"quantity"`
	UnitPrice      decimal.Decimal      `db:"unit_price" json:"unit_price"`
	TotalPrice     decimal.Decimal      `db:"total_price" json:"total_price"`
	CreatedAt      time.Time            `db:"created_at" json:"created_at"`
}

// Shipment holds carrier tracking for a shipped order
type Shipment struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	OrderID           uuid.UUID  `db:"order_id" json:"order_id"`
	Carrier           string     `db:"carrier" json:"carrier"`
	TrackingNumber    string     `db:"tracking_number" json:"tracking_number"`
	ShippingDate      time.Time  `db:"shipping_date" json:"shipping_date"`
	EstimatedDelivery *time.Time `db:"estimated_delivery" json:"estimated_delivery,omitempty"`
	Notes             *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// OrderFilter narrows admin order listings
type OrderFilter struct {
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Search        string
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

// OrderDetail bundles an order with its lines and shipment
type OrderDetail struct {
	Order    *Order      `json:"order"`
	Items    []OrderItem `json:"items"`
	Shipment *Shipment   `json:"shipment,omitempty"`
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// StatusUpdate is a status change persisted on an order. Nil stamps leave the
// stored value untouched.
type StatusUpdate struct {
	Status       OrderStatus
	PaidAt       *time.Time
	ProcessingAt *time.Time
	ShippedAt    *time.Time
	DeliveredAt  *time.Time
}

// PaymentUpdate is the result of reconciling a gateway payment against an order
type PaymentUpdate struct {
	PaymentStatus PaymentStatus
	PaymentID     string
	PaymentMethod string
	Status        OrderStatus
	PaidAt        *time.Time
}
