package service

import (
	"context"
	"time"

	"ninamar-service/internal/models"
	"ninamar-service/internal/payment"

	"github.com/google/uuid"
)

// OrderStore persists orders, their lines and shipments
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, int, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, u models.StatusUpdate) (*models.Order, error)
	ApplyPayment(ctx context.Context, id uuid.UUID, u models.PaymentUpdate) (*models.Order, error)
	UpsertShipment(ctx context.Context, sh *models.Shipment) error
	GetShipmentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error)
}

// CatalogStore reads the public catalog
type CatalogStore interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	GetProductOptions(ctx context.Context, productID uuid.UUID) ([]models.CustomizationOption, error)
}

// NewsletterStore persists mailing list subscriptions
type NewsletterStore interface {
	UpsertSubscriber(ctx context.Context, email string, name *string) (*models.NewsletterSubscriber, error)
	Unsubscribe(ctx context.Context, token string) (*models.NewsletterSubscriber, error)
	ListSubscribers(ctx context.Context, activeOnly bool) ([]models.NewsletterSubscriber, error)
}

// Sequencer hands out per-day counters
type Sequencer interface {
	NextDailySequence(ctx context.Context, name string, day time.Time) (int64, error)
}

// Cache is a JSON key-value cache
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// PaymentGateway is the hosted checkout provider
type PaymentGateway interface {
	CreatePreference(ctx context.Context, pref *payment.PreferenceRequest) (*payment.Preference, error)
	GetPayment(ctx context.Context, id string) (*payment.Payment, error)
}

// Notifier sends customer and admin notifications without blocking
type Notifier interface {
	OrderCreated(ctx context.Context, order *models.Order, items []models.OrderItem)
	OrderStatusChanged(ctx context.Context, order *models.Order, items []models.OrderItem, shipment *models.Shipment)
	NewsletterSubscribed(ctx context.Context, sub *models.NewsletterSubscriber)
	ContactReceived(ctx context.Context, msg *models.ContactMessage)
}

// CampaignSender mails one newsletter campaign to one subscriber
type CampaignSender interface {
	SendCampaign(ctx context.Context, sub *models.NewsletterSubscriber, subject, body string) error
}
