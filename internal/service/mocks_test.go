package service

import (
	"context"
	"time"

	"ninamar-service/internal/models"
	"ninamar-service/internal/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) CreateOrder(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderStore) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockOrderStore) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderStore) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *MockOrderStore) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	args := m.Called(ctx, number)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *MockOrderStore) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	args := m.Called(ctx, key)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *MockOrderStore) GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]models.OrderItem)
	return items, args.Error(1)
}

func (m *MockOrderStore) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, int, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Int(1), args.Error(2)
}

func (m *MockOrderStore) UpdateOrderStatus(ctx context.Context, id uuid.UUID, u models.StatusUpdate) (*models.Order, error) {
	args := m.Called(ctx, id, u)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *MockOrderStore) ApplyPayment(ctx context.Context, id uuid.UUID, u models.PaymentUpdate) (*models.Order, error) {
	args := m.Called(ctx, id, u)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *MockOrderStore) UpsertShipment(ctx context.Context, sh *models.Shipment) error {
	args := m.Called(ctx, sh)
	return args.Error(0)
}

func (m *MockOrderStore) GetShipmentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error) {
	args := m.Called(ctx, orderID)
	sh, _ := args.Get(0).(*models.Shipment)
	return sh, args.Error(1)
}

type MockSequencer struct {
	mock.Mock
}

func (m *MockSequencer) NextDailySequence(ctx context.Context, name string, day time.Time) (int64, error) {
	args := m.Called(ctx, name, day)
	return args.Get(0).(int64), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) OrderCreated(ctx context.Context, order *models.Order, items []models.OrderItem) {
	m.Called(ctx, order, items)
}

func (m *MockNotifier) OrderStatusChanged(ctx context.Context, order *models.Order, items []models.OrderItem, shipment *models.Shipment) {
	m.Called(ctx, order, items, shipment)
}

func (m *MockNotifier) NewsletterSubscribed(ctx context.Context, sub *models.NewsletterSubscriber) {
	m.Called(ctx, sub)
}

func (m *MockNotifier) ContactReceived(ctx context.Context, msg *models.ContactMessage) {
	m.Called(ctx, msg)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreatePreference(ctx context.Context, pref *payment.PreferenceRequest) (*payment.Preference, error) {
	args := m.Called(ctx, pref)
	p, _ := args.Get(0).(*payment.Preference)
	return p, args.Error(1)
}

func (m *MockGateway) GetPayment(ctx context.Context, id string) (*payment.Payment, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*payment.Payment)
	return p, args.Error(1)
}

type MockCatalogStore struct {
	mock.Mock
}

func (m *MockCatalogStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).([]models.Category)
	return c, args.Error(1)
}

func (m *MockCatalogStore) ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	args := m.Called(ctx, f)
	p, _ := args.Get(0).([]models.Product)
	return p, args.Error(1)
}

func (m *MockCatalogStore) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	args := m.Called(ctx, slug)
	p, _ := args.Get(0).(*models.Product)
	return p, args.Error(1)
}

func (m *MockCatalogStore) GetProductOptions(ctx context.Context, productID uuid.UUID) ([]models.CustomizationOption, error) {
	args := m.Called(ctx, productID)
	o, _ := args.Get(0).([]models.CustomizationOption)
	return o, args.Error(1)
}

type MockNewsletterStore struct {
	mock.Mock
}

func (m *MockNewsletterStore) UpsertSubscriber(ctx context.Context, email string, name *string) (*models.NewsletterSubscriber, error) {
	args := m.Called(ctx, email, name)
	s, _ := args.Get(0).(*models.NewsletterSubscriber)
	return s, args.Error(1)
}

func (m *MockNewsletterStore) Unsubscribe(ctx context.Context, token string) (*models.NewsletterSubscriber, error) {
	args := m.Called(ctx, token)
	s, _ := args.Get(0).(*models.NewsletterSubscriber)
	return s, args.Error(1)
}

func (m *MockNewsletterStore) ListSubscribers(ctx context.Context, activeOnly bool) ([]models.NewsletterSubscriber, error) {
	args := m.Called(ctx, activeOnly)
	s, _ := args.Get(0).([]models.NewsletterSubscriber)
	return s, args.Error(1)
}

type MockCampaignSender struct {
	mock.Mock
}

func (m *MockCampaignSender) SendCampaign(ctx context.Context, sub *models.NewsletterSubscriber, subject, body string) error {
	args := m.Called(ctx, sub, subject, body)
	return args.Error(0)
}
