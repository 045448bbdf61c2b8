package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"ninamar-service/internal/lifecycle"
	"ninamar-service/internal/models"
	"ninamar-service/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 17, 14, 0, 0, 0, time.UTC)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newOrderService(st *MockOrderStore, seq *MockSequencer, n *MockNotifier) *OrderService {
	var sequencer Sequencer
	if seq != nil {
		sequencer = seq
	}
	s := NewOrderService(st, sequencer, n, "")
	s.now = func() time.Time { return fixedNow }
	return s
}

func validRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		CustomerName:     "Laura Muñoz",
		CustomerEmail:    "laura@example.com",
		CustomerPhone:    "3001234567",
		CustomerDocument: "1061000000",
		Address:          "Calle 5 # 10-20",
		City:             "Popayán",
		Region:           "Cauca",
		Items: []OrderItemRequest{{
			ProductName: "Anillo Luna",
			ProductSlug: "anillo-luna",
			BasePrice:   dec("40000"),
			Customizations: models.CustomizationDetails{
				{OptionName: "Color", ValueName: "Oro", AdditionalPrice: dec("5000")},
			},
			Quantity: 2,
		}},
		Subtotal:     dec("90000"),
		ShippingCost: dec("5000"),
		Total:        dec("95000"),
	}
}

func TestCreateOrder_Success(t *testing.T) {
	st := new(MockOrderStore)
	seq := new(MockSequencer)
	n := new(MockNotifier)

	seq.On("NextDailySequence", mock.Anything, "order", fixedNow).Return(int64(7), nil)
	st.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil)
	st.On("CreateOrderItems", mock.Anything, mock.Anything).Return(nil)
	n.On("OrderCreated", mock.Anything, mock.Anything, mock.Anything).Return()

	detail, err := newOrderService(st, seq, n).CreateOrder(context.Background(), validRequest())
	require.NoError(t, err)

	order := detail.Order
	assert.Equal(t, "NM-20240517-0007", order.OrderNumber)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, models.DefaultCountry, order.Country)
	assert.Nil(t, order.IdempotencyKey)

	require.Len(t, detail.Items, 1)
	item := detail.Items[0]
	assert.Equal(t, order.ID, item.OrderID)
	assert.True(t, dec("45000").Equal(item.UnitPrice))
	assert.True(t, dec("90000").Equal(item.TotalPrice))

	n.AssertNumberOfCalls(t, "OrderCreated", 1)
	st.AssertExpectations(t)
}

func TestCreateOrder_TotalMismatchRejected(t *testing.T) {
	st := new(MockOrderStore)
	n := new(MockNotifier)

	req := validRequest()
	req.Items[0].Customizations = nil
	req.Items[0].BasePrice = dec("50000")
	req.Items[0].Quantity = 1
	req.Subtotal = dec("50000")
	req.ShippingCost = dec("15000")
	req.Total = dec("66000")

	_, err := newOrderService(st, nil, n).CreateOrder(context.Background(), req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "total", verr.Field)
	st.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "OrderCreated", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder_TotalWithinTolerance(t *testing.T) {
	st := new(MockOrderStore)
	n := new(MockNotifier)
	st.On("CreateOrder", mock.Anything, mock.Anything).Return(nil)
	st.On("CreateOrderItems", mock.Anything, mock.Anything).Return(nil)
	n.On("OrderCreated", mock.Anything, mock.Anything, mock.Anything).Return()

	req := validRequest()
	req.Total = dec("95000.01")

	_, err := newOrderService(st, nil, n).CreateOrder(context.Background(), req)
	assert.NoError(t, err)
}

func TestCreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *CreateOrderRequest)
		field  string
	}{
		{"missing name", func(r *CreateOrderRequest) { r.CustomerName = " " }, "customer_name"},
		{"malformed email", func(r *CreateOrderRequest) { r.CustomerEmail = "laura.example.com" }, "customer_email"},
		{"missing document", func(r *CreateOrderRequest) { r.CustomerDocument = "" }, "customer_document"},
		{"missing region", func(r *CreateOrderRequest) { r.Region = "" }, "shipping_region"},
		{"no items", func(r *CreateOrderRequest) { r.Items = nil }, "items"},
		{"empty items", func(r *CreateOrderRequest) { r.Items = []OrderItemRequest{} }, "items"},
		{"blank product name", func(r *CreateOrderRequest) { r.Items[0].ProductName = "  " }, "items[0].product_name"},
		{"name too long", func(r *CreateOrderRequest) { r.CustomerName = strings.Repeat("a", 201) }, "customer_name"},
		{"zero quantity", func(r *CreateOrderRequest) { r.Items[0].Quantity = 0 }, "items[0].quantity"},
		{"negative shipping", func(r *CreateOrderRequest) { r.ShippingCost = dec("-1") }, "shipping_cost"},
		{"zero subtotal", func(r *CreateOrderRequest) { r.Subtotal = decimal.Zero }, "subtotal"},
		{"items do not add up", func(r *CreateOrderRequest) {
			r.Subtotal = dec("80000")
			r.Total = dec("85000")
		}, "subtotal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := new(MockOrderStore)
			req := validRequest()
			tt.mutate(req)

			_, err := newOrderService(st, nil, new(MockNotifier)).CreateOrder(context.Background(), req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			st.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateOrder_ItemFailureRemovesOrder(t *testing.T) {
	st := new(MockOrderStore)
	n := new(MockNotifier)

	var created *models.Order
	st.On("CreateOrder", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { created = args.Get(1).(*models.Order) }).
		Return(nil)
	st.On("CreateOrderItems", mock.Anything, mock.Anything).Return(errors.New("insert failed"))
	st.On("DeleteOrder", mock.Anything, mock.Anything).Return(nil)

	_, err := newOrderService(st, nil, n).CreateOrder(context.Background(), validRequest())
	require.Error(t, err)

	require.NotNil(t, created)
	st.AssertCalled(t, "DeleteOrder", mock.Anything, created.ID)
	n.AssertNotCalled(t, "OrderCreated", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder_IdempotencyKey(t *testing.T) {
	st := new(MockOrderStore)
	n := new(MockNotifier)

	existing := &models.Order{ID: uuid.New(), OrderNumber: "NM-20240517-0001"}
	st.On("GetOrderByIdempotencyKey", mock.Anything, "key-1").Return(existing, nil)
	st.On("GetOrderItems", mock.Anything, existing.ID).Return([]models.OrderItem{{ProductName: "Anillo"}}, nil)
	st.On("GetShipmentByOrderID", mock.Anything, existing.ID).Return(nil, nil)

	req := validRequest()
	req.IdempotencyKey = "key-1"
	detail, err := newOrderService(st, nil, n).CreateOrder(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, existing, detail.Order)
	assert.Len(t, detail.Items, 1)
	st.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "OrderCreated", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder_ConcurrentIdempotencyKey(t *testing.T) {
	st := new(MockOrderStore)
	n := new(MockNotifier)

	winner := &models.Order{ID: uuid.New(), OrderNumber: "NM-20240517-0002"}
	st.On("GetOrderByIdempotencyKey", mock.Anything, "key-2").Return(nil, nil).Once()
	st.On("CreateOrder", mock.Anything, mock.Anything).
		Return(fmt.Errorf("order NM-20240517-0003: %w", store.ErrDuplicateIdempotencyKey))
	st.On("GetOrderByIdempotencyKey", mock.Anything, "key-2").Return(winner, nil).Once()
	st.On("GetOrderItems", mock.Anything, winner.ID).Return([]models.OrderItem{{ProductName: "Anillo"}}, nil)
	st.On("GetShipmentByOrderID", mock.Anything, winner.ID).Return(nil, nil)

	req := validRequest()
	req.IdempotencyKey = "key-2"
	detail, err := newOrderService(st, nil, n).CreateOrder(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, winner, detail.Order)
	st.AssertNotCalled(t, "CreateOrderItems", mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "OrderCreated", mock.Anything, mock.Anything, mock.Anything)
	st.AssertExpectations(t)
}

func TestCreateOrder_SequenceFallback(t *testing.T) {
	st := new(MockOrderStore)
	seq := new(MockSequencer)
	n := new(MockNotifier)

	seq.On("NextDailySequence", mock.Anything, "order", fixedNow).Return(int64(0), errors.New("redis down"))
	st.On("CreateOrder", mock.Anything, mock.Anything).Return(nil)
	st.On("CreateOrderItems", mock.Anything, mock.Anything).Return(nil)
	n.On("OrderCreated", mock.Anything, mock.Anything, mock.Anything).Return()

	detail, err := newOrderService(st, seq, n).CreateOrder(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Regexp(t, `^NM-20240517-[0-9A-F]{4}$`, detail.Order.OrderNumber)
}

func TestUpdateStatus_PaymentNotApproved(t *testing.T) {
	st := new(MockOrderStore)
	n := new(MockNotifier)

	order := &models.Order{ID: uuid.New(), Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusPending}
	st.On("GetOrderByID", mock.Anything, order.ID).Return(order, nil)

	_, err := newOrderService(st, nil, n).UpdateStatus(context.Background(), order.ID, models.OrderStatusProcessing, nil)

	var notApproved *lifecycle.PaymentNotApprovedError
	require.ErrorAs(t, err, &notApproved)
	assert.Equal(t, models.PaymentStatusPending, notApproved.PaymentStatus)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	st.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "OrderStatusChanged", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus_ShipWithShipment(t *testing.T) {
	st := new(MockOrderStore)
	n := new(MockNotifier)

	paidAt := fixedNow.Add(-48 * time.Hour)
	order := &models.Order{
		ID: uuid.New(), Status: models.OrderStatusPaid,
		PaymentStatus: models.PaymentStatusApproved, PaidAt: &paidAt,
	}
	shipped := *order
	shipped.Status = models.OrderStatusShipped
	shipped.ProcessingAt = &fixedNow
	shipped.ShippedAt = &fixedNow
	shipment := &models.Shipment{OrderID: order.ID, Carrier: "Servientrega", TrackingNumber: "SV123"}

	st.On("GetOrderByID", mock.Anything, order.ID).Return(order, nil)
	st.On("UpdateOrderStatus", mock.Anything, order.ID, mock.MatchedBy(func(u models.StatusUpdate) bool {
		return u.Status == models.OrderStatusShipped && u.PaidAt == nil &&
			u.ProcessingAt != nil && u.ShippedAt != nil && u.DeliveredAt == nil
	})).Return(&shipped, nil)
	st.On("UpsertShipment", mock.Anything, mock.MatchedBy(func(sh *models.Shipment) bool {
		return sh.Carrier == "Servientrega" && sh.ShippingDate.Equal(fixedNow)
	})).Return(nil)
	st.On("GetOrderItems", mock.Anything, order.ID).Return([]models.OrderItem{}, nil)
	st.On("GetShipmentByOrderID", mock.Anything, order.ID).Return(shipment, nil)
	n.On("OrderStatusChanged", mock.Anything, &shipped, mock.Anything, shipment).Return()

	detail, err := newOrderService(st, nil, n).UpdateStatus(context.Background(), order.ID, models.OrderStatusShipped,
		&ShipmentInput{Carrier: "Servientrega", TrackingNumber: "SV123"})

	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, detail.Order.Status)
	assert.Equal(t, shipment, detail.Shipment)
	st.AssertExpectations(t)
	n.AssertExpectations(t)
}

func TestUpdateStatus_ShipmentFailureLeavesStatusForRetry(t *testing.T) {
	st := new(MockOrderStore)
	n := new(MockNotifier)

	order := &models.Order{ID: uuid.New(), Status: models.OrderStatusProcessing, PaymentStatus: models.PaymentStatusApproved}
	shipped := *order
	shipped.Status = models.OrderStatusShipped
	shipped.ShippedAt = &fixedNow
	input := &ShipmentInput{Carrier: "Servientrega", TrackingNumber: "SV123"}

	st.On("GetOrderByID", mock.Anything, order.ID).Return(order, nil)
	st.On("UpsertShipment", mock.Anything, mock.Anything).Return(errors.New("db blip")).Once()

	_, err := newOrderService(st, nil, n).UpdateStatus(context.Background(), order.ID, models.OrderStatusShipped, input)

	require.Error(t, err)
	st.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "OrderStatusChanged", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	shipment := &models.Shipment{OrderID: order.ID, Carrier: "Servientrega", TrackingNumber: "SV123"}
	st.On("UpsertShipment", mock.Anything, mock.Anything).Return(nil).Once()
	st.On("UpdateOrderStatus", mock.Anything, order.ID, mock.Anything).Return(&shipped, nil)
	st.On("GetOrderItems", mock.Anything, order.ID).Return([]models.OrderItem{}, nil)
	st.On("GetShipmentByOrderID", mock.Anything, order.ID).Return(shipment, nil)
	n.On("OrderStatusChanged", mock.Anything, &shipped, mock.Anything, shipment).Return()

	detail, err := newOrderService(st, nil, n).UpdateStatus(context.Background(), order.ID, models.OrderStatusShipped, input)

	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, detail.Order.Status)
	n.AssertNumberOfCalls(t, "OrderStatusChanged", 1)
	st.AssertExpectations(t)
}

func TestUpdateStatus_SameStatusIsNoop(t *testing.T) {
	st := new(MockOrderStore)
	n := new(MockNotifier)

	order := &models.Order{ID: uuid.New(), Status: models.OrderStatusProcessing, PaymentStatus: models.PaymentStatusApproved}
	st.On("GetOrderByID", mock.Anything, order.ID).Return(order, nil)
	st.On("GetOrderItems", mock.Anything, order.ID).Return([]models.OrderItem{}, nil)
	st.On("GetShipmentByOrderID", mock.Anything, order.ID).Return(nil, nil)

	_, err := newOrderService(st, nil, n).UpdateStatus(context.Background(), order.ID, models.OrderStatusProcessing, nil)

	require.NoError(t, err)
	st.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "OrderStatusChanged", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus_CancelDoesNotNotify(t *testing.T) {
	st := new(MockOrderStore)
	n := new(MockNotifier)

	order := &models.Order{ID: uuid.New(), Status: models.OrderStatusPaid, PaymentStatus: models.PaymentStatusApproved}
	cancelled := *order
	cancelled.Status = models.OrderStatusCancelled
	st.On("GetOrderByID", mock.Anything, order.ID).Return(order, nil)
	st.On("UpdateOrderStatus", mock.Anything, order.ID, mock.Anything).Return(&cancelled, nil)
	st.On("GetOrderItems", mock.Anything, order.ID).Return([]models.OrderItem{}, nil)
	st.On("GetShipmentByOrderID", mock.Anything, order.ID).Return(nil, nil)

	detail, err := newOrderService(st, nil, n).UpdateStatus(context.Background(), order.ID, models.OrderStatusCancelled, nil)

	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, detail.Order.Status)
	n.AssertNotCalled(t, "OrderStatusChanged", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus_Errors(t *testing.T) {
	st := new(MockOrderStore)
	missing := uuid.New()
	st.On("GetOrderByID", mock.Anything, missing).Return(nil, store.ErrNotFound)

	s := newOrderService(st, nil, new(MockNotifier))

	_, err := s.UpdateStatus(context.Background(), missing, models.OrderStatusPaid, nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = s.UpdateStatus(context.Background(), missing, models.OrderStatusDelivered, &ShipmentInput{Carrier: "x", TrackingNumber: "y"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestTrackOrder(t *testing.T) {
	st := new(MockOrderStore)
	order := &models.Order{ID: uuid.New(), OrderNumber: "NM-20240517-0003", CustomerEmail: "Laura@Example.com"}
	st.On("GetOrderByNumber", mock.Anything, "NM-20240517-0003").Return(order, nil)
	st.On("GetOrderByNumber", mock.Anything, "NM-20240517-9999").Return(nil, store.ErrNotFound)
	st.On("GetOrderItems", mock.Anything, order.ID).Return([]models.OrderItem{}, nil)
	st.On("GetShipmentByOrderID", mock.Anything, order.ID).Return(nil, nil)

	s := newOrderService(st, nil, new(MockNotifier))

	detail, err := s.TrackOrder(context.Background(), "nm-20240517-0003", " laura@example.com ")
	require.NoError(t, err)
	assert.Equal(t, order, detail.Order)

	_, err = s.TrackOrder(context.Background(), "NM-20240517-0003", "someone@example.com")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = s.TrackOrder(context.Background(), "NM-20240517-9999", "laura@example.com")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = s.TrackOrder(context.Background(), "", "laura@example.com")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
