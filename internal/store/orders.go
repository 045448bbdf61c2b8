package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ninamar-service/internal/models"

	"github.com/google/uuid"
)

const orderColumns = `id, order_number, idempotency_key, customer_name, customer_email, customer_phone,
	customer_document, shipping_address, shipping_city, shipping_region, shipping_postal_code,
	shipping_country, subtotal, shipping_cost, total, status, payment_status, payment_method,
	payment_id, created_at, updated_at, paid_at, processing_at, shipped_at, delivered_at`

const itemColumns = `id, order_id, product_id, product_name, product_slug, product_image, base_price,
	customization_details, engraving, quantity, unit_price, total_price, created_at`

// CreateOrder inserts a new order
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	query := `
		INSERT INTO orders (id, order_number, idempotency_key, customer_name, customer_email,
			customer_phone, customer_document, shipping_address, shipping_city, shipping_region,
			shipping_postal_code, shipping_country, subtotal, shipping_cost, total, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		order.ID, order.OrderNumber, order.IdempotencyKey, order.CustomerName, order.CustomerEmail,
		order.CustomerPhone, order.CustomerDoc, order.Address, order.City, order.Region,
		order.PostalCode, order.Country, order.Subtotal, order.ShippingCost, order.Total,
		order.Status, order.PaymentStatus,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if uniqueViolation(err, idempotencyKeyConstraint) {
		return fmt.Errorf("order %s: %w", order.OrderNumber, ErrDuplicateIdempotencyKey)
	}
	return err
}

// CreateOrderItems inserts all lines of an order in one statement
func (s *Store) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, product_name, product_slug, product_image,
			base_price, customization_details, engraving, quantity, unit_price, total_price)
		VALUES (:id, :order_id, :product_id, :product_name, :product_slug, :product_image,
			:base_price, :customization_details, :engraving, :quantity, :unit_price, :total_price)`

	_, err := s.db.NamedExecContext(ctx, query, items)
	return err
}

// DeleteOrder removes an order and, by cascade, its lines
func (s *Store) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	return err
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "order "+id.String())
	}
	return &order, nil
}

// GetOrderByNumber retrieves an order by its public order number
func (s *Store) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE order_number = $1", number)
	if err != nil {
		return nil, notFound(err, "order "+number)
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE idempotency_key = $1", key)
	if err != nil {
		if err = notFound(err, "order"); isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetOrderItems retrieves all lines of an order
func (s *Store) GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT "+itemColumns+" FROM order_items WHERE order_id = $1 ORDER BY created_at, id", orderID)
	return items, err
}

// ListOrders returns one page of orders matching the filter and the total match count
func (s *Store) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.PaymentStatus != "" {
		add("payment_status = $%d", f.PaymentStatus)
	}
	if f.Search != "" {
		add("(order_number ILIKE $%[1]d OR customer_name ILIKE $%[1]d OR customer_email ILIKE $%[1]d)",
			"%"+f.Search+"%")
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at < $%d", *f.To)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM orders"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, f.Offset)
	query := fmt.Sprintf("SELECT %s FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		orderColumns, where, len(args)-1, len(args))

	orders := []models.Order{}
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// UpdateOrderStatus sets the status and fills stamps that are still null
func (s *Store) UpdateOrderStatus(ctx context.Context, id uuid.UUID, u models.StatusUpdate) (*models.Order, error) {
	query := `
		UPDATE orders SET
			status = $1,
			paid_at = COALESCE(paid_at, $2),
			processing_at = COALESCE(processing_at, $3),
			shipped_at = COALESCE(shipped_at, $4),
			delivered_at = COALESCE(delivered_at, $5),
			updated_at = NOW()
		WHERE id = $6
		RETURNING ` + orderColumns

	var order models.Order
	err := s.db.GetContext(ctx, &order, query,
		u.Status, u.PaidAt, u.ProcessingAt, u.ShippedAt, u.DeliveredAt, id)
	if err != nil {
		return nil, notFound(err, "order "+id.String())
	}
	return &order, nil
}

// ApplyPayment records the gateway payment on the order. The status is decided
// against the row as it is at write time: an approval only moves a pending or
// payment-rejected order to u.Status, and a rejection never overwrites an
// approved payment. A skipped write returns the current order.
func (s *Store) ApplyPayment(ctx context.Context, id uuid.UUID, u models.PaymentUpdate) (*models.Order, error) {
	query := `
		UPDATE orders SET
			payment_status = $1,
			payment_id = $2,
			payment_method = $3,
			status = CASE
				WHEN $1 = 'approved' AND NOT (status = 'pending' OR (status = 'cancelled' AND payment_status = 'rejected'))
					THEN status
				ELSE $4
			END,
			paid_at = COALESCE(paid_at, $5),
			updated_at = NOW()
		WHERE id = $6
			AND NOT ($1 = 'rejected' AND payment_status = 'approved')
		RETURNING ` + orderColumns

	var order models.Order
	err := s.db.GetContext(ctx, &order, query,
		u.PaymentStatus, u.PaymentID, u.PaymentMethod, u.Status, u.PaidAt, id)
	if errors.Is(err, sql.ErrNoRows) {
		return s.GetOrderByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpsertShipment creates or replaces the shipment of an order
func (s *Store) UpsertShipment(ctx context.Context, sh *models.Shipment) error {
	if sh.ID == uuid.Nil {
		sh.ID = uuid.New()
	}

	query := `
		INSERT INTO shipments (id, order_id, carrier, tracking_number, shipping_date, estimated_delivery, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (order_id) DO UPDATE SET
			carrier = EXCLUDED.carrier,
			tracking_number = EXCLUDED.tracking_number,
			shipping_date = EXCLUDED.shipping_date,
			estimated_delivery = EXCLUDED.estimated_delivery,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		sh.ID, sh.OrderID, sh.Carrier, sh.TrackingNumber, sh.ShippingDate, sh.EstimatedDelivery, sh.Notes,
	).Scan(&sh.ID, &sh.CreatedAt, &sh.UpdatedAt)
}

// GetShipmentByOrderID returns nil when the order has no shipment
func (s *Store) GetShipmentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error) {
	var sh models.Shipment
	err := s.db.GetContext(ctx, &sh, `
		SELECT id, order_id, carrier, tracking_number, shipping_date, estimated_delivery, notes, created_at, updated_at
		FROM shipments WHERE order_id = $1`, orderID)
	if err != nil {
		if err = notFound(err, "shipment"); isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &sh, nil
}
