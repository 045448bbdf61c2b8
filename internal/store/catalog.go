package store

import (
	"context"
	"fmt"

	"ninamar-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const productColumns = `p.id, p.category_id, p.name, p.slug, p.description, p.price, p.image_url, p.active, p.created_at`

// ListCategories returns all categories in display order
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.public.SelectContext(ctx, &categories,
		"SELECT id, name, slug, display_order FROM categories ORDER BY display_order, name")
	return categories, err
}

// ListProducts returns active products
func (s *Store) ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	query := "SELECT " + productColumns + " FROM products p LEFT JOIN categories c ON c.id = p.category_id WHERE p.active = TRUE"
	args := []interface{}{}

	if f.CategorySlug != "" {
		args = append(args, f.CategorySlug)
		query += fmt.Sprintf(" AND c.slug = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		query += fmt.Sprintf(" AND (p.name ILIKE $%[1]d OR p.description ILIKE $%[1]d)", len(args))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 24
	}
	args = append(args, limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	products := []models.Product{}
	err := s.public.SelectContext(ctx, &products, query, args...)
	return products, err
}

// GetProductBySlug retrieves an active product
func (s *Store) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var p models.Product
	err := s.public.GetContext(ctx, &p,
		"SELECT "+productColumns+" FROM products p WHERE p.slug = $1 AND p.active = TRUE", slug)
	if err != nil {
		return nil, notFound(err, "product "+slug)
	}
	return &p, nil
}

// GetProductOptions returns the options linked to a product with their available
// values, both in display order. The link's required flag overrides the option default.
func (s *Store) GetProductOptions(ctx context.Context, productID uuid.UUID) ([]models.CustomizationOption, error) {
	options := []models.CustomizationOption{}
	err := s.public.SelectContext(ctx, &options, `
		SELECT o.id, o.name, o.display_name, o.type,
			COALESCE(pc.required, o.required) AS required, o.display_order
		FROM product_customizations pc
		JOIN customization_options o ON o.id = pc.option_id
		WHERE pc.product_id = $1
		ORDER BY o.display_order, o.name`, productID)
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	if len(options) == 0 {
		return options, nil
	}

	ids := make([]uuid.UUID, len(options))
	for i, o := range options {
		ids[i] = o.ID
	}

	query, args, err := sqlx.In(`
		SELECT id, option_id, value, display_name, additional_price, hex_color, image_url, available, display_order
		FROM customization_values
		WHERE option_id IN (?) AND available = TRUE
		ORDER BY display_order, display_name`, ids)
	if err != nil {
		return nil, err
	}
	query = s.public.Rebind(query)

	var values []models.CustomizationValue
	if err := s.public.SelectContext(ctx, &values, query, args...); err != nil {
		return nil, fmt.Errorf("load option values: %w", err)
	}

	byOption := make(map[uuid.UUID]int, len(options))
	for i := range options {
		options[i].Values = []models.CustomizationValue{}
		byOption[options[i].ID] = i
	}
	for _, v := range values {
		if i, ok := byOption[v.OptionID]; ok {
			options[i].Values = append(options[i].Values, v)
		}
	}
	return options, nil
}
