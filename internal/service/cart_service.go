package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ninamar-service/internal/cart"
	"ninamar-service/internal/pricing"

	"github.com/shopspring/decimal"
)

// CartRepository loads and saves session carts
type CartRepository interface {
	Load(ctx context.Context, sessionID string) (*cart.Cart, error)
	Save(ctx context.Context, c *cart.Cart) error
	Clear(ctx context.Context, sessionID string) error
}

// CartService manages the server-side cart of a shopper session
type CartService struct {
	carts    CartRepository
	catalog  *CatalogService
	shipping *pricing.RateTable
}

// NewCartService creates a cart service. Lines are priced from the catalog.
func NewCartService(carts CartRepository, catalog *CatalogService, shipping *pricing.RateTable) *CartService {
	if shipping == nil {
		shipping = pricing.DefaultRates()
	}
	return &CartService{carts: carts, catalog: catalog, shipping: shipping}
}

// CartView is a cart with its computed totals
type CartView struct {
	*cart.Cart
	Subtotal decimal.Decimal `json:"subtotal"`
	Count    int             `json:"count"`
}

// AddItemRequest adds a configured product to the cart
type AddItemRequest struct {
	ProductSlug string `json:"product_slug"`
	QuoteRequest
}

// ShippingQuote is the live shipping calculation shown at checkout
type ShippingQuote struct {
	Subtotal              decimal.Decimal `json:"subtotal"`
	ShippingCost          decimal.Decimal `json:"shipping_cost"`
	Total                 decimal.Decimal `json:"total"`
	FreeShippingThreshold decimal.Decimal `json:"free_shipping_threshold"`
	FreeShipping          bool            `json:"free_shipping"`
}

func view(c *cart.Cart) *CartView {
	return &CartView{Cart: c, Subtotal: c.Subtotal(), Count: c.Count()}
}

// Get returns the session's cart
func (cs *CartService) Get(ctx context.Context, sessionID string) (*CartView, error) {
	c, err := cs.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return view(c), nil
}

// AddItem quotes the line from the catalog and adds it to the cart
func (cs *CartService) AddItem(ctx context.Context, sessionID string, req AddItemRequest) (*CartView, error) {
	if strings.TrimSpace(req.ProductSlug) == "" {
		return nil, invalid("product_slug", "is required")
	}
	quote, err := cs.catalog.Quote(ctx, req.ProductSlug, req.QuoteRequest)
	if err != nil {
		return nil, err
	}

	c, err := cs.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	p := quote.Product
	item := cart.Item{
		ProductID:      p.ID,
		ProductName:    p.Name,
		ProductSlug:    p.Slug,
		ProductImage:   p.ImageURL,
		BasePrice:      p.Price,
		Customizations: quote.Details,
		Quantity:       quote.Quantity,
		UnitPrice:      quote.UnitPrice,
	}
	if req.Engraving != nil {
		if e := strings.TrimSpace(*req.Engraving); e != "" {
			item.Engraving = &e
		}
	}
	if _, err := c.Add(item); err != nil {
		return nil, cartError(err)
	}

	if err := cs.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return view(c), nil
}

// UpdateItem changes the quantity of a line
func (cs *CartService) UpdateItem(ctx context.Context, sessionID, itemID string, quantity int) (*CartView, error) {
	return cs.mutate(ctx, sessionID, func(c *cart.Cart) error {
		return c.UpdateQuantity(itemID, quantity)
	})
}

// RemoveItem deletes a line
func (cs *CartService) RemoveItem(ctx context.Context, sessionID, itemID string) (*CartView, error) {
	return cs.mutate(ctx, sessionID, func(c *cart.Cart) error {
		return c.Remove(itemID)
	})
}

// Clear empties the session's cart
func (cs *CartService) Clear(ctx context.Context, sessionID string) error {
	return cs.carts.Clear(ctx, sessionID)
}

func (cs *CartService) mutate(ctx context.Context, sessionID string, fn func(c *cart.Cart) error) (*CartView, error) {
	c, err := cs.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, cartError(err)
	}
	if err := cs.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return view(c), nil
}

// QuoteShipping computes shipping for a destination and subtotal
func (cs *CartService) QuoteShipping(region, city string, subtotal decimal.Decimal) (*ShippingQuote, error) {
	if subtotal.IsNegative() {
		return nil, invalid("subtotal", "cannot be negative")
	}
	cost := cs.shipping.Compute(region, city, subtotal)
	return &ShippingQuote{
		Subtotal:              subtotal,
		ShippingCost:          cost,
		Total:                 subtotal.Add(cost),
		FreeShippingThreshold: cs.shipping.Threshold(),
		FreeShipping:          subtotal.GreaterThanOrEqual(cs.shipping.Threshold()),
	}, nil
}

func cartError(err error) error {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		return &ValidationError{Field: "quantity", Message: err.Error()}
	case errors.Is(err, cart.ErrItemNotFound):
		return err
	}
	return fmt.Errorf("cart: %w", err)
}
