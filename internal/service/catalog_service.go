package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ninamar-service/internal/models"
	"ninamar-service/internal/pricing"
	"ninamar-service/internal/store"
	"ninamar-service/internal/util"

	"go.uber.org/zap"
)

// CatalogCacheTTL is how long catalog reads are served from the cache
const CatalogCacheTTL = time.Minute

// CatalogService serves the public catalog
type CatalogService struct {
	store  CatalogStore
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCatalogService creates a catalog service. A nil cache reads straight from the store.
func NewCatalogService(store CatalogStore, cache Cache, ttl time.Duration) *CatalogService {
	if ttl <= 0 {
		ttl = CatalogCacheTTL
	}
	return &CatalogService{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		logger: util.Named("catalog"),
	}
}

// QuoteRequest is a configured line to price
type QuoteRequest struct {
	Selections pricing.Selections `json:"selections"`
	Engraving  *string            `json:"engraving"`
	Quantity   int                `json:"quantity"`
}

// ProductQuote is a priced line together with the product it belongs to
type ProductQuote struct {
	Product *models.ProductDetail `json:"-"`
	pricing.Quote
}

// cached reads key from the cache, or calls load and stores its result
func (cs *CatalogService) cached(ctx context.Context, key string, dest interface{}, load func() error) error {
	if cs.cache != nil {
		hit, err := cs.cache.GetJSON(ctx, key, dest)
		if err != nil {
			cs.logger.Warn("Catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		if hit {
			util.CatalogCacheTotal.WithLabelValues("hit").Inc()
			return nil
		}
		util.CatalogCacheTotal.WithLabelValues("miss").Inc()
	}

	if err := load(); err != nil {
		return err
	}

	if cs.cache != nil {
		if err := cs.cache.SetJSON(ctx, key, dest, cs.ttl); err != nil {
			cs.logger.Warn("Catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// ListCategories returns all categories
func (cs *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := cs.cached(ctx, "catalog:categories", &categories, func() (err error) {
		categories, err = cs.store.ListCategories(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// ListProducts returns active products matching the filter
func (cs *CatalogService) ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	if f.Limit < 0 || f.Offset < 0 {
		return nil, invalid("limit", "must not be negative")
	}
	f.Search = strings.TrimSpace(f.Search)

	key := fmt.Sprintf("catalog:products:%s:%s:%d:%d", f.CategorySlug, strings.ToLower(f.Search), f.Limit, f.Offset)
	var products []models.Product
	err := cs.cached(ctx, key, &products, func() (err error) {
		products, err = cs.store.ListProducts(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetProduct returns a product with its customization options
func (cs *CatalogService) GetProduct(ctx context.Context, slug string) (*models.ProductDetail, error) {
	var detail models.ProductDetail
	err := cs.cached(ctx, "catalog:product:"+slug, &detail, func() error {
		product, err := cs.store.GetProductBySlug(ctx, slug)
		if err != nil {
			return err
		}
		options, err := cs.store.GetProductOptions(ctx, product.ID)
		if err != nil {
			return err
		}
		detail = models.ProductDetail{Product: *product, Options: options}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &detail, nil
}

// Steps returns the guided configurator steps of a product
func (cs *CatalogService) Steps(ctx context.Context, slug string) ([]pricing.Step, error) {
	detail, err := cs.GetProduct(ctx, slug)
	if err != nil {
		return nil, err
	}
	return pricing.Steps(pricing.OptionsFromCatalog(detail.Options)), nil
}

// Quote prices a configured line of a product
func (cs *CatalogService) Quote(ctx context.Context, slug string, req QuoteRequest) (*ProductQuote, error) {
	detail, err := cs.GetProduct(ctx, slug)
	if err != nil {
		return nil, err
	}

	options := pricing.OptionsFromCatalog(detail.Options)
	selections := make(pricing.Selections, len(req.Selections)+1)
	for k, v := range req.Selections {
		selections[k] = v
	}
	if req.Engraving != nil && strings.TrimSpace(*req.Engraving) != "" {
		for _, o := range options {
			if o.Type == models.OptionTypeText {
				if _, set := selections[o.Name]; !set {
					selections[o.Name] = *req.Engraving
				}
				break
			}
		}
	}

	quote, err := pricing.Accumulate(detail.Price, options, selections, req.Quantity)
	if err != nil {
		return nil, quoteError(err)
	}
	return &ProductQuote{Product: detail, Quote: *quote}, nil
}

// quoteError turns accumulator rejections into field-level validation errors
func quoteError(err error) error {
	var missing *pricing.MissingSelectionError
	var bad *pricing.InvalidSelectionError
	switch {
	case errors.As(err, &missing):
		return &ValidationError{Field: "selections", Message: err.Error()}
	case errors.As(err, &bad):
		return &ValidationError{Field: "selections", Message: err.Error()}
	case errors.Is(err, pricing.ErrInvalidQuantity):
		return &ValidationError{Field: "quantity", Message: err.Error()}
	case errors.Is(err, pricing.ErrNegativePrice):
		return &ValidationError{Field: "price", Message: err.Error()}
	}
	return err
}
