package api

import (
	"net/http"
	"strconv"

	"ninamar-service/internal/models"
	"ninamar-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + key, "field": key})
		return 0, false
	}
	return n, true
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		h.failure(c, err, "Failed to list categories", true)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) listProducts(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}

	products, err := h.catalog.ListProducts(c.Request.Context(), models.ProductFilter{
		CategorySlug: c.Query("category"),
		Search:       c.Query("search"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		h.failure(c, err, "Failed to list products", true)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalog.GetProduct(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.failure(c, err, "Failed to load product", true)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) getProductSteps(c *gin.Context) {
	steps, err := h.catalog.Steps(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.failure(c, err, "Failed to load product", true)
		return
	}
	c.JSON(http.StatusOK, gin.H{"steps": steps})
}

func (h *Handler) quoteProduct(c *gin.Context) {
	var req service.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	quote, err := h.catalog.Quote(c.Request.Context(), c.Param("slug"), req)
	if err != nil {
		h.failure(c, err, "Failed to price product", true)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *Handler) quoteShipping(c *gin.Context) {
	subtotal, err := decimal.NewFromString(c.DefaultQuery("subtotal", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subtotal", "field": "subtotal"})
		return
	}

	quote, err := h.carts.QuoteShipping(c.Query("region"), c.Query("city"), subtotal)
	if err != nil {
		h.failure(c, err, "Failed to quote shipping", true)
		return
	}
	c.JSON(http.StatusOK, quote)
}
