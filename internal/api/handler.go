package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"ninamar-service/internal/auth"
	"ninamar-service/internal/service"
	"ninamar-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Check reports whether a dependency is reachable
type Check func(ctx context.Context) error

// Deps are the services the HTTP layer serves
type Deps struct {
	Orders     *service.OrderService
	Payments   *service.PaymentService
	Catalog    *service.CatalogService
	Carts      *service.CartService
	Newsletter *service.NewsletterService
	Auth       *auth.Authenticator
	Checks     map[string]Check
	// SecureCookies marks session cookies as HTTPS only
	SecureCookies bool
}

// Handler contains HTTP handlers
type Handler struct {
	orders     *service.OrderService
	payments   *service.PaymentService
	catalog    *service.CatalogService
	carts      *service.CartService
	newsletter *service.NewsletterService
	auth       *auth.Authenticator
	checks     map[string]Check
	secure     bool
	logger     *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Deps) *Handler {
	return &Handler{
		orders:     deps.Orders,
		payments:   deps.Payments,
		catalog:    deps.Catalog,
		carts:      deps.Carts,
		newsletter: deps.Newsletter,
		auth:       deps.Auth,
		checks:     deps.Checks,
		secure:     deps.SecureCookies,
		logger:     util.Named("api"),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/categories", h.listCategories)
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:slug", h.getProduct)
		v1.GET("/products/:slug/steps", h.getProductSteps)
		v1.POST("/products/:slug/quote", h.quoteProduct)
		v1.GET("/shipping/quote", h.quoteShipping)

		cart := v1.Group("/cart", h.cartSession())
		{
			cart.GET("", h.getCart)
			cart.DELETE("", h.clearCart)
			cart.POST("/items", h.addCartItem)
			cart.PATCH("/items/:id", h.updateCartItem)
			cart.DELETE("/items/:id", h.removeCartItem)
		}

		v1.POST("/orders", h.cartSession(), h.createOrder)
		v1.GET("/orders/track", h.trackOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/payment", h.createPreference)

		v1.POST("/payments/webhook", h.paymentWebhook)

		v1.POST("/newsletter/subscribe", h.subscribe)
		v1.GET("/newsletter/unsubscribe", h.unsubscribe)
		v1.POST("/newsletter/unsubscribe", h.unsubscribe)
		v1.POST("/contact", h.contact)

		v1.POST("/admin/login", h.adminLogin)
		v1.POST("/admin/logout", h.adminLogout)

		admin := v1.Group("/admin", h.requireAdmin())
		{
			admin.GET("/session", h.adminSession)
			admin.GET("/orders", h.adminListOrders)
			admin.GET("/orders/:id", h.adminGetOrder)
			admin.PATCH("/orders/:id/status", h.adminUpdateStatus)
			admin.PUT("/orders/:id/shipment", h.adminUpsertShipment)
			admin.GET("/newsletter/subscribers", h.adminListSubscribers)
			admin.POST("/newsletter/campaigns", h.adminSendCampaign)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when every dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
