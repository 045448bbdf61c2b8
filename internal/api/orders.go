package api

import (
	"io"
	"net/http"

	"ninamar-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

const checkoutFailed = "No pudimos procesar tu pedido. Por favor intenta de nuevo."

func orderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return uuid.Nil, false
	}
	return id, true
}

// createOrder handles checkout submission
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	detail, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		h.failure(c, err, checkoutFailed, false)
		return
	}

	if session := c.GetString(cartSessionKey); session != "" && h.carts != nil {
		if err := h.carts.Clear(c.Request.Context(), session); err != nil {
			h.logger.Warn("Failed to clear cart after checkout", zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, detail)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	detail, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.failure(c, err, "Failed to load order", true)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// trackOrder finds an order by number and customer email
func (h *Handler) trackOrder(c *gin.Context) {
	detail, err := h.orders.TrackOrder(c.Request.Context(), c.Query("order_number"), c.Query("email"))
	if err != nil {
		h.failure(c, err, "Failed to track order", true)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// createPreference starts the hosted checkout of an order
func (h *Handler) createPreference(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	pref, err := h.payments.CreatePreference(c.Request.Context(), id)
	if err != nil {
		h.failure(c, err, "No pudimos iniciar el pago. Por favor intenta de nuevo.", false)
		return
	}

	c.JSON(http.StatusOK, pref)
}

// paymentWebhook receives gateway notifications. Non-2xx answers make the gateway retry.
func (h *Handler) paymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	outcome, err := h.payments.HandleNotification(c.Request.Context(), body, c.Request.URL.Query())
	if err != nil {
		h.failure(c, err, "Failed to process notification", false)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
}
