package api

import (
	"net/http"
	"strings"
	"time"

	"ninamar-service/internal/auth"
	"ninamar-service/internal/models"
	"ninamar-service/internal/service"

	"github.com/gin-gonic/gin"
)

const adminCookie = "ninamar_admin"

func (h *Handler) adminLogin(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}
	if h.auth == nil {
		h.failure(c, auth.ErrNotConfigured, "Unauthorized", false)
		return
	}

	token, expires, err := h.auth.Login(req.Password)
	if err != nil {
		h.failure(c, err, "Unauthorized", false)
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(adminCookie, token, int(h.auth.TTL().Seconds()), "/", "", h.secure, true)
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "expires_at": expires})
}

func (h *Handler) adminLogout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(adminCookie, "", -1, "/", "", h.secure, true)
	c.Status(http.StatusNoContent)
}

// requireAdmin rejects requests without a valid admin session before any data access
func (h *Handler) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(adminCookie)
		if bearer := c.GetHeader("Authorization"); token == "" && strings.HasPrefix(bearer, "Bearer ") {
			token = strings.TrimPrefix(bearer, "Bearer ")
		}

		err := auth.ErrNotConfigured
		if h.auth != nil {
			err = h.auth.Verify(token)
		}
		if err != nil {
			h.failure(c, err, "Unauthorized", false)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (h *Handler) adminSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

func queryDate(c *gin.Context, key string, endOfDay bool) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + key, "field": key})
			return nil, false
		}
		return &t, true
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, true
}

func (h *Handler) adminListOrders(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}
	from, ok := queryDate(c, "from", false)
	if !ok {
		return
	}
	to, ok := queryDate(c, "to", true)
	if !ok {
		return
	}

	orders, total, err := h.orders.ListOrders(c.Request.Context(), models.OrderFilter{
		Status:        models.OrderStatus(c.Query("status")),
		PaymentStatus: models.PaymentStatus(c.Query("payment_status")),
		Search:        strings.TrimSpace(c.Query("search")),
		From:          from,
		To:            to,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		h.failure(c, err, "Failed to list orders", true)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total})
}

func (h *Handler) adminGetOrder(c *gin.Context) {
	h.getOrder(c)
}

func (h *Handler) adminUpdateStatus(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req struct {
		Status   models.OrderStatus     `json:"status" binding:"required"`
		Shipment *service.ShipmentInput `json:"shipment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	detail, err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status, req.Shipment)
	if err != nil {
		h.failure(c, err, "Failed to update order status", true)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) adminUpsertShipment(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req service.ShipmentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	shipment, err := h.orders.UpsertShipment(c.Request.Context(), id, &req)
	if err != nil {
		h.failure(c, err, "Failed to save shipment", true)
		return
	}
	c.JSON(http.StatusOK, shipment)
}

func (h *Handler) adminListSubscribers(c *gin.Context) {
	subs, err := h.newsletter.ListSubscribers(c.Request.Context(), c.Query("active") != "false")
	if err != nil {
		h.failure(c, err, "Failed to list subscribers", true)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscribers": subs, "total": len(subs)})
}

func (h *Handler) adminSendCampaign(c *gin.Context) {
	var req service.CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	result, err := h.newsletter.SendCampaign(c.Request.Context(), req)
	if err != nil {
		h.failure(c, err, "Failed to send campaign", true)
		return
	}
	c.JSON(http.StatusOK, result)
}
