package api

import (
	"net/http"

	"ninamar-service/internal/cart"
	"ninamar-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	cartCookie     = "ninamar_cart"
	cartSessionKey = "cart_session"
)

// cartSession resolves the shopper's cart session, issuing a cookie on first visit
func (h *Handler) cartSession() gin.HandlerFunc {
	maxAge := int(cart.DefaultTTL.Seconds())
	return func(c *gin.Context) {
		session, err := c.Cookie(cartCookie)
		if err == nil {
			_, err = uuid.Parse(session)
		}
		if err != nil {
			session = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cartCookie, session, maxAge, "/", "", h.secure, true)
		}
		c.Set(cartSessionKey, session)
		c.Next()
	}
}

func (h *Handler) getCart(c *gin.Context) {
	view, err := h.carts.Get(c.Request.Context(), c.GetString(cartSessionKey))
	if err != nil {
		h.failure(c, err, "Failed to load cart", true)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req service.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	view, err := h.carts.AddItem(c.Request.Context(), c.GetString(cartSessionKey), req)
	if err != nil {
		h.failure(c, err, "Failed to add item", true)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	view, err := h.carts.UpdateItem(c.Request.Context(), c.GetString(cartSessionKey), c.Param("id"), req.Quantity)
	if err != nil {
		h.failure(c, err, "Failed to update item", true)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) removeCartItem(c *gin.Context) {
	view, err := h.carts.RemoveItem(c.Request.Context(), c.GetString(cartSessionKey), c.Param("id"))
	if err != nil {
		h.failure(c, err, "Failed to remove item", true)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), c.GetString(cartSessionKey)); err != nil {
		h.failure(c, err, "Failed to clear cart", true)
		return
	}
	c.Status(http.StatusNoContent)
}
