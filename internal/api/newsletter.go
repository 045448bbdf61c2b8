package api

import (
	"net/http"

	"ninamar-service/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) subscribe(c *gin.Context) {
	var req struct {
		Email string  `json:"email"`
		Name  *string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	sub, err := h.newsletter.Subscribe(c.Request.Context(), req.Email, req.Name)
	if err != nil {
		h.failure(c, err, "No pudimos completar tu suscripción", false)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscribed": sub.Subscribed, "email": sub.Email})
}

func (h *Handler) unsubscribe(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = c.PostForm("token")
	}

	sub, err := h.newsletter.Unsubscribe(c.Request.Context(), token)
	if err != nil {
		h.failure(c, err, "Failed to unsubscribe", false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unsubscribed": true, "email": sub.Email})
}

func (h *Handler) contact(c *gin.Context) {
	var msg models.ContactMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	if err := h.newsletter.SubmitContact(c.Request.Context(), &msg); err != nil {
		h.failure(c, err, "No pudimos enviar tu mensaje", false)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"received": true})
}
