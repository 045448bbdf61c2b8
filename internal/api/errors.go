package api

import (
	"errors"
	"net/http"

	"ninamar-service/internal/auth"
	"ninamar-service/internal/cart"
	"ninamar-service/internal/lifecycle"
	"ninamar-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// failure writes the response for err. message is shown when err has no
// specific mapping; details of unmapped errors are only exposed when detailed is set.
func (h *Handler) failure(c *gin.Context, err error, message string, detailed bool) {
	var verr *service.ValidationError
	var notApproved *lifecycle.PaymentNotApprovedError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})

	case errors.As(err, &notApproved):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "Payment not approved",
			"payment_status": notApproved.PaymentStatus,
		})

	case errors.Is(err, lifecycle.ErrUnknownStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "status"})

	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, service.ErrAlreadyPaid),
		errors.Is(err, service.ErrOrderClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrTotalMismatch):
		h.logger.Error("Payment total mismatch", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrSubscriberNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, auth.ErrInvalidPassword),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrNotConfigured):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})

	case errors.Is(err, service.ErrUpstream):
		h.logger.Error("Upstream failure", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": message})

	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		body := gin.H{"error": message}
		if detailed {
			body["details"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}

func (h *Handler) badRequest(c *gin.Context, message string, err error) {
	body := gin.H{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}
