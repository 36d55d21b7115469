// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/domain/checkout"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
)

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	checkoutService *checkout.Service
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// GetShippingQuotes handles GET /checkout/shipping-quotes?address_id=N
func (h *CheckoutHandler) GetShippingQuotes(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	addressID, err := strconv.ParseUint(c.Query("address_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "address_id query parameter is required",
		})
		return
	}

	options, err := h.checkoutService.Quotes(c.Request.Context(), userID, uint(addressID))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shipping quotes retrieved successfully",
		"data":    options,
	})
}

// Checkout handles POST /checkout
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req checkout.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	result, err := h.checkoutService.Checkout(c.Request.Context(), userID, &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Checkout completed successfully",
		"data":    result,
	})
}
