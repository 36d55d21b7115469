// internal/interfaces/http/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/checkout"
	"github.com/your-org/marketplace-backend/internal/domain/coupon"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/domain/shipping"
)

// respondDomainError maps domain sentinel errors onto HTTP status
// codes. Anything unmapped is a persistence or programming failure and
// surfaces as a generic 500 so internals never leak to clients.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, cart.ErrCartItemNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, coupon.ErrCouponNotFound),
		errors.Is(err, checkout.ErrAddressNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCouponNotYetValid),
		errors.Is(err, coupon.ErrCouponExhausted),
		errors.Is(err, coupon.ErrCouponAlreadyUsed),
		errors.Is(err, coupon.ErrMinimumOrderNotMet),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrShippingNotSelected),
		errors.Is(err, checkout.ErrItemUnavailable),
		errors.Is(err, order.ErrInvalidStatusTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	case errors.Is(err, coupon.ErrNotCouponOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, checkout.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, shipping.ErrQuoteUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
