// internal/interfaces/http/handlers/coupon.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/checkout"
	"github.com/your-org/marketplace-backend/internal/domain/coupon"
	"github.com/your-org/marketplace-backend/internal/domain/user"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
)

// CouponHandler handles coupon validation and supplier coupon management
type CouponHandler struct {
	couponService *coupon.Service
	cartService   *cart.Service
}

// NewCouponHandler creates a new coupon handler
func NewCouponHandler(couponService *coupon.Service, cartService *cart.Service) *CouponHandler {
	return &CouponHandler{
		couponService: couponService,
		cartService:   cartService,
	}
}

// ValidateCoupon handles POST /coupons/validate. The code is checked
// against the buyer's current cart without redeeming it.
func (h *CouponHandler) ValidateCoupon(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	merged, err := h.cartService.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve cart",
		})
		return
	}

	groups := checkout.PartitionBySupplier(merged.Items)
	validation, err := h.couponService.Validate(c.Request.Context(), req.Code, userID,
		merged.Subtotal, checkout.SupplierSubtotals(groups))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon is valid",
		"data":    validation,
	})
}

// CreateCoupon handles POST /supplier/coupons
func (h *CouponHandler) CreateCoupon(c *gin.Context) {
	supplierID := h.scopeFromContext(c)

	var req coupon.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	created, err := h.couponService.CreateCoupon(c.Request.Context(), supplierID, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Coupon created successfully",
		"data":    created,
	})
}

// ListCoupons handles GET /supplier/coupons and GET /admin/coupons
func (h *CouponHandler) ListCoupons(c *gin.Context) {
	supplierID := h.scopeFromContext(c)

	coupons, err := h.couponService.ListCoupons(c.Request.Context(), supplierID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list coupons",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupons retrieved successfully",
		"data":    coupons,
	})
}

// UpdateCoupon handles PUT /supplier/coupons/:id
func (h *CouponHandler) UpdateCoupon(c *gin.Context) {
	supplierID := h.scopeFromContext(c)

	couponID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coupon ID"})
		return
	}

	var req coupon.UpdateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	updated, err := h.couponService.UpdateCoupon(c.Request.Context(), supplierID, uint(couponID), &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon updated successfully",
		"data":    updated,
	})
}

// DeleteCoupon handles DELETE /supplier/coupons/:id
func (h *CouponHandler) DeleteCoupon(c *gin.Context) {
	supplierID := h.scopeFromContext(c)

	couponID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coupon ID"})
		return
	}

	if err := h.couponService.DeleteCoupon(c.Request.Context(), supplierID, uint(couponID)); err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon deleted successfully",
	})
}

// scopeFromContext returns the ownership scope for coupon management:
// suppliers manage their own coupons, admins manage any (nil scope).
func (h *CouponHandler) scopeFromContext(c *gin.Context) *uint {
	role, _ := middleware.GetUserRoleFromContext(c)
	if role == user.RoleAdmin {
		return nil
	}
	userID, _ := middleware.GetUserIDFromContext(c)
	return &userID
}
