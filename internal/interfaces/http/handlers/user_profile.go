// internal/interfaces/http/handlers/user_profile.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/domain/user"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// UserProfileHandler handles user profile endpoints
type UserProfileHandler struct {
	userService *user.Service
	db          *gorm.DB
}

// NewUserProfileHandler creates a new user profile handler
func NewUserProfileHandler(userService *user.Service, db *gorm.DB) *UserProfileHandler {
	return &UserProfileHandler{
		userService: userService,
		db:          db,
	}
}

// GetProfile handles GET /users/profile
func (h *UserProfileHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	profile, err := h.userService.GetProfile(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile retrieved successfully",
		"data":    profile,
	})
}

// UpdateProfile handles PUT /users/profile
func (h *UserProfileHandler) UpdateProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	var req struct {
		FirstName   *string `json:"first_name,omitempty"`
		LastName    *string `json:"last_name,omitempty"`
		Phone       *string `json:"phone,omitempty"`
		CompanyName *string `json:"company_name,omitempty"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	updates := make(map[string]interface{})
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.CompanyName != nil {
		updates["company_name"] = *req.CompanyName
	}

	profile, err := h.userService.UpdateProfile(userID, updates)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"data":    profile,
	})
}

// GetDashboard handles GET /users/dashboard
func (h *UserProfileHandler) GetDashboard(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	profile, err := h.userService.GetProfile(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get user profile",
		})
		return
	}

	stats, err := h.getUserDashboardStats(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get user statistics",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Dashboard data retrieved successfully",
		"data": gin.H{
			"user":  profile,
			"stats": stats,
		},
	})
}

// GetAccount handles GET /users/account
func (h *UserProfileHandler) GetAccount(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	var account user.User
	if err := h.db.Preload("Addresses").Where("id = ?", userID).First(&account).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "User not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Account information retrieved successfully",
		"data":    account,
	})
}

// getUserDashboardStats gets dashboard statistics for a user
func (h *UserProfileHandler) getUserDashboardStats(userID uint) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var orderCount int64
	h.db.Raw("SELECT COUNT(*) FROM orders WHERE user_id = ? AND deleted_at IS NULL", userID).Scan(&orderCount)
	stats["total_orders"] = orderCount

	var totalSpent int64
	h.db.Raw("SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE user_id = ? AND status != 'cancelled' AND deleted_at IS NULL", userID).Scan(&totalSpent)
	stats["total_spent"] = totalSpent

	var pendingOrders int64
	h.db.Raw("SELECT COUNT(*) FROM orders WHERE user_id = ? AND status IN ('pending', 'processing') AND deleted_at IS NULL", userID).Scan(&pendingOrders)
	stats["pending_orders"] = pendingOrders

	var addressCount int64
	h.db.Raw("SELECT COUNT(*) FROM addresses WHERE user_id = ?", userID).Scan(&addressCount)
	stats["address_count"] = addressCount

	type recentOrder struct {
		ID          uint   `json:"id"`
		OrderNumber string `json:"order_number"`
		Status      string `json:"status"`
		TotalAmount int64  `json:"total_amount"`
		CreatedAt   string `json:"created_at"`
	}

	var recentOrders []recentOrder
	h.db.Raw(`
		SELECT id, order_number, status, total_amount, created_at
		FROM orders
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 5
	`, userID).Scan(&recentOrders)
	stats["recent_orders"] = recentOrders

	return stats, nil
}
