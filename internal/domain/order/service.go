// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrOrderNotFound is returned when an order does not exist or is
	// not visible to the caller
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidStatusTransition is returned for backward or otherwise
	// disallowed status changes
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// Service handles order reads and fulfillment updates. Orders are
// created by the checkout flow, never directly through this service.
type Service struct {
	db *gorm.DB
}

// NewService creates a new order service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page      int         `form:"page,default=1"`
	Limit     int         `form:"limit,default=20"`
	Status    OrderStatus `form:"status"`
	SortBy    string      `form:"sort_by,default=created_at"`
	SortOrder string      `form:"sort_order,default=desc"`
}

// OrderResponse represents order response with pagination
type OrderResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// UpdateStatusRequest represents a fulfillment status change
type UpdateStatusRequest struct {
	Status       OrderStatus `json:"status" binding:"required"`
	TrackingCode string      `json:"tracking_code"`
	Notes        string      `json:"notes"`
}

// TrackingEventRequest represents a new tracking event on an item
type TrackingEventRequest struct {
	Status      string `json:"status" binding:"required"`
	Description string `json:"description" binding:"required"`
	Location    string `json:"location"`
}

// statusTransitions defines the forward-only fulfillment flow.
// Cancellation is allowed from any non-terminal state.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

func isValidStatusTransition(from, to OrderStatus) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ListForBuyer returns the buyer's orders, newest first by default
func (s *Service) ListForBuyer(ctx context.Context, userID uint, req *OrderListRequest) (*OrderResponse, error) {
	return s.list(ctx, req, "user_id = ?", userID)
}

// ListForSupplier returns the orders addressed to a supplier
func (s *Service) ListForSupplier(ctx context.Context, supplierID uint, req *OrderListRequest) (*OrderResponse, error) {
	return s.list(ctx, req, "supplier_id = ?", supplierID)
}

func (s *Service) list(ctx context.Context, req *OrderListRequest, scope string, scopeArg uint) (*OrderResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&Order{}).Where(scope, scopeArg)
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	offset := (req.Page - 1) * req.Limit
	err := query.
		Preload("Items").
		Order(buildOrderClause(req.SortBy, req.SortOrder)).
		Offset(offset).
		Limit(req.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// buildOrderClause builds a safe ORDER BY clause from query parameters
func buildOrderClause(sortBy, sortOrder string) string {
	allowedSortFields := map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"total_amount": true,
		"status":       true,
	}
	if !allowedSortFields[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}
	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}

// GetForBuyer returns one of the buyer's orders with items and tracking
func (s *Service) GetForBuyer(ctx context.Context, userID, orderID uint) (*Order, error) {
	return s.get(ctx, orderID, "user_id = ?", userID)
}

// GetForSupplier returns one of the supplier's orders with items and tracking
func (s *Service) GetForSupplier(ctx context.Context, supplierID, orderID uint) (*Order, error) {
	return s.get(ctx, orderID, "supplier_id = ?", supplierID)
}

func (s *Service) get(ctx context.Context, orderID uint, scope string, scopeArg uint) (*Order, error) {
	var o Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.TrackingEvents", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where(scope, scopeArg).
		First(&o, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &o, nil
}

// ListByCheckout returns every order produced by one checkout
func (s *Service) ListByCheckout(ctx context.Context, userID uint, checkoutID string) ([]Order, error) {
	var orders []Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ? AND checkout_id = ?", userID, checkoutID).
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load checkout orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return orders, nil
}

// UpdateStatus moves one of the supplier's orders through the
// fulfillment flow. The transition must be forward-only; cancellation
// is allowed from any non-terminal state.
func (s *Service) UpdateStatus(ctx context.Context, supplierID, orderID uint, req *UpdateStatusRequest) (*Order, error) {
	o, err := s.GetForSupplier(ctx, supplierID, orderID)
	if err != nil {
		return nil, err
	}

	if !isValidStatusTransition(o.Status, req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, o.Status, req.Status)
	}

	now := time.Now()
	updates := map[string]interface{}{"status": req.Status}
	switch req.Status {
	case OrderStatusProcessing:
		updates["processed_at"] = &now
	case OrderStatusShipped:
		updates["shipped_at"] = &now
	case OrderStatusDelivered:
		updates["delivered_at"] = &now
	case OrderStatusCancelled:
		updates["cancelled_at"] = &now
	}
	if req.Notes != "" {
		updates["notes"] = req.Notes
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(o).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		// Item statuses follow the order unless a line already moved
		// ahead on its own
		itemUpdates := map[string]interface{}{"status": req.Status}
		if req.TrackingCode != "" {
			itemUpdates["tracking_code"] = req.TrackingCode
		}
		if err := tx.Model(&OrderItem{}).
			Where("order_id = ? AND status NOT IN ?", o.ID,
				[]OrderStatus{OrderStatusDelivered, OrderStatusCancelled}).
			Updates(itemUpdates).Error; err != nil {
			return fmt.Errorf("failed to update item statuses: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetForSupplier(ctx, supplierID, orderID)
}

// AppendTrackingEvent records a fulfillment update on one order item.
// Events are append-only and owned by the supplier of the order.
func (s *Service) AppendTrackingEvent(ctx context.Context, supplierID, orderID, itemID uint, req *TrackingEventRequest) (*TrackingEvent, error) {
	o, err := s.GetForSupplier(ctx, supplierID, orderID)
	if err != nil {
		return nil, err
	}

	var item *OrderItem
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			item = &o.Items[i]
			break
		}
	}
	if item == nil {
		return nil, ErrOrderNotFound
	}

	event := TrackingEvent{
		OrderItemID: item.ID,
		Status:      req.Status,
		Description: req.Description,
		Location:    req.Location,
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, fmt.Errorf("failed to record tracking event: %w", err)
	}
	return &event, nil
}

// Tracking returns the tracking events of a buyer's order grouped by
// item, oldest first
func (s *Service) Tracking(ctx context.Context, userID, orderID uint) (*Order, error) {
	return s.GetForBuyer(ctx, userID, orderID)
}
