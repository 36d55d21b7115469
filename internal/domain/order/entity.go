// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Order is one supplier's slice of a checkout. A checkout that spans N
// suppliers produces N orders sharing the same CheckoutID.
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	CheckoutID  string      `gorm:"not null;index;size:36" json:"checkout_id"`
	UserID      uint        `gorm:"not null;index" json:"user_id"`
	SupplierID  uint        `gorm:"not null;index" json:"supplier_id"`
	Status      OrderStatus `gorm:"not null;default:'pending'" json:"status"`

	// Financial information, all in cents. Shipping and discount are
	// this order's attributed share of the checkout totals.
	SubtotalAmount int64  `gorm:"not null" json:"subtotal_amount"`
	ShippingAmount int64  `gorm:"default:0" json:"shipping_amount"`
	DiscountAmount int64  `gorm:"default:0" json:"discount_amount"`
	TotalAmount    int64  `gorm:"not null" json:"total_amount"`
	Currency       string `gorm:"size:3;default:'BRL'" json:"currency"`

	// Delivery address frozen at checkout time
	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	// Shipping service chosen at checkout
	ShippingCarrier string `gorm:"size:100" json:"shipping_carrier"`
	ShippingService string `gorm:"size:100" json:"shipping_service"`

	CouponCode string `gorm:"size:64" json:"coupon_code,omitempty"`
	Notes      string `gorm:"type:text" json:"notes,omitempty"`

	// Status timestamps
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// TableName overrides the table name
func (Order) TableName() string {
	return "orders"
}

// Address is the delivery address embedded in an order
type Address struct {
	FirstName    string `gorm:"size:100" json:"first_name"`
	LastName     string `gorm:"size:100" json:"last_name"`
	Street       string `gorm:"size:255" json:"street"`
	Number       string `gorm:"size:20" json:"number"`
	Complement   string `gorm:"size:100" json:"complement,omitempty"`
	Neighborhood string `gorm:"size:100" json:"neighborhood"`
	City         string `gorm:"size:100" json:"city"`
	State        string `gorm:"size:2" json:"state"`
	PostalCode   string `gorm:"size:8" json:"postal_code"`
	Phone        string `gorm:"size:20" json:"phone,omitempty"`
}

// OrderItem is one product line frozen at checkout time. SupplierID is
// denormalized so a line's owner never changes even if the product is
// reassigned later.
type OrderItem struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	OrderID    uint        `gorm:"not null;index" json:"order_id"`
	ProductID  uint        `gorm:"not null;index" json:"product_id"`
	SupplierID uint        `gorm:"not null;index" json:"supplier_id"`
	SKU        string      `gorm:"size:100" json:"sku"`
	Name       string      `gorm:"not null;size:255" json:"name"`
	Quantity   int         `gorm:"not null" json:"quantity"`
	UnitPrice  int64       `gorm:"not null" json:"unit_price"` // cents
	TotalPrice int64       `gorm:"not null" json:"total_price"`
	Status     OrderStatus `gorm:"not null;default:'pending'" json:"status"`

	// Per-line fulfillment tracking
	TrackingCode string `gorm:"size:100" json:"tracking_code,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	TrackingEvents []TrackingEvent `gorm:"foreignKey:OrderItemID" json:"tracking_events,omitempty"`
}

// TableName overrides the table name
func (OrderItem) TableName() string {
	return "order_items"
}

// TrackingEvent is an append-only fulfillment update on an order item
type TrackingEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderItemID uint      `gorm:"not null;index" json:"order_item_id"`
	Status      string    `gorm:"size:50" json:"status"`
	Description string    `gorm:"size:255" json:"description"`
	Location    string    `gorm:"size:100" json:"location,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName overrides the table name
func (TrackingEvent) TableName() string {
	return "tracking_events"
}

// GenerateOrderNumber creates a unique order number
func GenerateOrderNumber(orderID uint) string {
	timestamp := time.Now().Format("20060102")
	return fmt.Sprintf("ORD-%s-%05d", timestamp, orderID)
}
