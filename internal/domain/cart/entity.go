// internal/domain/cart/entity.go
package cart

import (
	"time"

	"gorm.io/gorm"
)

// Source identifies which backend a cart item came from
type Source string

const (
	SourceDurable Source = "durable"
	SourceLocal   Source = "local"
)

// CartItem represents a cart line persisted in the database
type CartItem struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	ProductID uint           `gorm:"not null;index" json:"product_id"`
	Quantity  int            `gorm:"not null;default:1" json:"quantity"`
	Price     int64          `gorm:"not null" json:"price"` // Price at time of adding
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// LocalItem is a demo cart line kept only in Redis. It carries its own
// product snapshot because it may not correspond to any catalog row.
type LocalItem struct {
	ID       string    `json:"id"`
	Snapshot Snapshot  `json:"snapshot"`
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"added_at"`
}

// localCart is the JSON blob stored per buyer in Redis
type localCart struct {
	UserID    uint        `json:"user_id"`
	Items     []LocalItem `json:"items"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Snapshot captures the product details a cart line was built from
type Snapshot struct {
	ProductID    uint   `json:"product_id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Brand        string `json:"brand,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	UnitPrice    int64  `json:"unit_price"`
	InStock      bool   `json:"in_stock"`
	SupplierID   uint   `json:"supplier_id"`
	SupplierName string `json:"supplier_name,omitempty"`
}

// ItemView is the merged read model returned to callers. ID is the
// database row ID for durable items and a UUID for local ones.
type ItemView struct {
	ID       string   `json:"id"`
	Source   Source   `json:"source"`
	Quantity int      `json:"quantity"`
	Subtotal int64    `json:"subtotal"`
	Snapshot Snapshot `json:"snapshot"`
}

// Cart is the merged cart returned by List
type Cart struct {
	Items         []ItemView `json:"items"`
	ItemCount     int        `json:"item_count"`
	TotalQuantity int        `json:"total_quantity"`
	Subtotal      int64      `json:"subtotal"`
}

// Totalize recomputes the aggregate fields from Items
func (c *Cart) Totalize() {
	c.ItemCount = len(c.Items)
	c.TotalQuantity = 0
	c.Subtotal = 0
	for _, item := range c.Items {
		c.TotalQuantity += item.Quantity
		c.Subtotal += item.Subtotal
	}
}
