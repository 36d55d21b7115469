// internal/domain/product/entity.go
package product

import (
	"time"

	"gorm.io/gorm"
)

// Product represents the product entity. Every product is owned by
// exactly one supplier account; the supplier id is the grouping key the
// checkout partitioner relies on.
type Product struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	SKU           string         `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name          string         `gorm:"not null;size:255" json:"name"`
	Description   string         `gorm:"type:text" json:"description"`
	Brand         string         `gorm:"size:100" json:"brand"`
	Price         int64          `gorm:"not null" json:"price"` // Price in cents
	ImageURL      string         `gorm:"size:500" json:"image_url"`
	StockQuantity int            `gorm:"default:0" json:"stock_quantity"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	SupplierID    uint           `gorm:"not null;index" json:"supplier_id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Product) TableName() string {
	return "products"
}

// InStock reports whether the product can currently be purchased
func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}
