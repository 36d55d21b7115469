// internal/domain/coupon/entity.go
package coupon

import (
	"time"

	"gorm.io/gorm"
)

// Type determines how a coupon's value is interpreted
type Type string

const (
	// TypePercentage takes Value as a percent of the eligible subtotal
	TypePercentage Type = "percentage"
	// TypeFixed takes Value as an absolute amount in cents
	TypeFixed Type = "fixed"
)

// Coupon represents a discount code. A nil SupplierID means the coupon
// applies storewide; otherwise only that supplier's items count toward
// the minimum and the discount. The validity window is optional: a nil
// bound means that side of the window is open.
type Coupon struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Code         string         `gorm:"uniqueIndex;size:64;not null" json:"code"`
	Description  string         `gorm:"size:255" json:"description"`
	Type         Type           `gorm:"size:20;not null" json:"type"`
	Value        int64          `gorm:"not null" json:"value"`
	MinimumOrder int64          `gorm:"default:0" json:"minimum_order"`
	MaxUses      int            `gorm:"default:0" json:"max_uses"` // 0 = unlimited
	UsesCount    int            `gorm:"default:0" json:"uses_count"`
	SupplierID   *uint          `gorm:"index" json:"supplier_id,omitempty"`
	ValidFrom    *time.Time     `json:"valid_from,omitempty"`
	ValidUntil   *time.Time     `json:"valid_until,omitempty"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Coupon) TableName() string {
	return "coupons"
}

// IsStorewide reports whether the coupon applies to the whole cart
func (c *Coupon) IsStorewide() bool {
	return c.SupplierID == nil
}

// CouponUse records one redemption. Each buyer may redeem a given
// coupon only once.
type CouponUse struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CouponID  uint      `gorm:"not null;index" json:"coupon_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	OrderID   uint      `gorm:"not null" json:"order_id"`
	Amount    int64     `gorm:"not null" json:"amount"` // discount granted, in cents
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the table name
func (CouponUse) TableName() string {
	return "coupon_uses"
}
