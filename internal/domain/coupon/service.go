// internal/domain/coupon/service.go
package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrCouponNotFound covers unknown, inactive and deleted codes
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrCouponNotYetValid is returned before the validity window opens
	ErrCouponNotYetValid = errors.New("coupon is not yet valid")
	// ErrCouponExpired is returned after the validity window closes
	ErrCouponExpired = errors.New("coupon has expired")
	// ErrCouponExhausted is returned when the global use limit is reached
	ErrCouponExhausted = errors.New("coupon use limit reached")
	// ErrCouponAlreadyUsed is returned when this buyer already redeemed it
	ErrCouponAlreadyUsed = errors.New("coupon already used")
	// ErrMinimumOrderNotMet is returned when the eligible subtotal is too
	// small. Callers get the required minimum in the wrapped message.
	ErrMinimumOrderNotMet = errors.New("minimum order not met")
	// ErrNotCouponOwner is returned when a supplier touches a coupon that
	// is not theirs
	ErrNotCouponOwner = errors.New("coupon belongs to another supplier")
)

// Service handles coupon validation, redemption and supplier management
type Service struct {
	db *gorm.DB
}

// NewService creates a new coupon service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Validation is the result of a successful Validate call
type Validation struct {
	Coupon   Coupon `json:"coupon"`
	Discount int64  `json:"discount"`
}

// Validate checks a code against the buyer and cart state and computes
// the discount. Checks run in a fixed order so the caller always learns
// the first failing condition: existence, window start, window end, use
// limit, minimum order, per buyer reuse.
//
// supplierSubtotals maps supplier ID to that supplier's share of the
// cart subtotal and is only consulted for supplier scoped coupons.
func (s *Service) Validate(ctx context.Context, code string, userID uint, cartSubtotal int64, supplierSubtotals map[uint]int64) (*Validation, error) {
	var c Coupon
	err := s.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", strings.ToUpper(strings.TrimSpace(code)), true).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	}

	now := time.Now()
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return nil, ErrCouponNotYetValid
	}
	// The window close is exclusive: at exactly valid_until the coupon
	// is already expired
	if c.ValidUntil != nil && !now.Before(*c.ValidUntil) {
		return nil, ErrCouponExpired
	}
	if c.MaxUses > 0 && c.UsesCount >= c.MaxUses {
		return nil, ErrCouponExhausted
	}

	base := cartSubtotal
	if !c.IsStorewide() {
		base = supplierSubtotals[*c.SupplierID]
	}
	if base < c.MinimumOrder {
		return nil, fmt.Errorf("%w: requires R$ %.2f in eligible items",
			ErrMinimumOrderNotMet, float64(c.MinimumOrder)/100)
	}

	var used int64
	if err := s.db.WithContext(ctx).
		Model(&CouponUse{}).
		Where("coupon_id = ? AND user_id = ?", c.ID, userID).
		Count(&used).Error; err != nil {
		return nil, fmt.Errorf("failed to check coupon usage: %w", err)
	}
	if used > 0 {
		return nil, ErrCouponAlreadyUsed
	}

	return &Validation{
		Coupon:   c,
		Discount: c.discountFor(base),
	}, nil
}

// discountFor computes the discount against an eligible subtotal. A
// fixed discount never exceeds what it applies to.
func (c *Coupon) discountFor(base int64) int64 {
	switch c.Type {
	case TypePercentage:
		return base * c.Value / 100
	case TypeFixed:
		if c.Value > base {
			return base
		}
		return c.Value
	}
	return 0
}

// Apply records a redemption inside the caller's transaction. The use
// counter is incremented with a guard so two concurrent checkouts
// cannot push it past MaxUses.
func (s *Service) Apply(tx *gorm.DB, couponID, userID, orderID uint, amount int64) error {
	query := tx.Model(&Coupon{}).Where("id = ?", couponID)
	var maxUses int
	if err := tx.Model(&Coupon{}).Where("id = ?", couponID).
		Select("max_uses").Scan(&maxUses).Error; err != nil {
		return fmt.Errorf("failed to load coupon limit: %w", err)
	}
	if maxUses > 0 {
		query = query.Where("uses_count < max_uses")
	}
	result := query.Update("uses_count", gorm.Expr("uses_count + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment coupon uses: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCouponExhausted
	}

	use := CouponUse{
		CouponID: couponID,
		UserID:   userID,
		OrderID:  orderID,
		Amount:   amount,
	}
	if err := tx.Create(&use).Error; err != nil {
		return fmt.Errorf("failed to record coupon use: %w", err)
	}
	return nil
}

// CreateCouponRequest represents coupon creation input. The validity
// bounds are optional; an omitted bound leaves that side open.
type CreateCouponRequest struct {
	Code         string     `json:"code" binding:"required,min=3,max=64"`
	Description  string     `json:"description"`
	Type         Type       `json:"type" binding:"required,oneof=percentage fixed"`
	Value        int64      `json:"value" binding:"required,min=1"`
	MinimumOrder int64      `json:"minimum_order" binding:"min=0"`
	MaxUses      int        `json:"max_uses" binding:"min=0"`
	ValidFrom    *time.Time `json:"valid_from"`
	ValidUntil   *time.Time `json:"valid_until"`
}

// UpdateCouponRequest represents coupon update input
type UpdateCouponRequest struct {
	Description  *string    `json:"description"`
	MinimumOrder *int64     `json:"minimum_order"`
	MaxUses      *int       `json:"max_uses"`
	ValidUntil   *time.Time `json:"valid_until"`
	IsActive     *bool      `json:"is_active"`
}

// CreateCoupon creates a coupon. A non-nil supplierID scopes it to that
// supplier; admins pass nil for storewide codes.
func (s *Service) CreateCoupon(ctx context.Context, supplierID *uint, req *CreateCouponRequest) (*Coupon, error) {
	if req.Type == TypePercentage && req.Value > 100 {
		return nil, fmt.Errorf("percentage value must not exceed 100")
	}
	if req.ValidFrom != nil && req.ValidUntil != nil && !req.ValidUntil.After(*req.ValidFrom) {
		return nil, fmt.Errorf("valid_until must be after valid_from")
	}

	c := Coupon{
		Code:         strings.ToUpper(strings.TrimSpace(req.Code)),
		Description:  req.Description,
		Type:         req.Type,
		Value:        req.Value,
		MinimumOrder: req.MinimumOrder,
		MaxUses:      req.MaxUses,
		SupplierID:   supplierID,
		ValidFrom:    req.ValidFrom,
		ValidUntil:   req.ValidUntil,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}
	return &c, nil
}

// UpdateCoupon applies a partial update to a coupon owned by supplierID
func (s *Service) UpdateCoupon(ctx context.Context, supplierID *uint, couponID uint, req *UpdateCouponRequest) (*Coupon, error) {
	c, err := s.getOwned(ctx, supplierID, couponID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.MinimumOrder != nil {
		updates["minimum_order"] = *req.MinimumOrder
	}
	if req.MaxUses != nil {
		updates["max_uses"] = *req.MaxUses
	}
	if req.ValidUntil != nil {
		updates["valid_until"] = *req.ValidUntil
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return c, nil
	}

	if err := s.db.WithContext(ctx).Model(c).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update coupon: %w", err)
	}
	return c, nil
}

// DeleteCoupon soft deletes a coupon owned by supplierID
func (s *Service) DeleteCoupon(ctx context.Context, supplierID *uint, couponID uint) error {
	c, err := s.getOwned(ctx, supplierID, couponID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(c).Error; err != nil {
		return fmt.Errorf("failed to delete coupon: %w", err)
	}
	return nil
}

// ListCoupons returns coupons newest first. A nil supplierID is the
// admin path and lists every coupon; suppliers see only their own.
func (s *Service) ListCoupons(ctx context.Context, supplierID *uint) ([]Coupon, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if supplierID != nil {
		query = query.Where("supplier_id = ?", *supplierID)
	}

	var coupons []Coupon
	if err := query.Find(&coupons).Error; err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	return coupons, nil
}

// getOwned loads a coupon and enforces ownership. A nil supplierID is
// the admin path and may touch any coupon.
func (s *Service) getOwned(ctx context.Context, supplierID *uint, couponID uint) (*Coupon, error) {
	var c Coupon
	err := s.db.WithContext(ctx).First(&c, couponID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	}
	if supplierID != nil {
		if c.SupplierID == nil || *c.SupplierID != *supplierID {
			return nil, ErrNotCouponOwner
		}
	}
	return &c, nil
}
