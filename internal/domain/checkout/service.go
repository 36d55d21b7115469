// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/coupon"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/shipping"
	"github.com/your-org/marketplace-backend/internal/domain/user"
	"github.com/your-org/marketplace-backend/internal/pkg/email"
)

var (
	// ErrEmptyCart is returned when checkout starts with no items
	ErrEmptyCart = errors.New("cart is empty")
	// ErrShippingNotSelected is returned when the chosen shipping option
	// is missing or no longer offered for the route
	ErrShippingNotSelected = errors.New("shipping option not selected or no longer available")
	// ErrCheckoutInProgress is returned when the buyer already has a
	// checkout running
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	// ErrAddressNotFound is returned when the delivery address does not
	// belong to the buyer
	ErrAddressNotFound = errors.New("delivery address not found")
	// ErrItemUnavailable is returned when a cart line's product went out
	// of stock between carting and checkout
	ErrItemUnavailable = errors.New("item no longer available")
)

// CartProvider is the slice of the cart service checkout needs
type CartProvider interface {
	List(ctx context.Context, userID uint) (*cart.Cart, error)
	ClearLocal(ctx context.Context, userID uint) error
}

// CouponValidator validates and redeems coupon codes
type CouponValidator interface {
	Validate(ctx context.Context, code string, userID uint, cartSubtotal int64, supplierSubtotals map[uint]int64) (*coupon.Validation, error)
	Apply(tx *gorm.DB, couponID, userID, orderID uint, amount int64) error
}

// RateQuoter fetches shipping options for a destination
type RateQuoter interface {
	Quote(ctx context.Context, destCEP string, items []shipping.Item) ([]shipping.Option, error)
}

// Notifier sends post-checkout notifications
type Notifier interface {
	SendOrderPlacedAsync(userEmail string, data email.OrderPlacedData)
}

// Service orchestrates the cart to order flow: lock, re-read the cart,
// validate shipping and coupon, partition by supplier, write every
// order in one transaction.
type Service struct {
	db       *gorm.DB
	carts    CartProvider
	coupons  CouponValidator
	rates    RateQuoter
	locker   Locker
	notifier Notifier
	logger   *logrus.Logger
}

// NewService creates a new checkout service
func NewService(db *gorm.DB, carts CartProvider, coupons CouponValidator, rates RateQuoter, locker Locker, notifier Notifier, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		db:       db,
		carts:    carts,
		coupons:  coupons,
		rates:    rates,
		locker:   locker,
		notifier: notifier,
		logger:   logger,
	}
}

// CheckoutRequest represents checkout input
type CheckoutRequest struct {
	AddressID        uint   `json:"address_id" binding:"required"`
	ShippingOptionID int    `json:"shipping_option_id" binding:"required"`
	CouponCode       string `json:"coupon_code"`
	Notes            string `json:"notes"`
}

// Result is the outcome of a successful checkout
type Result struct {
	CheckoutID    string        `json:"checkout_id"`
	Orders        []order.Order `json:"orders"`
	Subtotal      int64         `json:"subtotal"`
	ShippingTotal int64         `json:"shipping_total"`
	DiscountTotal int64         `json:"discount_total"`
	GrandTotal    int64         `json:"grand_total"`
	CouponCode    string        `json:"coupon_code,omitempty"`
}

// Quotes returns the shipping options for the buyer's current cart and
// a destination address
func (s *Service) Quotes(ctx context.Context, userID, addressID uint) ([]shipping.Option, error) {
	address, err := s.loadAddress(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}
	c, err := s.carts.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}
	return s.rates.Quote(ctx, address.PostalCode, shippingItems(c.Items))
}

// Checkout converts the buyer's cart into one order per supplier. All
// orders commit atomically; a failure anywhere rolls everything back
// and the cart stays intact.
func (s *Service) Checkout(ctx context.Context, userID uint, req *CheckoutRequest) (*Result, error) {
	release, err := s.locker.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	var buyer user.User
	if err := s.db.WithContext(ctx).First(&buyer, userID).Error; err != nil {
		return nil, fmt.Errorf("failed to load buyer: %w", err)
	}

	address, err := s.loadAddress(ctx, userID, req.AddressID)
	if err != nil {
		return nil, err
	}

	// The cart is re-read under the lock so concurrent mutations before
	// this point are either fully in or fully out
	c, err := s.carts.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}
	for _, item := range c.Items {
		if !item.Snapshot.InStock {
			return nil, fmt.Errorf("%w: %s", ErrItemUnavailable, item.Snapshot.Name)
		}
	}

	groups := PartitionBySupplier(c.Items)

	// The chosen shipping option is re-validated against a fresh quote;
	// a stale or fabricated option ID fails the checkout
	options, err := s.rates.Quote(ctx, address.PostalCode, shippingItems(c.Items))
	if err != nil {
		return nil, err
	}
	var selected *shipping.Option
	for i := range options {
		if options[i].ID == req.ShippingOptionID {
			selected = &options[i]
			break
		}
	}
	if selected == nil {
		return nil, ErrShippingNotSelected
	}

	var validation *coupon.Validation
	if req.CouponCode != "" {
		validation, err = s.coupons.Validate(ctx, req.CouponCode, userID, c.Subtotal, SupplierSubtotals(groups))
		if err != nil {
			return nil, err
		}
	}

	shippingShares := attributeShares(selected.Price, groups)
	discountShares := make([]int64, len(groups))
	var discountTotal int64
	if validation != nil {
		discountTotal = validation.Discount
		if validation.Coupon.IsStorewide() {
			discountShares = attributeShares(discountTotal, groups)
		} else {
			// A scoped discount lands entirely on the scoped supplier's
			// order
			for i, g := range groups {
				if g.SupplierID == *validation.Coupon.SupplierID {
					discountShares[i] = discountTotal
					break
				}
			}
		}
	}

	checkoutID := uuid.New().String()
	orderAddress := order.Address{
		FirstName:    buyer.FirstName,
		LastName:     buyer.LastName,
		Street:       address.Street,
		Number:       address.Number,
		Complement:   address.Complement,
		Neighborhood: address.Neighborhood,
		City:         address.City,
		State:        address.State,
		PostalCode:   address.PostalCode,
		Phone:        buyer.Phone,
	}

	var orders []order.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders = orders[:0]
		for i, g := range groups {
			o := order.Order{
				OrderNumber:     "ORD-" + uuid.New().String(), // replaced below
				CheckoutID:      checkoutID,
				UserID:          userID,
				SupplierID:      g.SupplierID,
				Status:          order.OrderStatusPending,
				SubtotalAmount:  g.Subtotal,
				ShippingAmount:  shippingShares[i],
				DiscountAmount:  discountShares[i],
				TotalAmount:     g.Subtotal + shippingShares[i] - discountShares[i],
				Currency:        "BRL",
				ShippingAddress: orderAddress,
				ShippingCarrier: selected.Carrier,
				ShippingService: selected.Service,
				Notes:           req.Notes,
			}
			if validation != nil && discountShares[i] > 0 {
				o.CouponCode = validation.Coupon.Code
			}
			if err := tx.Create(&o).Error; err != nil {
				return fmt.Errorf("failed to create order: %w", err)
			}
			o.OrderNumber = order.GenerateOrderNumber(o.ID)
			if err := tx.Model(&o).Update("order_number", o.OrderNumber).Error; err != nil {
				return fmt.Errorf("failed to set order number: %w", err)
			}

			for _, item := range g.Items {
				line := order.OrderItem{
					OrderID:    o.ID,
					ProductID:  item.Snapshot.ProductID,
					SupplierID: g.SupplierID,
					SKU:        item.Snapshot.SKU,
					Name:       item.Snapshot.Name,
					Quantity:   item.Quantity,
					UnitPrice:  item.Snapshot.UnitPrice,
					TotalPrice: item.Subtotal,
					Status:     order.OrderStatusPending,
				}
				if err := tx.Create(&line).Error; err != nil {
					return fmt.Errorf("failed to create order item: %w", err)
				}
				o.Items = append(o.Items, line)
			}
			orders = append(orders, o)
		}

		// The redemption references the first order in partition order
		if validation != nil {
			if err := s.coupons.Apply(tx, validation.Coupon.ID, userID, orders[0].ID, discountTotal); err != nil {
				return err
			}
		}

		// Durable cart lines clear inside the transaction so a rollback
		// leaves the cart intact
		if err := tx.Where("user_id = ?", userID).Delete(&cart.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Local demo lines live outside the transaction; a failure here must
	// not undo committed orders
	if err := s.carts.ClearLocal(ctx, userID); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).
			Warn("failed to clear local cart after checkout")
	}

	result := &Result{
		CheckoutID:    checkoutID,
		Orders:        orders,
		Subtotal:      c.Subtotal,
		ShippingTotal: selected.Price,
		DiscountTotal: discountTotal,
	}
	result.GrandTotal = result.Subtotal + result.ShippingTotal - result.DiscountTotal
	if validation != nil {
		result.CouponCode = validation.Coupon.Code
	}

	if s.notifier != nil {
		numbers := make([]string, 0, len(orders))
		for _, o := range orders {
			numbers = append(numbers, o.OrderNumber)
		}
		s.notifier.SendOrderPlacedAsync(buyer.Email, email.OrderPlacedData{
			UserName:     buyer.FirstName,
			OrderNumbers: numbers,
			TotalAmount:  result.GrandTotal,
		})
	}

	return result, nil
}

func (s *Service) loadAddress(ctx context.Context, userID, addressID uint) (*user.Address, error) {
	var address user.Address
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		First(&address).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to load address: %w", err)
	}
	return &address, nil
}

func shippingItems(items []cart.ItemView) []shipping.Item {
	out := make([]shipping.Item, 0, len(items))
	for _, item := range items {
		out = append(out, shipping.Item{
			Quantity:  item.Quantity,
			UnitPrice: item.Snapshot.UnitPrice,
		})
	}
	return out
}
