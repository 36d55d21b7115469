// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/domain/user"
)

var (
	// ErrCartItemNotFound is returned when an update targets an item
	// absent from both backends
	ErrCartItemNotFound = errors.New("cart item not found")
)

// Service merges the durable and local cart backends behind one API.
// Writes go to exactly one backend; reads merge both, keeping the local
// line when the same product exists in both places.
type Service struct {
	db      *gorm.DB
	durable Backend
	local   Backend
}

// NewService creates a new cart service
func NewService(db *gorm.DB, durable, local Backend) *Service {
	return &Service{
		db:      db,
		durable: durable,
		local:   local,
	}
}

// AddToCartRequest represents an add to cart request
type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// AddDemoItemRequest represents a local demo line with its own snapshot
type AddDemoItemRequest struct {
	ProductID    uint   `json:"product_id"`
	SKU          string `json:"sku"`
	Name         string `json:"name" binding:"required"`
	Brand        string `json:"brand"`
	ImageURL     string `json:"image_url"`
	UnitPrice    int64  `json:"unit_price" binding:"required,min=0"`
	SupplierID   uint   `json:"supplier_id" binding:"required"`
	SupplierName string `json:"supplier_name"`
	Quantity     int    `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItemRequest represents an update cart item request. Source
// is the backend tag the item was listed with; omitting it falls back
// to looking the item up in both backends.
type UpdateCartItemRequest struct {
	Quantity int    `json:"quantity" binding:"min=0"`
	Source   Source `json:"source" binding:"omitempty,oneof=durable local"`
}

// AddItem resolves the product from the catalog and adds it to the
// durable backend. Inactive or missing products are rejected.
func (s *Service) AddItem(ctx context.Context, userID uint, req *AddToCartRequest) (*ItemView, error) {
	var p product.Product
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", req.ProductID, true).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, product.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	var supplier user.User
	supplierName := ""
	if err := s.db.WithContext(ctx).First(&supplier, p.SupplierID).Error; err == nil {
		supplierName = supplier.CompanyName
	}

	view, err := s.durable.Add(ctx, userID, Snapshot{
		ProductID:    p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		Brand:        p.Brand,
		ImageURL:     p.ImageURL,
		UnitPrice:    p.Price,
		InStock:      p.InStock(),
		SupplierID:   p.SupplierID,
		SupplierName: supplierName,
	}, req.Quantity)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// AddDemoItem adds a line to the local backend from a caller-provided
// snapshot. No catalog lookup happens here.
func (s *Service) AddDemoItem(ctx context.Context, userID uint, req *AddDemoItemRequest) (*ItemView, error) {
	view, err := s.local.Add(ctx, userID, Snapshot{
		ProductID:    req.ProductID,
		SKU:          req.SKU,
		Name:         req.Name,
		Brand:        req.Brand,
		ImageURL:     req.ImageURL,
		UnitPrice:    req.UnitPrice,
		InStock:      true,
		SupplierID:   req.SupplierID,
		SupplierName: req.SupplierName,
	}, req.Quantity)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// UpdateQuantity sets the quantity of an item in the backend named by
// source. A quantity of zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, userID uint, itemID string, source Source, quantity int) error {
	backend, err := s.backendFor(ctx, userID, itemID, source)
	if err != nil {
		return err
	}
	if quantity <= 0 {
		return backend.Remove(ctx, userID, itemID)
	}
	return backend.SetQuantity(ctx, userID, itemID, quantity)
}

// RemoveItem deletes an item from the backend named by source. Removing
// an item that does not exist is a no-op.
func (s *Service) RemoveItem(ctx context.Context, userID uint, itemID string, source Source) error {
	backend, err := s.backendFor(ctx, userID, itemID, source)
	if err != nil {
		if errors.Is(err, ErrCartItemNotFound) {
			return nil
		}
		return err
	}
	return backend.Remove(ctx, userID, itemID)
}

// backendFor resolves which backend owns itemID. Callers are expected
// to pass the Source tag the item was listed with; when it is missing
// the item is looked up in both backends by ID.
func (s *Service) backendFor(ctx context.Context, userID uint, itemID string, source Source) (Backend, error) {
	switch source {
	case SourceDurable:
		return s.durable, nil
	case SourceLocal:
		return s.local, nil
	}

	localItems, err := s.local.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, item := range localItems {
		if item.ID == itemID {
			return s.local, nil
		}
	}

	durableItems, err := s.durable.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, item := range durableItems {
		if item.ID == itemID {
			return s.durable, nil
		}
	}
	return nil, ErrCartItemNotFound
}

// List returns the merged cart. When the same product appears in both
// backends only the local line is kept, so a durable line never shadows
// a demo one.
func (s *Service) List(ctx context.Context, userID uint) (*Cart, error) {
	localItems, err := s.local.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	durableItems, err := s.durable.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	localProducts := make(map[uint]bool, len(localItems))
	for _, item := range localItems {
		if item.Snapshot.ProductID != 0 {
			localProducts[item.Snapshot.ProductID] = true
		}
	}

	merged := make([]ItemView, 0, len(durableItems)+len(localItems))
	for _, item := range durableItems {
		if localProducts[item.Snapshot.ProductID] {
			continue
		}
		merged = append(merged, item)
	}
	merged = append(merged, localItems...)

	c := &Cart{Items: merged}
	c.Totalize()
	return c, nil
}

// Clear empties both backends
func (s *Service) Clear(ctx context.Context, userID uint) error {
	if err := s.durable.Clear(ctx, userID); err != nil {
		return err
	}
	return s.local.Clear(ctx, userID)
}

// ClearDurable empties only the database backend. Used inside the
// checkout transaction where the Redis side is cleared post commit.
func (s *Service) ClearDurable(ctx context.Context, userID uint) error {
	return s.durable.Clear(ctx, userID)
}

// ClearLocal empties only the Redis backend
func (s *Service) ClearLocal(ctx context.Context, userID uint) error {
	return s.local.Clear(ctx, userID)
}
