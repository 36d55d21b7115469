// internal/domain/cart/backend.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/domain/user"
	redisdb "github.com/your-org/marketplace-backend/internal/infrastructure/database/redis"
)

// localCartTTL bounds how long a demo cart survives without activity
const localCartTTL = 24 * time.Hour

// Backend stores cart lines for one source. The service merges the two
// implementations into a single view.
type Backend interface {
	Source() Source
	List(ctx context.Context, userID uint) ([]ItemView, error)
	Add(ctx context.Context, userID uint, snap Snapshot, quantity int) (ItemView, error)
	SetQuantity(ctx context.Context, userID uint, itemID string, quantity int) error
	Remove(ctx context.Context, userID uint, itemID string) error
	Clear(ctx context.Context, userID uint) error
}

// gormBackend persists cart lines in the cart_items table. Product
// snapshots are rebuilt from the catalog on every read so durable lines
// always reflect current stock state.
type gormBackend struct {
	db *gorm.DB
}

// NewGormBackend creates the durable cart backend
func NewGormBackend(db *gorm.DB) Backend {
	return &gormBackend{db: db}
}

func (b *gormBackend) Source() Source {
	return SourceDurable
}

func (b *gormBackend) List(ctx context.Context, userID uint) ([]ItemView, error) {
	var rows []CartItem
	if err := b.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	productIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		productIDs = append(productIDs, row.ProductID)
	}

	var products []product.Product
	if err := b.db.WithContext(ctx).
		Where("id IN ?", productIDs).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}
	productsByID := make(map[uint]product.Product, len(products))
	supplierIDs := make([]uint, 0, len(products))
	for _, p := range products {
		productsByID[p.ID] = p
		supplierIDs = append(supplierIDs, p.SupplierID)
	}

	supplierNames, err := b.loadSupplierNames(ctx, supplierIDs)
	if err != nil {
		return nil, err
	}

	views := make([]ItemView, 0, len(rows))
	for _, row := range rows {
		p, ok := productsByID[row.ProductID]
		if !ok {
			// Product removed from catalog since it was added. Skip the
			// line rather than failing the whole cart read.
			continue
		}
		views = append(views, ItemView{
			ID:       strconv.FormatUint(uint64(row.ID), 10),
			Source:   SourceDurable,
			Quantity: row.Quantity,
			Subtotal: row.Price * int64(row.Quantity),
			Snapshot: Snapshot{
				ProductID:    p.ID,
				SKU:          p.SKU,
				Name:         p.Name,
				Brand:        p.Brand,
				ImageURL:     p.ImageURL,
				UnitPrice:    row.Price,
				InStock:      p.InStock(),
				SupplierID:   p.SupplierID,
				SupplierName: supplierNames[p.SupplierID],
			},
		})
	}
	return views, nil
}

func (b *gormBackend) loadSupplierNames(ctx context.Context, supplierIDs []uint) (map[uint]string, error) {
	names := make(map[uint]string, len(supplierIDs))
	if len(supplierIDs) == 0 {
		return names, nil
	}
	var suppliers []user.User
	if err := b.db.WithContext(ctx).
		Where("id IN ?", supplierIDs).
		Find(&suppliers).Error; err != nil {
		return nil, fmt.Errorf("failed to load suppliers: %w", err)
	}
	for _, s := range suppliers {
		names[s.ID] = s.CompanyName
	}
	return names, nil
}

func (b *gormBackend) Add(ctx context.Context, userID uint, snap Snapshot, quantity int) (ItemView, error) {
	var existing CartItem
	err := b.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, snap.ProductID).
		First(&existing).Error

	switch {
	case err == nil:
		// Same product added again: increment and refresh the price snapshot
		existing.Quantity += quantity
		existing.Price = snap.UnitPrice
		if err := b.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return ItemView{}, fmt.Errorf("failed to update cart item: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		existing = CartItem{
			UserID:    userID,
			ProductID: snap.ProductID,
			Quantity:  quantity,
			Price:     snap.UnitPrice,
		}
		if err := b.db.WithContext(ctx).Create(&existing).Error; err != nil {
			return ItemView{}, fmt.Errorf("failed to create cart item: %w", err)
		}
	default:
		return ItemView{}, fmt.Errorf("failed to check cart item: %w", err)
	}

	return ItemView{
		ID:       strconv.FormatUint(uint64(existing.ID), 10),
		Source:   SourceDurable,
		Quantity: existing.Quantity,
		Subtotal: existing.Price * int64(existing.Quantity),
		Snapshot: snap,
	}, nil
}

func (b *gormBackend) SetQuantity(ctx context.Context, userID uint, itemID string, quantity int) error {
	id, err := strconv.ParseUint(itemID, 10, 64)
	if err != nil {
		return ErrCartItemNotFound
	}
	result := b.db.WithContext(ctx).
		Model(&CartItem{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("quantity", quantity)
	if result.Error != nil {
		return fmt.Errorf("failed to update cart item quantity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (b *gormBackend) Remove(ctx context.Context, userID uint, itemID string) error {
	id, err := strconv.ParseUint(itemID, 10, 64)
	if err != nil {
		// Not a durable ID at all, treat as already absent
		return nil
	}
	if err := b.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

func (b *gormBackend) Clear(ctx context.Context, userID uint) error {
	if err := b.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// redisBackend keeps demo cart lines as a single JSON blob per buyer.
// Lines carry their own product snapshot and expire after localCartTTL.
type redisBackend struct {
	client *redisdb.Client
}

// NewRedisBackend creates the local demo cart backend
func NewRedisBackend(client *redisdb.Client) Backend {
	return &redisBackend{client: client}
}

func (b *redisBackend) Source() Source {
	return SourceLocal
}

func (b *redisBackend) key(userID uint) string {
	return fmt.Sprintf("cart:local:%d", userID)
}

func (b *redisBackend) load(ctx context.Context, userID uint) (*localCart, error) {
	var lc localCart
	err := b.client.GetJSON(ctx, b.key(userID), &lc)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &localCart{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to load local cart: %w", err)
	}
	return &lc, nil
}

func (b *redisBackend) save(ctx context.Context, lc *localCart) error {
	lc.UpdatedAt = time.Now()
	if err := b.client.SetJSON(ctx, b.key(lc.UserID), lc, localCartTTL); err != nil {
		return fmt.Errorf("failed to save local cart: %w", err)
	}
	return nil
}

func (b *redisBackend) List(ctx context.Context, userID uint) ([]ItemView, error) {
	lc, err := b.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]ItemView, 0, len(lc.Items))
	for _, item := range lc.Items {
		views = append(views, ItemView{
			ID:       item.ID,
			Source:   SourceLocal,
			Quantity: item.Quantity,
			Subtotal: item.Snapshot.UnitPrice * int64(item.Quantity),
			Snapshot: item.Snapshot,
		})
	}
	return views, nil
}

func (b *redisBackend) Add(ctx context.Context, userID uint, snap Snapshot, quantity int) (ItemView, error) {
	lc, err := b.load(ctx, userID)
	if err != nil {
		return ItemView{}, err
	}

	var line *LocalItem
	for i := range lc.Items {
		if lc.Items[i].Snapshot.ProductID != 0 && lc.Items[i].Snapshot.ProductID == snap.ProductID {
			line = &lc.Items[i]
			break
		}
	}
	if line != nil {
		line.Quantity += quantity
		line.Snapshot = snap
	} else {
		lc.Items = append(lc.Items, LocalItem{
			ID:       uuid.New().String(),
			Snapshot: snap,
			Quantity: quantity,
			AddedAt:  time.Now(),
		})
		line = &lc.Items[len(lc.Items)-1]
	}

	if err := b.save(ctx, lc); err != nil {
		return ItemView{}, err
	}
	return ItemView{
		ID:       line.ID,
		Source:   SourceLocal,
		Quantity: line.Quantity,
		Subtotal: line.Snapshot.UnitPrice * int64(line.Quantity),
		Snapshot: line.Snapshot,
	}, nil
}

func (b *redisBackend) SetQuantity(ctx context.Context, userID uint, itemID string, quantity int) error {
	lc, err := b.load(ctx, userID)
	if err != nil {
		return err
	}
	for i := range lc.Items {
		if lc.Items[i].ID == itemID {
			lc.Items[i].Quantity = quantity
			return b.save(ctx, lc)
		}
	}
	return ErrCartItemNotFound
}

func (b *redisBackend) Remove(ctx context.Context, userID uint, itemID string) error {
	lc, err := b.load(ctx, userID)
	if err != nil {
		return err
	}
	kept := lc.Items[:0]
	removed := false
	for _, item := range lc.Items {
		if item.ID == itemID {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	if !removed {
		return nil
	}
	lc.Items = kept
	return b.save(ctx, lc)
}

func (b *redisBackend) Clear(ctx context.Context, userID uint) error {
	if err := b.client.Del(ctx, b.key(userID)); err != nil {
		return fmt.Errorf("failed to clear local cart: %w", err)
	}
	return nil
}
