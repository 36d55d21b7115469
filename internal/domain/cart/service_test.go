// internal/domain/cart/service_test.go
package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/domain/user"
)

// memBackend is an in-memory stand-in for the Redis backend
type memBackend struct {
	items map[uint][]LocalItem
}

func newMemBackend() *memBackend {
	return &memBackend{items: make(map[uint][]LocalItem)}
}

func (b *memBackend) Source() Source { return SourceLocal }

func (b *memBackend) List(_ context.Context, userID uint) ([]ItemView, error) {
	views := make([]ItemView, 0, len(b.items[userID]))
	for _, item := range b.items[userID] {
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

func (b *memBackend) Add(_ context.Context, userID uint, snap Snapshot, quantity int) (ItemView, error) {
	for i := range b.items[userID] {
		if b.items[userID][i].Snapshot.ProductID != 0 && b.items[userID][i].Snapshot.ProductID == snap.ProductID {
			b.items[userID][i].Quantity += quantity
			line := b.items[userID][i]
			return ItemView{ID: line.ID, Source: SourceLocal, Quantity: line.Quantity,
				Subtotal: line.Snapshot.UnitPrice * int64(line.Quantity), Snapshot: line.Snapshot}, nil
		}
	}
	line := LocalItem{ID: uuid.New().String(), Snapshot: snap, Quantity: quantity, AddedAt: time.Now()}
	b.items[userID] = append(b.items[userID], line)
	return ItemView{ID: line.ID, Source: SourceLocal, Quantity: quantity,
		Subtotal: snap.UnitPrice * int64(quantity), Snapshot: snap}, nil
}

func (b *memBackend) SetQuantity(_ context.Context, userID uint, itemID string, quantity int) error {
	for i := range b.items[userID] {
		if b.items[userID][i].ID == itemID {
			b.items[userID][i].Quantity = quantity
			return nil
		}
	}
	return ErrCartItemNotFound
}

func (b *memBackend) Remove(_ context.Context, userID uint, itemID string) error {
	kept := b.items[userID][:0]
	for _, item := range b.items[userID] {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	b.items[userID] = kept
	return nil
}

func (b *memBackend) Clear(_ context.Context, userID uint) error {
	delete(b.items, userID)
	return nil
}

func setupCartTest(t *testing.T) (*Service, *gorm.DB, *memBackend) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&user.User{}, &product.Product{}, &CartItem{}))

	local := newMemBackend()
	svc := NewService(db, NewGormBackend(db), local)
	return svc, db, local
}

func seedCatalog(t *testing.T, db *gorm.DB) (supplier user.User, p1, p2 product.Product) {
	t.Helper()

	supplier = user.User{
		Email:       "supplier@example.com",
		Password:    "x",
		FirstName:   "Sup",
		LastName:    "Plier",
		Role:        user.RoleSupplier,
		CompanyName: "Distribuidora Teste",
		IsActive:    true,
		IsApproved:  true,
	}
	require.NoError(t, db.Create(&supplier).Error)

	p1 = product.Product{
		SKU: "SKU-1", Name: "Produto Um", Price: 1000,
		SupplierID: supplier.ID, StockQuantity: 10, IsActive: true,
	}
	p2 = product.Product{
		SKU: "SKU-2", Name: "Produto Dois", Price: 2500,
		SupplierID: supplier.ID, StockQuantity: 5, IsActive: true,
	}
	require.NoError(t, db.Create(&p1).Error)
	require.NoError(t, db.Create(&p2).Error)
	return supplier, p1, p2
}

func TestAddItemResolvesCatalogSnapshot(t *testing.T) {
	svc, db, _ := setupCartTest(t)
	_, p1, _ := seedCatalog(t, db)
	ctx := context.Background()

	view, err := svc.AddItem(ctx, 42, &AddToCartRequest{ProductID: p1.ID, Quantity: 2})
	require.NoError(t, err)

	assert.Equal(t, SourceDurable, view.Source)
	assert.Equal(t, 2, view.Quantity)
	assert.Equal(t, int64(2000), view.Subtotal)
	assert.Equal(t, "Distribuidora Teste", view.Snapshot.SupplierName)
}

func TestAddItemUnknownProduct(t *testing.T) {
	svc, db, _ := setupCartTest(t)
	seedCatalog(t, db)

	_, err := svc.AddItem(context.Background(), 42, &AddToCartRequest{ProductID: 9999, Quantity: 1})
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	svc, db, _ := setupCartTest(t)
	_, p1, _ := seedCatalog(t, db)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, &AddToCartRequest{ProductID: p1.ID, Quantity: 1})
	require.NoError(t, err)
	view, err := svc.AddItem(ctx, 42, &AddToCartRequest{ProductID: p1.ID, Quantity: 3})
	require.NoError(t, err)

	assert.Equal(t, 4, view.Quantity)

	c, err := svc.List(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
	assert.Equal(t, 4, c.TotalQuantity)
}

func TestListMergesLocalWins(t *testing.T) {
	svc, db, _ := setupCartTest(t)
	_, p1, p2 := seedCatalog(t, db)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, &AddToCartRequest{ProductID: p1.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 42, &AddToCartRequest{ProductID: p2.ID, Quantity: 1})
	require.NoError(t, err)

	// Demo line for the same product as p1 must shadow the durable line
	_, err = svc.AddDemoItem(ctx, 42, &AddDemoItemRequest{
		ProductID:  p1.ID,
		Name:       "Produto Um (demo)",
		UnitPrice:  900,
		SupplierID: 7,
		Quantity:   5,
	})
	require.NoError(t, err)

	c, err := svc.List(ctx, 42)
	require.NoError(t, err)
	require.Len(t, c.Items, 2)

	bySource := map[Source]ItemView{}
	for _, item := range c.Items {
		bySource[item.Source] = item
	}
	assert.Equal(t, p2.ID, bySource[SourceDurable].Snapshot.ProductID)
	assert.Equal(t, p1.ID, bySource[SourceLocal].Snapshot.ProductID)
	assert.Equal(t, 5, bySource[SourceLocal].Quantity)
	assert.Equal(t, int64(2500+4500), c.Subtotal)
}

func TestUpdateQuantityDispatchesBySourceTag(t *testing.T) {
	svc, db, _ := setupCartTest(t)
	_, p1, _ := seedCatalog(t, db)
	ctx := context.Background()

	durableView, err := svc.AddItem(ctx, 42, &AddToCartRequest{ProductID: p1.ID, Quantity: 1})
	require.NoError(t, err)
	localView, err := svc.AddDemoItem(ctx, 42, &AddDemoItemRequest{
		Name: "Demo", UnitPrice: 100, SupplierID: 7, Quantity: 1,
	})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateQuantity(ctx, 42, durableView.ID, SourceDurable, 3))
	require.NoError(t, svc.UpdateQuantity(ctx, 42, localView.ID, SourceLocal, 2))

	c, err := svc.List(ctx, 42)
	require.NoError(t, err)
	for _, item := range c.Items {
		switch item.Source {
		case SourceDurable:
			assert.Equal(t, 3, item.Quantity)
		case SourceLocal:
			assert.Equal(t, 2, item.Quantity)
		}
	}
}

func TestUpdateQuantityWrongSourceTag(t *testing.T) {
	svc, db, _ := setupCartTest(t)
	_, p1, _ := seedCatalog(t, db)
	ctx := context.Background()

	durableView, err := svc.AddItem(ctx, 42, &AddToCartRequest{ProductID: p1.ID, Quantity: 1})
	require.NoError(t, err)

	// A durable ID addressed at the local backend is simply not there
	err = svc.UpdateQuantity(ctx, 42, durableView.ID, SourceLocal, 3)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestUpdateQuantityFallsBackWithoutSource(t *testing.T) {
	svc, db, _ := setupCartTest(t)
	_, p1, _ := seedCatalog(t, db)
	ctx := context.Background()

	durableView, err := svc.AddItem(ctx, 42, &AddToCartRequest{ProductID: p1.ID, Quantity: 1})
	require.NoError(t, err)
	localView, err := svc.AddDemoItem(ctx, 42, &AddDemoItemRequest{
		Name: "Demo", UnitPrice: 100, SupplierID: 7, Quantity: 1,
	})
	require.NoError(t, err)

	// Callers that never learned the source tag still reach the right
	// backend via the ID lookup
	require.NoError(t, svc.UpdateQuantity(ctx, 42, durableView.ID, "", 3))
	require.NoError(t, svc.UpdateQuantity(ctx, 42, localView.ID, "", 2))

	c, err := svc.List(ctx, 42)
	require.NoError(t, err)
	for _, item := range c.Items {
		switch item.Source {
		case SourceDurable:
			assert.Equal(t, 3, item.Quantity)
		case SourceLocal:
			assert.Equal(t, 2, item.Quantity)
		}
	}
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	svc, db, _ := setupCartTest(t)
	_, p1, _ := seedCatalog(t, db)
	ctx := context.Background()

	view, err := svc.AddItem(ctx, 42, &AddToCartRequest{ProductID: p1.ID, Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateQuantity(ctx, 42, view.ID, SourceDurable, 0))

	c, err := svc.List(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestUpdateQuantityUnknownItem(t *testing.T) {
	svc, _, _ := setupCartTest(t)

	err := svc.UpdateQuantity(context.Background(), 42, "123456", "", 1)
	assert.ErrorIs(t, err, ErrCartItemNotFound)

	err = svc.UpdateQuantity(context.Background(), 42, uuid.New().String(), "", 1)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	svc, db, _ := setupCartTest(t)
	_, p1, _ := seedCatalog(t, db)
	ctx := context.Background()

	view, err := svc.AddItem(ctx, 42, &AddToCartRequest{ProductID: p1.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(ctx, 42, view.ID, SourceDurable))
	require.NoError(t, svc.RemoveItem(ctx, 42, view.ID, SourceDurable))
	require.NoError(t, svc.RemoveItem(ctx, 42, uuid.New().String(), ""))

	c, err := svc.List(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestClearEmptiesBothBackends(t *testing.T) {
	svc, db, local := setupCartTest(t)
	_, p1, _ := seedCatalog(t, db)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, &AddToCartRequest{ProductID: p1.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddDemoItem(ctx, 42, &AddDemoItemRequest{
		Name: "Demo", UnitPrice: 100, SupplierID: 7, Quantity: 1,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, 42))

	c, err := svc.List(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.Empty(t, local.items[42])
}
