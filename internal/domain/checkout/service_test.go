// internal/domain/checkout/service_test.go
package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/coupon"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/shipping"
	"github.com/your-org/marketplace-backend/internal/domain/user"
	"github.com/your-org/marketplace-backend/internal/pkg/email"
)

// fakeCarts serves a fixed merged cart and records local clears
type fakeCarts struct {
	cart         cart.Cart
	localCleared int
}

func (f *fakeCarts) List(_ context.Context, _ uint) (*cart.Cart, error) {
	c := f.cart
	c.Totalize()
	return &c, nil
}

func (f *fakeCarts) ClearLocal(_ context.Context, _ uint) error {
	f.localCleared++
	return nil
}

// fakeRates returns a fixed option list or a canned error
type fakeRates struct {
	options []shipping.Option
	err     error
}

func (f *fakeRates) Quote(_ context.Context, _ string, _ []shipping.Item) ([]shipping.Option, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.options, nil
}

// fakeLocker can be told the lock is already held
type fakeLocker struct {
	held     bool
	acquired int
	released int
}

func (f *fakeLocker) Acquire(_ context.Context, _ uint) (func(), error) {
	if f.held {
		return nil, ErrCheckoutInProgress
	}
	f.acquired++
	return func() { f.released++ }, nil
}

// fakeNotifier records order placed notifications
type fakeNotifier struct {
	emails []string
	data   []email.OrderPlacedData
}

func (f *fakeNotifier) SendOrderPlacedAsync(userEmail string, d email.OrderPlacedData) {
	f.emails = append(f.emails, userEmail)
	f.data = append(f.data, d)
}

// failingApply wraps the real coupon service but fails redemption,
// which happens after the orders were written inside the transaction
type failingApply struct {
	*coupon.Service
}

func (f *failingApply) Apply(_ *gorm.DB, _, _, _ uint, _ int64) error {
	return errors.New("redemption failed")
}

type fixture struct {
	svc      *Service
	db       *gorm.DB
	carts    *fakeCarts
	rates    *fakeRates
	locker   *fakeLocker
	notifier *fakeNotifier
	coupons  *coupon.Service
	buyer    user.User
	address  user.Address
}

func setupCheckoutTest(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&user.User{}, &user.Address{}, &cart.CartItem{},
		&coupon.Coupon{}, &coupon.CouponUse{},
		&order.Order{}, &order.OrderItem{}, &order.TrackingEvent{},
	))

	buyer := user.User{
		Email: "buyer@example.com", Password: "x", FirstName: "Beatriz",
		LastName: "Buyer", Role: user.RoleBuyer, IsActive: true, IsApproved: true,
	}
	require.NoError(t, db.Create(&buyer).Error)

	address := user.Address{
		UserID: buyer.ID, Street: "Avenida Paulista", Number: "1578",
		Neighborhood: "Bela Vista", City: "São Paulo", State: "SP",
		PostalCode: "01310200", IsDefault: true,
	}
	require.NoError(t, db.Create(&address).Error)

	f := &fixture{
		db:       db,
		carts:    &fakeCarts{},
		rates:    &fakeRates{options: []shipping.Option{
			{ID: 1, Carrier: "Correios", Service: "PAC", Price: 2152, DeliveryDays: 8},
			{ID: 2, Carrier: "Correios", Service: "SEDEX", Price: 3510, DeliveryDays: 3},
		}},
		locker:   &fakeLocker{},
		notifier: &fakeNotifier{},
		coupons:  coupon.NewService(db),
		buyer:    buyer,
		address:  address,
	}
	f.svc = NewService(db, f.carts, f.coupons, f.rates, f.locker, f.notifier, nil)
	return f
}

func cartItem(supplierID uint, productID uint, unitPrice int64, qty int) cart.ItemView {
	return cart.ItemView{
		ID:       "line",
		Source:   cart.SourceDurable,
		Quantity: qty,
		Subtotal: unitPrice * int64(qty),
		Snapshot: cart.Snapshot{
			ProductID:  productID,
			SKU:        "SKU",
			Name:       "Produto",
			UnitPrice:  unitPrice,
			InStock:    true,
			SupplierID: supplierID,
		},
	}
}

func (f *fixture) seedDurableCartRow(t *testing.T, productID uint) {
	t.Helper()
	require.NoError(t, f.db.Create(&cart.CartItem{
		UserID: f.buyer.ID, ProductID: productID, Quantity: 1, Price: 100,
	}).Error)
}

func TestCheckoutMultiSupplier(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()

	f.carts.cart.Items = []cart.ItemView{
		cartItem(10, 1, 6000, 1),
		cartItem(11, 2, 4000, 1),
	}
	f.seedDurableCartRow(t, 1)
	f.seedDurableCartRow(t, 2)

	result, err := f.svc.Checkout(ctx, f.buyer.ID, &CheckoutRequest{
		AddressID: f.address.ID, ShippingOptionID: 1,
	})
	require.NoError(t, err)

	require.Len(t, result.Orders, 2)
	assert.NotEmpty(t, result.CheckoutID)
	assert.Equal(t, int64(10000), result.Subtotal)
	assert.Equal(t, int64(2152), result.ShippingTotal)
	assert.Equal(t, int64(12152), result.GrandTotal)

	// Shipping split 60/40 by subtotal share, remainder to the first
	first, second := result.Orders[0], result.Orders[1]
	assert.Equal(t, uint(10), first.SupplierID)
	assert.Equal(t, int64(6000), first.SubtotalAmount)
	// 2152 split 60/40 gives 1291.2 and 860.8; integer shares are 1291
	// and 860 with the leftover cent on the first order
	assert.Equal(t, int64(1292), first.ShippingAmount)
	assert.Equal(t, int64(860), second.ShippingAmount)
	assert.Equal(t, result.CheckoutID, first.CheckoutID)
	assert.Equal(t, result.CheckoutID, second.CheckoutID)
	assert.Equal(t, "PAC", first.ShippingService)
	assert.Equal(t, "01310200", first.ShippingAddress.PostalCode)
	assert.Len(t, first.Items, 1)

	// Durable cart cleared inside the transaction, local cleared after
	var remaining int64
	f.db.Model(&cart.CartItem{}).Where("user_id = ?", f.buyer.ID).Count(&remaining)
	assert.Zero(t, remaining)
	assert.Equal(t, 1, f.carts.localCleared)

	// Notification carried both order numbers
	require.Len(t, f.notifier.data, 1)
	assert.Equal(t, "buyer@example.com", f.notifier.emails[0])
	assert.Len(t, f.notifier.data[0].OrderNumbers, 2)

	// Lock cycled exactly once
	assert.Equal(t, 1, f.locker.acquired)
	assert.Equal(t, 1, f.locker.released)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := setupCheckoutTest(t)

	_, err := f.svc.Checkout(context.Background(), f.buyer.ID, &CheckoutRequest{
		AddressID: f.address.ID, ShippingOptionID: 1,
	})
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, 1, f.locker.released)
}

func TestCheckoutUnknownShippingOption(t *testing.T) {
	f := setupCheckoutTest(t)
	f.carts.cart.Items = []cart.ItemView{cartItem(10, 1, 1000, 1)}

	_, err := f.svc.Checkout(context.Background(), f.buyer.ID, &CheckoutRequest{
		AddressID: f.address.ID, ShippingOptionID: 99,
	})
	assert.ErrorIs(t, err, ErrShippingNotSelected)
}

func TestCheckoutQuoteUnavailable(t *testing.T) {
	f := setupCheckoutTest(t)
	f.carts.cart.Items = []cart.ItemView{cartItem(10, 1, 1000, 1)}
	f.rates.err = shipping.ErrQuoteUnavailable

	_, err := f.svc.Checkout(context.Background(), f.buyer.ID, &CheckoutRequest{
		AddressID: f.address.ID, ShippingOptionID: 1,
	})
	assert.ErrorIs(t, err, shipping.ErrQuoteUnavailable)
}

func TestCheckoutLockContention(t *testing.T) {
	f := setupCheckoutTest(t)
	f.carts.cart.Items = []cart.ItemView{cartItem(10, 1, 1000, 1)}
	f.locker.held = true

	_, err := f.svc.Checkout(context.Background(), f.buyer.ID, &CheckoutRequest{
		AddressID: f.address.ID, ShippingOptionID: 1,
	})
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
}

func TestCheckoutForeignAddress(t *testing.T) {
	f := setupCheckoutTest(t)
	f.carts.cart.Items = []cart.ItemView{cartItem(10, 1, 1000, 1)}

	other := user.User{Email: "other@example.com", Password: "x", FirstName: "O", LastName: "U", Role: user.RoleBuyer}
	require.NoError(t, f.db.Create(&other).Error)
	foreign := user.Address{UserID: other.ID, Street: "Rua X", Number: "1",
		Neighborhood: "Centro", City: "Rio de Janeiro", State: "RJ", PostalCode: "20040030"}
	require.NoError(t, f.db.Create(&foreign).Error)

	_, err := f.svc.Checkout(context.Background(), f.buyer.ID, &CheckoutRequest{
		AddressID: foreign.ID, ShippingOptionID: 1,
	})
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestCheckoutOutOfStockItem(t *testing.T) {
	f := setupCheckoutTest(t)
	line := cartItem(10, 1, 1000, 1)
	line.Snapshot.InStock = false
	f.carts.cart.Items = []cart.ItemView{line}

	_, err := f.svc.Checkout(context.Background(), f.buyer.ID, &CheckoutRequest{
		AddressID: f.address.ID, ShippingOptionID: 1,
	})
	assert.ErrorIs(t, err, ErrItemUnavailable)
}

func TestCheckoutStorewideCoupon(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()

	f.carts.cart.Items = []cart.ItemView{
		cartItem(10, 1, 6000, 1),
		cartItem(11, 2, 4000, 1),
	}

	c := coupon.Coupon{
		Code: "OFF10", Type: coupon.TypePercentage, Value: 10,
		ValidFrom: timePtr(time.Now().Add(-time.Hour)), ValidUntil: timePtr(time.Now().Add(time.Hour)),
		IsActive: true,
	}
	require.NoError(t, f.db.Create(&c).Error)

	result, err := f.svc.Checkout(ctx, f.buyer.ID, &CheckoutRequest{
		AddressID: f.address.ID, ShippingOptionID: 1, CouponCode: "OFF10",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1000), result.DiscountTotal)
	assert.Equal(t, "OFF10", result.CouponCode)
	assert.Equal(t, int64(600), result.Orders[0].DiscountAmount)
	assert.Equal(t, int64(400), result.Orders[1].DiscountAmount)

	// Redemption recorded against the first order in partition order
	var uses []coupon.CouponUse
	require.NoError(t, f.db.Find(&uses).Error)
	require.Len(t, uses, 1)
	assert.Equal(t, result.Orders[0].ID, uses[0].OrderID)
	assert.Equal(t, int64(1000), uses[0].Amount)

	var reloaded coupon.Coupon
	require.NoError(t, f.db.First(&reloaded, c.ID).Error)
	assert.Equal(t, 1, reloaded.UsesCount)
}

func TestCheckoutSupplierScopedCoupon(t *testing.T) {
	f := setupCheckoutTest(t)

	f.carts.cart.Items = []cart.ItemView{
		cartItem(10, 1, 6000, 1),
		cartItem(11, 2, 4000, 1),
	}

	scoped := uint(11)
	c := coupon.Coupon{
		Code: "SUP20", Type: coupon.TypePercentage, Value: 20, SupplierID: &scoped,
		ValidFrom: timePtr(time.Now().Add(-time.Hour)), ValidUntil: timePtr(time.Now().Add(time.Hour)),
		IsActive: true,
	}
	require.NoError(t, f.db.Create(&c).Error)

	result, err := f.svc.Checkout(context.Background(), f.buyer.ID, &CheckoutRequest{
		AddressID: f.address.ID, ShippingOptionID: 1, CouponCode: "SUP20",
	})
	require.NoError(t, err)

	// 20% of supplier 11's R$ 40,00 lands entirely on its order
	assert.Equal(t, int64(800), result.DiscountTotal)
	assert.Equal(t, int64(0), result.Orders[0].DiscountAmount)
	assert.Equal(t, int64(800), result.Orders[1].DiscountAmount)
	assert.Equal(t, "SUP20", result.Orders[1].CouponCode)
	assert.Empty(t, result.Orders[0].CouponCode)
}

func TestCheckoutInvalidCouponAbortsBeforeOrders(t *testing.T) {
	f := setupCheckoutTest(t)
	f.carts.cart.Items = []cart.ItemView{cartItem(10, 1, 1000, 1)}

	_, err := f.svc.Checkout(context.Background(), f.buyer.ID, &CheckoutRequest{
		AddressID: f.address.ID, ShippingOptionID: 1, CouponCode: "NOPE",
	})
	assert.ErrorIs(t, err, coupon.ErrCouponNotFound)

	var count int64
	f.db.Model(&order.Order{}).Count(&count)
	assert.Zero(t, count)
}

func TestCheckoutRollsBackAllOrdersOnLateFailure(t *testing.T) {
	f := setupCheckoutTest(t)
	ctx := context.Background()

	f.carts.cart.Items = []cart.ItemView{
		cartItem(10, 1, 6000, 1),
		cartItem(11, 2, 4000, 1),
	}
	f.seedDurableCartRow(t, 1)
	f.seedDurableCartRow(t, 2)

	c := coupon.Coupon{
		Code: "OFF10", Type: coupon.TypePercentage, Value: 10,
		ValidFrom: timePtr(time.Now().Add(-time.Hour)), ValidUntil: timePtr(time.Now().Add(time.Hour)),
		IsActive: true,
	}
	require.NoError(t, f.db.Create(&c).Error)

	// Redemption runs after all orders were written; its failure must
	// undo every order and leave the cart untouched
	f.svc = NewService(f.db, f.carts, &failingApply{f.coupons}, f.rates, f.locker, f.notifier, nil)

	_, err := f.svc.Checkout(ctx, f.buyer.ID, &CheckoutRequest{
		AddressID: f.address.ID, ShippingOptionID: 1, CouponCode: "OFF10",
	})
	require.Error(t, err)

	var orderCount, itemCount, cartCount int64
	f.db.Model(&order.Order{}).Count(&orderCount)
	f.db.Model(&order.OrderItem{}).Count(&itemCount)
	f.db.Model(&cart.CartItem{}).Where("user_id = ?", f.buyer.ID).Count(&cartCount)
	assert.Zero(t, orderCount)
	assert.Zero(t, itemCount)
	assert.Equal(t, int64(2), cartCount)

	// Local cart untouched and no notification sent
	assert.Zero(t, f.carts.localCleared)
	assert.Empty(t, f.notifier.data)
}

func TestCheckoutSingleSupplierGetsAllShipping(t *testing.T) {
	f := setupCheckoutTest(t)
	f.carts.cart.Items = []cart.ItemView{
		cartItem(10, 1, 1000, 1),
		cartItem(10, 2, 2000, 1),
	}

	result, err := f.svc.Checkout(context.Background(), f.buyer.ID, &CheckoutRequest{
		AddressID: f.address.ID, ShippingOptionID: 2,
	})
	require.NoError(t, err)

	require.Len(t, result.Orders, 1)
	assert.Equal(t, int64(3510), result.Orders[0].ShippingAmount)
	assert.Len(t, result.Orders[0].Items, 2)
}

func TestQuotesRequiresItems(t *testing.T) {
	f := setupCheckoutTest(t)

	_, err := f.svc.Quotes(context.Background(), f.buyer.ID, f.address.ID)
	assert.ErrorIs(t, err, ErrEmptyCart)

	f.carts.cart.Items = []cart.ItemView{cartItem(10, 1, 1000, 1)}
	options, err := f.svc.Quotes(context.Background(), f.buyer.ID, f.address.ID)
	require.NoError(t, err)
	assert.Len(t, options, 2)
}

func timePtr(t time.Time) *time.Time { return &t }
