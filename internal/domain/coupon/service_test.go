// internal/domain/coupon/service_test.go
package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupCouponTest(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Coupon{}, &CouponUse{}))
	return NewService(db), db
}

func validCoupon(code string) Coupon {
	return Coupon{
		Code:       code,
		Type:       TypePercentage,
		Value:      10,
		ValidFrom:  timePtr(time.Now().Add(-time.Hour)),
		ValidUntil: timePtr(time.Now().Add(time.Hour)),
		IsActive:   true,
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestValidateUnknownCode(t *testing.T) {
	svc, _ := setupCouponTest(t)

	_, err := svc.Validate(context.Background(), "NOPE", 1, 10000, nil)
	assert.ErrorIs(t, err, ErrCouponNotFound)
}

func TestValidateInactiveCode(t *testing.T) {
	svc, db := setupCouponTest(t)
	c := validCoupon("OFF10")
	c.IsActive = false
	require.NoError(t, db.Create(&c).Error)

	_, err := svc.Validate(context.Background(), "OFF10", 1, 10000, nil)
	assert.ErrorIs(t, err, ErrCouponNotFound)
}

func TestValidateWindow(t *testing.T) {
	svc, db := setupCouponTest(t)

	early := validCoupon("EARLY")
	early.ValidFrom = timePtr(time.Now().Add(time.Hour))
	early.ValidUntil = timePtr(time.Now().Add(2 * time.Hour))
	require.NoError(t, db.Create(&early).Error)

	late := validCoupon("LATE")
	late.ValidFrom = timePtr(time.Now().Add(-2 * time.Hour))
	late.ValidUntil = timePtr(time.Now().Add(-time.Hour))
	require.NoError(t, db.Create(&late).Error)

	_, err := svc.Validate(context.Background(), "EARLY", 1, 10000, nil)
	assert.ErrorIs(t, err, ErrCouponNotYetValid)

	_, err = svc.Validate(context.Background(), "LATE", 1, 10000, nil)
	assert.ErrorIs(t, err, ErrCouponExpired)
}

func TestValidateNoWindow(t *testing.T) {
	// The validity window is optional: a coupon with neither bound set
	// is usable at any time
	svc, db := setupCouponTest(t)
	c := Coupon{Code: "NOWINDOW", Type: TypePercentage, Value: 10, IsActive: true}
	require.NoError(t, db.Create(&c).Error)

	v, err := svc.Validate(context.Background(), "NOWINDOW", 1, 10000, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), v.Discount)

	// A single open-ended bound works too
	openEnd := validCoupon("OPENEND")
	openEnd.ValidUntil = nil
	require.NoError(t, db.Create(&openEnd).Error)

	_, err = svc.Validate(context.Background(), "OPENEND", 1, 10000, nil)
	require.NoError(t, err)
}

func TestValidateExhausted(t *testing.T) {
	svc, db := setupCouponTest(t)
	c := validCoupon("FULL")
	c.MaxUses = 5
	c.UsesCount = 5
	require.NoError(t, db.Create(&c).Error)

	_, err := svc.Validate(context.Background(), "FULL", 1, 10000, nil)
	assert.ErrorIs(t, err, ErrCouponExhausted)
}

func TestValidateExpiredBeforeExhausted(t *testing.T) {
	// An expired coupon that is also out of uses reports expiry, the
	// checks run in a fixed order
	svc, db := setupCouponTest(t)
	c := validCoupon("BOTH")
	c.ValidUntil = timePtr(time.Now().Add(-time.Minute))
	c.MaxUses = 1
	c.UsesCount = 1
	require.NoError(t, db.Create(&c).Error)

	_, err := svc.Validate(context.Background(), "BOTH", 1, 10000, nil)
	assert.ErrorIs(t, err, ErrCouponExpired)
}

func TestValidateAlreadyUsedByBuyer(t *testing.T) {
	svc, db := setupCouponTest(t)
	c := validCoupon("ONCE")
	require.NoError(t, db.Create(&c).Error)
	require.NoError(t, db.Create(&CouponUse{CouponID: c.ID, UserID: 7, OrderID: 1, Amount: 500}).Error)

	_, err := svc.Validate(context.Background(), "ONCE", 7, 10000, nil)
	assert.ErrorIs(t, err, ErrCouponAlreadyUsed)

	// Another buyer can still use it
	v, err := svc.Validate(context.Background(), "ONCE", 8, 10000, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), v.Discount)
}

func TestValidateMinimumBeforeReuse(t *testing.T) {
	// A buyer who already redeemed the coupon and is also under the
	// minimum learns about the minimum first: the minimum-order check
	// runs before the per-buyer reuse check
	svc, db := setupCouponTest(t)
	c := validCoupon("ORDERED")
	c.MinimumOrder = 10000
	require.NoError(t, db.Create(&c).Error)
	require.NoError(t, db.Create(&CouponUse{CouponID: c.ID, UserID: 7, OrderID: 1, Amount: 500}).Error)

	_, err := svc.Validate(context.Background(), "ORDERED", 7, 500, nil)
	assert.ErrorIs(t, err, ErrMinimumOrderNotMet)

	// At or above the minimum the reuse check fires
	_, err = svc.Validate(context.Background(), "ORDERED", 7, 10000, nil)
	assert.ErrorIs(t, err, ErrCouponAlreadyUsed)
}

func TestValidateMinimumOrder(t *testing.T) {
	svc, db := setupCouponTest(t)
	c := validCoupon("MIN50")
	c.MinimumOrder = 5000
	require.NoError(t, db.Create(&c).Error)

	_, err := svc.Validate(context.Background(), "MIN50", 1, 4999, nil)
	assert.ErrorIs(t, err, ErrMinimumOrderNotMet)
	assert.Contains(t, err.Error(), "R$ 50.00")

	v, err := svc.Validate(context.Background(), "MIN50", 1, 5000, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(500), v.Discount)
}

func TestValidateCodeNormalization(t *testing.T) {
	svc, db := setupCouponTest(t)
	require.NoError(t, db.Create(ptr(validCoupon("OFF10"))).Error)

	v, err := svc.Validate(context.Background(), "  off10 ", 1, 10000, nil)
	require.NoError(t, err)
	assert.Equal(t, "OFF10", v.Coupon.Code)
}

func TestFixedDiscountCappedAtSubtotal(t *testing.T) {
	svc, db := setupCouponTest(t)
	c := validCoupon("FIX30")
	c.Type = TypeFixed
	c.Value = 3000
	require.NoError(t, db.Create(&c).Error)

	v, err := svc.Validate(context.Background(), "FIX30", 1, 2000, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), v.Discount)
}

func TestSupplierScopedCoupon(t *testing.T) {
	svc, db := setupCouponTest(t)
	supplierID := uint(3)
	c := validCoupon("SUP10")
	c.SupplierID = &supplierID
	c.MinimumOrder = 2000
	require.NoError(t, db.Create(&c).Error)

	subtotals := map[uint]int64{3: 1500, 4: 9000}

	// Only the scoped supplier's share counts toward the minimum
	_, err := svc.Validate(context.Background(), "SUP10", 1, 10500, subtotals)
	assert.ErrorIs(t, err, ErrMinimumOrderNotMet)

	subtotals[3] = 3000
	v, err := svc.Validate(context.Background(), "SUP10", 1, 12000, subtotals)
	require.NoError(t, err)
	assert.Equal(t, int64(300), v.Discount)
}

func TestApplyIncrementsAndGuards(t *testing.T) {
	svc, db := setupCouponTest(t)
	c := validCoupon("LIMIT1")
	c.MaxUses = 1
	require.NoError(t, db.Create(&c).Error)

	require.NoError(t, svc.Apply(db, c.ID, 7, 100, 500))

	var reloaded Coupon
	require.NoError(t, db.First(&reloaded, c.ID).Error)
	assert.Equal(t, 1, reloaded.UsesCount)

	var uses []CouponUse
	require.NoError(t, db.Find(&uses).Error)
	require.Len(t, uses, 1)
	assert.Equal(t, uint(100), uses[0].OrderID)
	assert.Equal(t, int64(500), uses[0].Amount)

	// Second redemption hits the guard
	err := svc.Apply(db, c.ID, 8, 101, 500)
	assert.ErrorIs(t, err, ErrCouponExhausted)
}

func TestApplyUnlimitedCoupon(t *testing.T) {
	svc, db := setupCouponTest(t)
	c := validCoupon("NOLIMIT")
	require.NoError(t, db.Create(&c).Error)

	require.NoError(t, svc.Apply(db, c.ID, 7, 100, 500))
	require.NoError(t, svc.Apply(db, c.ID, 8, 101, 500))

	var reloaded Coupon
	require.NoError(t, db.First(&reloaded, c.ID).Error)
	assert.Equal(t, 2, reloaded.UsesCount)
}

func TestCreateCouponValidation(t *testing.T) {
	svc, _ := setupCouponTest(t)
	ctx := context.Background()
	supplierID := uint(3)

	_, err := svc.CreateCoupon(ctx, &supplierID, &CreateCouponRequest{
		Code: "BAD", Type: TypePercentage, Value: 150,
		ValidFrom: timePtr(time.Now()), ValidUntil: timePtr(time.Now().Add(time.Hour)),
	})
	assert.Error(t, err)

	_, err = svc.CreateCoupon(ctx, &supplierID, &CreateCouponRequest{
		Code: "BAD2", Type: TypeFixed, Value: 100,
		ValidFrom: timePtr(time.Now().Add(time.Hour)), ValidUntil: timePtr(time.Now()),
	})
	assert.Error(t, err)

	c, err := svc.CreateCoupon(ctx, &supplierID, &CreateCouponRequest{
		Code: "good10", Type: TypePercentage, Value: 10,
		ValidFrom: timePtr(time.Now()), ValidUntil: timePtr(time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)
	assert.Equal(t, "GOOD10", c.Code)
	require.NotNil(t, c.SupplierID)
	assert.Equal(t, supplierID, *c.SupplierID)

	// Both window bounds may be omitted
	open, err := svc.CreateCoupon(ctx, &supplierID, &CreateCouponRequest{
		Code: "forever", Type: TypePercentage, Value: 5,
	})
	require.NoError(t, err)
	assert.Nil(t, open.ValidFrom)
	assert.Nil(t, open.ValidUntil)
}

func TestSupplierOwnership(t *testing.T) {
	svc, db := setupCouponTest(t)
	ctx := context.Background()
	owner := uint(3)
	intruder := uint(4)

	c := validCoupon("MINE")
	c.SupplierID = &owner
	require.NoError(t, db.Create(&c).Error)

	_, err := svc.UpdateCoupon(ctx, &intruder, c.ID, &UpdateCouponRequest{})
	assert.ErrorIs(t, err, ErrNotCouponOwner)

	err = svc.DeleteCoupon(ctx, &intruder, c.ID)
	assert.ErrorIs(t, err, ErrNotCouponOwner)

	// Admin path (nil supplier) may touch any coupon
	active := false
	updated, err := svc.UpdateCoupon(ctx, nil, c.ID, &UpdateCouponRequest{IsActive: &active})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

func TestListCoupons(t *testing.T) {
	svc, db := setupCouponTest(t)
	owner := uint(3)
	other := uint(4)

	c1 := validCoupon("A1")
	c1.SupplierID = &owner
	c2 := validCoupon("A2")
	c2.SupplierID = &owner
	c3 := validCoupon("B1")
	c3.SupplierID = &other
	require.NoError(t, db.Create(&c1).Error)
	require.NoError(t, db.Create(&c2).Error)
	require.NoError(t, db.Create(&c3).Error)

	coupons, err := svc.ListCoupons(context.Background(), &owner)
	require.NoError(t, err)
	assert.Len(t, coupons, 2)

	all, err := svc.ListCoupons(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func ptr(c Coupon) *Coupon { return &c }
