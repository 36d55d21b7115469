// internal/domain/order/service_test.go
package order

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupOrderTest(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Order{}, &OrderItem{}, &TrackingEvent{}))
	return NewService(db), db
}

func seedOrder(t *testing.T, db *gorm.DB, userID, supplierID uint, status OrderStatus) *Order {
	t.Helper()

	o := Order{
		OrderNumber:    "ORD-" + uuid.New().String(),
		CheckoutID:     "chk-test",
		UserID:         userID,
		SupplierID:     supplierID,
		Status:         status,
		SubtotalAmount: 5000,
		ShippingAmount: 1000,
		TotalAmount:    6000,
		Currency:       "BRL",
	}
	require.NoError(t, db.Create(&o).Error)
	// Unique order numbers per row
	require.NoError(t, db.Model(&o).Update("order_number", GenerateOrderNumber(o.ID)).Error)

	item := OrderItem{
		OrderID:    o.ID,
		ProductID:  1,
		SupplierID: supplierID,
		SKU:        "SKU-1",
		Name:       "Produto",
		Quantity:   2,
		UnitPrice:  2500,
		TotalPrice: 5000,
		Status:     status,
	}
	require.NoError(t, db.Create(&item).Error)
	o.Items = []OrderItem{item}
	return &o
}

func TestListForBuyerScopesToOwner(t *testing.T) {
	svc, db := setupOrderTest(t)
	ctx := context.Background()

	seedOrder(t, db, 1, 10, OrderStatusPending)
	seedOrder(t, db, 1, 11, OrderStatusShipped)
	seedOrder(t, db, 2, 10, OrderStatusPending)

	resp, err := svc.ListForBuyer(ctx, 1, &OrderListRequest{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, resp.Orders, 2)
	assert.Equal(t, int64(2), resp.Pagination.Total)

	// Status filter narrows further
	resp, err = svc.ListForBuyer(ctx, 1, &OrderListRequest{Page: 1, Limit: 20, Status: OrderStatusShipped})
	require.NoError(t, err)
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, uint(11), resp.Orders[0].SupplierID)
}

func TestListForSupplierScopesToSupplier(t *testing.T) {
	svc, db := setupOrderTest(t)
	ctx := context.Background()

	seedOrder(t, db, 1, 10, OrderStatusPending)
	seedOrder(t, db, 2, 10, OrderStatusPending)
	seedOrder(t, db, 1, 11, OrderStatusPending)

	resp, err := svc.ListForSupplier(ctx, 10, &OrderListRequest{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, resp.Orders, 2)
}

func TestGetForBuyerHidesOthersOrders(t *testing.T) {
	svc, db := setupOrderTest(t)
	ctx := context.Background()
	o := seedOrder(t, db, 1, 10, OrderStatusPending)

	got, err := svc.GetForBuyer(ctx, 1, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)
	assert.Len(t, got.Items, 1)

	_, err = svc.GetForBuyer(ctx, 2, o.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatusForwardOnly(t *testing.T) {
	svc, db := setupOrderTest(t)
	ctx := context.Background()
	o := seedOrder(t, db, 1, 10, OrderStatusPending)

	got, err := svc.UpdateStatus(ctx, 10, o.ID, &UpdateStatusRequest{Status: OrderStatusProcessing})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusProcessing, got.Status)
	assert.NotNil(t, got.ProcessedAt)

	got, err = svc.UpdateStatus(ctx, 10, o.ID, &UpdateStatusRequest{
		Status:       OrderStatusShipped,
		TrackingCode: "BR123456789",
	})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, got.Status)
	assert.NotNil(t, got.ShippedAt)
	require.Len(t, got.Items, 1)
	assert.Equal(t, OrderStatusShipped, got.Items[0].Status)
	assert.Equal(t, "BR123456789", got.Items[0].TrackingCode)

	// Backward move is rejected
	_, err = svc.UpdateStatus(ctx, 10, o.ID, &UpdateStatusRequest{Status: OrderStatusPending})
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	// Skipping ahead is rejected too
	o2 := seedOrder(t, db, 1, 10, OrderStatusPending)
	_, err = svc.UpdateStatus(ctx, 10, o2.ID, &UpdateStatusRequest{Status: OrderStatusDelivered})
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestUpdateStatusCancellation(t *testing.T) {
	svc, db := setupOrderTest(t)
	ctx := context.Background()

	for _, from := range []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusShipped} {
		o := seedOrder(t, db, 1, 10, from)
		got, err := svc.UpdateStatus(ctx, 10, o.ID, &UpdateStatusRequest{Status: OrderStatusCancelled})
		require.NoError(t, err, "cancel from %s", from)
		assert.Equal(t, OrderStatusCancelled, got.Status)
		assert.NotNil(t, got.CancelledAt)
	}

	// Terminal states cannot be cancelled
	delivered := seedOrder(t, db, 1, 10, OrderStatusDelivered)
	_, err := svc.UpdateStatus(ctx, 10, delivered.ID, &UpdateStatusRequest{Status: OrderStatusCancelled})
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestUpdateStatusSupplierScoped(t *testing.T) {
	svc, db := setupOrderTest(t)
	o := seedOrder(t, db, 1, 10, OrderStatusPending)

	_, err := svc.UpdateStatus(context.Background(), 11, o.ID, &UpdateStatusRequest{Status: OrderStatusProcessing})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestAppendTrackingEvent(t *testing.T) {
	svc, db := setupOrderTest(t)
	ctx := context.Background()
	o := seedOrder(t, db, 1, 10, OrderStatusShipped)
	itemID := o.Items[0].ID

	event, err := svc.AppendTrackingEvent(ctx, 10, o.ID, itemID, &TrackingEventRequest{
		Status:      "in_transit",
		Description: "Objeto em trânsito para São Paulo",
		Location:    "Curitiba/PR",
	})
	require.NoError(t, err)
	assert.NotZero(t, event.ID)

	_, err = svc.AppendTrackingEvent(ctx, 10, o.ID, itemID, &TrackingEventRequest{
		Status:      "out_for_delivery",
		Description: "Objeto saiu para entrega",
	})
	require.NoError(t, err)

	// Wrong supplier cannot append
	_, err = svc.AppendTrackingEvent(ctx, 11, o.ID, itemID, &TrackingEventRequest{
		Status: "x", Description: "y",
	})
	assert.ErrorIs(t, err, ErrOrderNotFound)

	// Buyer sees events in order
	got, err := svc.Tracking(ctx, 1, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	events := got.Items[0].TrackingEvents
	require.Len(t, events, 2)
	assert.Equal(t, "in_transit", events[0].Status)
	assert.Equal(t, "out_for_delivery", events[1].Status)
}

func TestListByCheckout(t *testing.T) {
	svc, db := setupOrderTest(t)
	ctx := context.Background()

	o1 := seedOrder(t, db, 1, 10, OrderStatusPending)
	o2 := seedOrder(t, db, 1, 11, OrderStatusPending)
	require.NoError(t, db.Model(&Order{}).Where("id IN ?", []uint{o1.ID, o2.ID}).
		Update("checkout_id", "chk-abc").Error)

	orders, err := svc.ListByCheckout(ctx, 1, "chk-abc")
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	_, err = svc.ListByCheckout(ctx, 2, "chk-abc")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
