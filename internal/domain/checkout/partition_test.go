// internal/domain/checkout/partition_test.go
package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/marketplace-backend/internal/domain/cart"
)

func item(supplierID uint, productID uint, unitPrice int64, qty int) cart.ItemView {
	return cart.ItemView{
		ID:       "x",
		Source:   cart.SourceDurable,
		Quantity: qty,
		Subtotal: unitPrice * int64(qty),
		Snapshot: cart.Snapshot{
			ProductID:  productID,
			UnitPrice:  unitPrice,
			SupplierID: supplierID,
		},
	}
}

func TestPartitionBySupplierFirstOccurrenceOrder(t *testing.T) {
	items := []cart.ItemView{
		item(2, 1, 1000, 1),
		item(1, 2, 500, 2),
		item(2, 3, 300, 1),
		item(3, 4, 100, 1),
	}

	groups := PartitionBySupplier(items)
	require.Len(t, groups, 3)

	assert.Equal(t, uint(2), groups[0].SupplierID)
	assert.Equal(t, uint(1), groups[1].SupplierID)
	assert.Equal(t, uint(3), groups[2].SupplierID)

	assert.Len(t, groups[0].Items, 2)
	assert.Equal(t, int64(1300), groups[0].Subtotal)
	assert.Equal(t, int64(1000), groups[1].Subtotal)
	assert.Equal(t, int64(100), groups[2].Subtotal)
}

func TestPartitionBySupplierEmpty(t *testing.T) {
	assert.Empty(t, PartitionBySupplier(nil))
}

func TestSupplierSubtotals(t *testing.T) {
	groups := PartitionBySupplier([]cart.ItemView{
		item(1, 1, 1000, 1),
		item(2, 2, 500, 3),
	})

	subtotals := SupplierSubtotals(groups)
	assert.Equal(t, int64(1000), subtotals[1])
	assert.Equal(t, int64(1500), subtotals[2])
}

func TestAttributeSharesProportional(t *testing.T) {
	groups := []Group{
		{SupplierID: 1, Subtotal: 6000},
		{SupplierID: 2, Subtotal: 4000},
	}

	shares := attributeShares(1000, groups)
	assert.Equal(t, []int64{600, 400}, shares)
}

func TestAttributeSharesRemainderToFirstGroup(t *testing.T) {
	// 100 cents over three equal groups: 33 + 33 + 33 leaves 1 cent,
	// it must land on the first group
	groups := []Group{
		{SupplierID: 1, Subtotal: 1000},
		{SupplierID: 2, Subtotal: 1000},
		{SupplierID: 3, Subtotal: 1000},
	}

	shares := attributeShares(100, groups)
	assert.Equal(t, []int64{34, 33, 33}, shares)

	var sum int64
	for _, s := range shares {
		sum += s
	}
	assert.Equal(t, int64(100), sum)
}

func TestAttributeSharesAlwaysSumExactly(t *testing.T) {
	groups := []Group{
		{SupplierID: 1, Subtotal: 3333},
		{SupplierID: 2, Subtotal: 777},
		{SupplierID: 3, Subtotal: 12899},
	}

	for _, amount := range []int64{1, 7, 99, 1234, 99999} {
		shares := attributeShares(amount, groups)
		var sum int64
		for _, s := range shares {
			sum += s
		}
		assert.Equal(t, amount, sum, "amount %d", amount)
	}
}

func TestAttributeSharesZeroAmount(t *testing.T) {
	groups := []Group{{SupplierID: 1, Subtotal: 1000}}
	assert.Equal(t, []int64{0}, attributeShares(0, groups))
}
