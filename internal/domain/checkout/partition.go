// internal/domain/checkout/partition.go
package checkout

import (
	"github.com/your-org/marketplace-backend/internal/domain/cart"
)

// Group is one supplier's slice of the cart
type Group struct {
	SupplierID   uint            `json:"supplier_id"`
	SupplierName string          `json:"supplier_name,omitempty"`
	Items        []cart.ItemView `json:"items"`
	Subtotal     int64           `json:"subtotal"`
}

// PartitionBySupplier splits cart items into per-supplier groups. Group
// order follows the first occurrence of each supplier in the input, so
// partitioning is deterministic for a given cart.
func PartitionBySupplier(items []cart.ItemView) []Group {
	var groups []Group
	index := make(map[uint]int)

	for _, item := range items {
		supplierID := item.Snapshot.SupplierID
		i, seen := index[supplierID]
		if !seen {
			i = len(groups)
			index[supplierID] = i
			groups = append(groups, Group{
				SupplierID:   supplierID,
				SupplierName: item.Snapshot.SupplierName,
			})
		}
		groups[i].Items = append(groups[i].Items, item)
		groups[i].Subtotal += item.Subtotal
	}
	return groups
}

// SupplierSubtotals maps each supplier to its share of the cart subtotal
func SupplierSubtotals(groups []Group) map[uint]int64 {
	subtotals := make(map[uint]int64, len(groups))
	for _, g := range groups {
		subtotals[g.SupplierID] = g.Subtotal
	}
	return subtotals
}

// attributeShares splits amount across groups proportionally to their
// subtotals, in integer cents. Rounding leaves a remainder of at most
// len(groups)-1 cents, which goes to the first group so the shares
// always sum to amount exactly.
func attributeShares(amount int64, groups []Group) []int64 {
	shares := make([]int64, len(groups))
	if amount == 0 || len(groups) == 0 {
		return shares
	}

	var grandTotal int64
	for _, g := range groups {
		grandTotal += g.Subtotal
	}
	if grandTotal == 0 {
		shares[0] = amount
		return shares
	}

	var distributed int64
	for i, g := range groups {
		shares[i] = amount * g.Subtotal / grandTotal
		distributed += shares[i]
	}
	shares[0] += amount - distributed
	return shares
}
