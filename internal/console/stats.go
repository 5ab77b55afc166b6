package console

import (
	"github.com/shopspring/decimal"
	"github.com/yourorg/catalogconsole/internal/apiclient"
)

// CategorySampleLimit is the size of the unfiltered catalog sample that
// dashboard stats and category options are computed from. Categories that
// only appear beyond the first CategorySampleLimit products are not offered.
const CategorySampleLimit = 1000

// RecentLimit is how many products the dashboard lists as recent.
const RecentLimit = 5

// Stats are the dashboard figures.
type Stats struct {
	TotalProducts  int
	TotalStock     int
	InventoryValue decimal.Decimal
	Categories     int
	Recent         []apiclient.Product
}

// ComputeStats derives the dashboard figures from a catalog sample.
// TotalProducts is the server total; the sums cover the sampled items.
func ComputeStats(sample *apiclient.ProductPage) Stats {
	st := Stats{TotalProducts: sample.Total, InventoryValue: decimal.Zero}
	for _, p := range sample.Items {
		st.TotalStock += p.Stock
		st.InventoryValue = st.InventoryValue.Add(p.Precio.Mul(decimal.NewFromInt(int64(p.Stock))))
	}
	st.Categories = len(DistinctCategories(sample.Items))

	n := len(sample.Items)
	if n > RecentLimit {
		n = RecentLimit
	}
	st.Recent = append([]apiclient.Product(nil), sample.Items[:n]...)
	return st
}

// DistinctCategories returns each category once, in first-seen order.
func DistinctCategories(items []apiclient.Product) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range items {
		if p.Categoria == "" || seen[p.Categoria] {
			continue
		}
		seen[p.Categoria] = true
		out = append(out, p.Categoria)
	}
	return out
}
