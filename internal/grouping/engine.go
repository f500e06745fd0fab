// Package grouping clusters catalog rows from different vendors into product
// groups and derives per-member price analysis. Exact-title matching across
// vendors almost never succeeds, so clustering runs on normalized keys.
package grouping

import (
	"sort"

	"github.com/callmeahab/pharma-search-sub001/internal/pricing"
	"github.com/callmeahab/pharma-search-sub001/pkg/db/models"
)

// Engine is the grouping entry point. It is stateless and safe for concurrent use.
type Engine struct{}

// NewEngine returns a grouping engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Group clusters products by the mode's key. Input order is treated as
// relevance order; groups inherit the rank of their first-seen member, and
// members within a group are ordered by ascending price.
func (e *Engine) Group(products []models.Product, mode Mode) []Group {
	return group(products, mode)
}

func group(products []models.Product, mode Mode) []Group {
	clusters := make(map[string]*Group)
	order := make([]string, 0)

	for rank, product := range products {
		key := clusterKey(ExtractKeyParts(product.Title), mode)
		cluster, ok := clusters[key]
		if !ok {
			cluster = &Group{Key: key, DisplayName: product.Title, rank: rank}
			clusters[key] = cluster
			order = append(order, key)
		}
		cluster.Members = append(cluster.Members, Member{
			Product: product,
			Price:   pricing.FromCents(product.PriceCents),
		})
	}

	groups := make([]Group, 0, len(clusters))
	for _, key := range order {
		cluster := clusters[key]
		finalize(cluster)
		groups = append(groups, *cluster)
	}
	return groups
}

// finalize orders members by price and derives the group statistics.
func finalize(g *Group) {
	sort.SliceStable(g.Members, func(i, j int) bool {
		return g.Members[i].Price < g.Members[j].Price
	})

	var sum float64
	vendors := make(map[string]struct{})
	for _, m := range g.Members {
		sum += m.Price
		vendors[m.Product.VendorID.String()] = struct{}{}
	}

	n := len(g.Members)
	g.ProductCount = n
	g.VendorCount = len(vendors)
	if n == 0 {
		return
	}

	g.PriceRange = PriceRange{
		Min: g.Members[0].Price,
		Max: g.Members[n-1].Price,
		Avg: sum / float64(n),
	}

	for i := range g.Members {
		m := &g.Members[i]
		m.Analysis.IsBestDeal = m.Price == g.PriceRange.Min
		m.Analysis.IsWorstDeal = n > 1 && m.Price == g.PriceRange.Max
		m.Analysis.DiffFromAvg = m.Price - g.PriceRange.Avg
		if n > 1 {
			m.Analysis.Percentile = float64(i) / float64(n-1)
		}
	}
}

// Sort orders groups by the requested key. All sorts are stable: ties keep
// the original relevance order.
func Sort(groups []Group, key SortKey) {
	switch key {
	case SortPriceAsc:
		sort.SliceStable(groups, func(i, j int) bool {
			return groups[i].PriceRange.Min < groups[j].PriceRange.Min
		})
	case SortPriceDesc:
		sort.SliceStable(groups, func(i, j int) bool {
			return groups[i].PriceRange.Min > groups[j].PriceRange.Min
		})
	case SortSavings:
		sort.SliceStable(groups, func(i, j int) bool {
			return groups[i].Savings() > groups[j].Savings()
		})
	case SortVendors:
		sort.SliceStable(groups, func(i, j int) bool {
			return groups[i].VendorCount > groups[j].VendorCount
		})
	case SortProducts:
		sort.SliceStable(groups, func(i, j int) bool {
			return groups[i].ProductCount > groups[j].ProductCount
		})
	default: // SortRelevance
		sort.SliceStable(groups, func(i, j int) bool {
			return groups[i].rank < groups[j].rank
		})
	}
}
