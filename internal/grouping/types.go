package grouping

import (
	"fmt"

	"github.com/callmeahab/pharma-search-sub001/pkg/db/models"
)

// Mode selects how aggressively listings are clustered.
type Mode string

const (
	// ModeStrict requires matching ingredient, brand, dosage and package size.
	ModeStrict Mode = "strict"
	// ModeNormal clusters on ingredient and dosage.
	ModeNormal Mode = "normal"
	// ModeLoose clusters on ingredient alone, ignoring dosage and package size.
	ModeLoose Mode = "loose"
)

// ParseMode validates a mode string, defaulting to ModeNormal when empty.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeStrict, ModeNormal, ModeLoose:
		return Mode(raw), nil
	case "":
		return ModeNormal, nil
	default:
		return "", fmt.Errorf("unknown grouping mode %q", raw)
	}
}

// SortKey orders groups in a query response.
type SortKey string

const (
	SortRelevance SortKey = "relevance"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
	SortSavings   SortKey = "savings"
	SortVendors   SortKey = "vendors"
	SortProducts  SortKey = "products"
)

// ParseSortKey validates a sort string, defaulting to SortRelevance when empty.
func ParseSortKey(raw string) (SortKey, error) {
	switch SortKey(raw) {
	case SortRelevance, SortPriceAsc, SortPriceDesc, SortSavings, SortVendors, SortProducts:
		return SortKey(raw), nil
	case "":
		return SortRelevance, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", raw)
	}
}

// PriceRange summarizes the price distribution of one group.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// PriceAnalysis classifies one member against its group's distribution.
type PriceAnalysis struct {
	IsBestDeal  bool    `json:"isBestDeal"`
	IsWorstDeal bool    `json:"isWorstDeal"`
	DiffFromAvg float64 `json:"diffFromAvg"`
	Percentile  float64 `json:"percentile"`
}

// Member is one catalog row inside a group, with its derived price position.
type Member struct {
	Product  models.Product `json:"product"`
	Price    float64        `json:"price"`
	Analysis PriceAnalysis  `json:"analysis"`
}

// Group is a derived cluster of rows from different vendors judged to be the
// same underlying item. Never persisted; recomputed per query.
type Group struct {
	Key          string     `json:"groupKey"`
	DisplayName  string     `json:"displayName"`
	Members      []Member   `json:"members"`
	PriceRange   PriceRange `json:"priceRange"`
	VendorCount  int        `json:"vendorCount"`
	ProductCount int        `json:"productCount"`

	// rank preserves first-seen order from the relevance-ordered input
	rank int
}

// Savings is the relative spread of the group, (max-min)/max.
func (g Group) Savings() float64 {
	if g.PriceRange.Max <= 0 {
		return 0
	}
	return (g.PriceRange.Max - g.PriceRange.Min) / g.PriceRange.Max
}
