package render

import (
	"fmt"
	"sort"

	"github.com/maltedev/heureka-wishlist/internal/models"
)

type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortOldest    SortOrder = "oldest"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
)

var sortOrders = []SortOrder{SortNewest, SortOldest, SortPriceAsc, SortPriceDesc}

func ParseSortOrder(s string) (SortOrder, error) {
	for _, o := range sortOrders {
		if string(o) == s {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown sort order %q (expected newest, oldest, price_asc or price_desc)", s)
}

// SortProducts returns a sorted copy. Products without a date or price go
// last. Undated products fall back to their wishlist position, where a lower
// position means a more recent addition. The page script applies the same
// rules.
func SortProducts(products []models.Product, order SortOrder) []models.Product {
	sorted := make([]models.Product, len(products))
	copy(sorted, products)

	sort.SliceStable(sorted, func(i, j int) bool {
		return compare(&sorted[i], &sorted[j], order) < 0
	})

	return sorted
}

func compare(a, b *models.Product, order SortOrder) int {
	switch order {
	case SortOldest, SortNewest:
		switch {
		case a.HasDate() && b.HasDate():
			if !a.DateAdded.Equal(b.DateAdded) {
				if a.DateAdded.Before(b.DateAdded) == (order == SortOldest) {
					return -1
				}
				return 1
			}
		case a.HasDate():
			return -1
		case b.HasDate():
			return 1
		case order == SortOldest:
			return -byPosition(a, b)
		}
		return byPosition(a, b)

	default:
		switch {
		case a.HasPrice() && b.HasPrice():
			if a.Price != b.Price {
				if (a.Price < b.Price) == (order == SortPriceAsc) {
					return -1
				}
				return 1
			}
		case a.HasPrice():
			return -1
		case b.HasPrice():
			return 1
		}
		return byPosition(a, b)
	}
}

func byPosition(a, b *models.Product) int {
	switch {
	case a.Position != b.Position:
		if a.Position < b.Position {
			return -1
		}
		return 1
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// FilterByPrice keeps products whose price lies within the given bounds. A
// nil bound is open. Products without a price are dropped once any bound is
// set.
func FilterByPrice(products []models.Product, min, max *float64) []models.Product {
	if min == nil && max == nil {
		return products
	}

	filtered := make([]models.Product, 0, len(products))
	for _, p := range products {
		if !p.HasPrice() {
			continue
		}
		if min != nil && p.Price < *min {
			continue
		}
		if max != nil && p.Price > *max {
			continue
		}
		filtered = append(filtered, p)
	}

	return filtered
}
