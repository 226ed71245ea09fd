package events

import (
	"github.com/maltedev/heureka-wishlist/internal/models"
)

type ChangeKind string

const (
	KindAdded        ChangeKind = "added"
	KindRemoved      ChangeKind = "removed"
	KindPriceChanged ChangeKind = "price_changed"
)

// Change describes how one wishlist item differs between two scrapes.
// OldPrice is PriceUnknown for added items, NewPrice for removed ones.
type Change struct {
	Kind     ChangeKind     `json:"kind"`
	Product  models.Product `json:"product"`
	OldPrice float64        `json:"old_price"`
	NewPrice float64        `json:"new_price"`
}

// Diff compares two scrapes by product ID. Added and repriced items come
// first in the order of next, followed by removed items in the order of prev.
func Diff(prev, next []models.Product) []Change {
	before := make(map[string]models.Product, len(prev))
	for _, p := range prev {
		before[p.ID] = p
	}

	seen := make(map[string]bool, len(next))
	var changes []Change

	for _, p := range next {
		seen[p.ID] = true

		old, ok := before[p.ID]
		if !ok {
			changes = append(changes, Change{
				Kind:     KindAdded,
				Product:  p,
				OldPrice: models.PriceUnknown,
				NewPrice: p.Price,
			})
			continue
		}

		if old.Price != p.Price {
			changes = append(changes, Change{
				Kind:     KindPriceChanged,
				Product:  p,
				OldPrice: old.Price,
				NewPrice: p.Price,
			})
		}
	}

	for _, p := range prev {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		changes = append(changes, Change{
			Kind:     KindRemoved,
			Product:  p,
			OldPrice: p.Price,
			NewPrice: models.PriceUnknown,
		})
	}

	return changes
}

// Summary counts changes per kind.
func Summary(changes []Change) map[ChangeKind]int {
	counts := map[ChangeKind]int{
		KindAdded:        0,
		KindRemoved:      0,
		KindPriceChanged: 0,
	}
	for _, c := range changes {
		counts[c.Kind]++
	}
	return counts
}
