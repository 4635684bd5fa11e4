package replenishment

import (
	"sort"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
)

// Cumulative value cut-offs, in percent.
const (
	ClassALimit = 70.0
	ClassBLimit = 90.0
)

// ClassifyABC ranks items by value, highest first, and assigns A while the
// running share of total value is at most 70%, B up to 90% and C beyond.
// Equal values keep their input order. When the total value is zero every
// item is C at 100%.
func ClassifyABC(items []domain.InventoryItem) ([]domain.ABCEntry, error) {
	if err := validate("abc", items); err != nil {
		return nil, err
	}

	sorted := make([]domain.InventoryItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	var total float64
	for _, item := range sorted {
		total += item.Value
	}

	entries := make([]domain.ABCEntry, len(sorted))
	var running float64
	for i, item := range sorted {
		entries[i] = domain.ABCEntry{ItemID: item.ID, Value: item.Value}
		if total == 0 {
			entries[i].CumulativeValuePercentage = 100
			entries[i].Classification = domain.ClassC
			continue
		}
		running += item.Value
		pct := running * 100 / total
		entries[i].CumulativeValuePercentage = pct
		entries[i].Classification = classify(pct)
	}
	return entries, nil
}

func classify(pct float64) domain.ABCClass {
	switch {
	case pct <= ClassALimit:
		return domain.ClassA
	case pct <= ClassBLimit:
		return domain.ClassB
	default:
		return domain.ClassC
	}
}
