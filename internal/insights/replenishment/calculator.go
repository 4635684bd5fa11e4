// Package replenishment computes reorder suggestions and ABC value classes
// for a list of inventory items.
package replenishment

import (
	"math"
	"sort"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/stats"
)

const (
	DefaultSafetyDays = 7
	DefaultCoverDays  = 14
)

// Calculator holds the day counts used by the reorder formulas.
type Calculator struct {
	// SafetyDays of average sales held as buffer stock.
	SafetyDays float64
	// CoverDays of sales ordered on top of the lead time.
	CoverDays float64
}

// NewCalculator creates a calculator with the default day counts.
func NewCalculator() *Calculator {
	return &Calculator{
		SafetyDays: DefaultSafetyDays,
		CoverDays:  DefaultCoverDays,
	}
}

// Evaluate computes the reorder metrics for a single item, whether or not it
// is due.
func (c *Calculator) Evaluate(item domain.InventoryItem) domain.ReorderSuggestion {
	s := domain.ReorderSuggestion{
		ItemID:         item.ID,
		QuantityOnHand: item.QuantityOnHand,
	}

	// 1. Safety stock = daily sales × safety days
	s.SafetyStock = item.AverageDailySales * c.SafetyDays

	// 2. Reorder point = (daily sales × lead time) + safety stock
	s.ReorderPoint = item.AverageDailySales*item.LeadTimeDays + s.SafetyStock

	// 3. Reorder quantity covers lead time plus cover days, never below the minimum order
	s.ReorderQuantity = math.Max(item.MinQuantity, item.AverageDailySales*(item.LeadTimeDays+c.CoverDays))

	// 4. Days until reorder; without sales the item is treated as due now
	if item.AverageDailySales > 0 {
		s.DaysUntilReorder = int(math.Floor((item.QuantityOnHand - s.ReorderPoint) / item.AverageDailySales))
		s.DaysOfCover = item.QuantityOnHand / item.AverageDailySales
	}

	// 5. Urgency
	s.Urgency = urgency(item.QuantityOnHand, s.SafetyStock, s.ReorderPoint)

	return s
}

func urgency(qty, safetyStock, reorderPoint float64) domain.Urgency {
	switch {
	case qty == 0:
		return domain.UrgencyCritical
	case qty <= safetyStock:
		return domain.UrgencyHigh
	case qty <= reorderPoint:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

// Suggest returns a suggestion for every item at or below its reorder point,
// most urgent first and then soonest due. Items of equal rank keep input order.
func (c *Calculator) Suggest(items []domain.InventoryItem) ([]domain.ReorderSuggestion, error) {
	if err := validate("replenishment", items); err != nil {
		return nil, err
	}

	suggestions := []domain.ReorderSuggestion{}
	for _, item := range items {
		s := c.Evaluate(item)
		if item.QuantityOnHand > s.ReorderPoint {
			continue
		}
		suggestions = append(suggestions, s)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		ri, rj := suggestions[i].Urgency.Rank(), suggestions[j].Urgency.Rank()
		if ri != rj {
			return ri < rj
		}
		return suggestions[i].DaysUntilReorder < suggestions[j].DaysUntilReorder
	})
	return suggestions, nil
}

func validate(op string, items []domain.InventoryItem) error {
	for i, item := range items {
		fields := []struct {
			name  string
			value float64
		}{
			{"quantity_on_hand", item.QuantityOnHand},
			{"min_quantity", item.MinQuantity},
			{"average_daily_sales", item.AverageDailySales},
			{"lead_time_days", item.LeadTimeDays},
			{"value", item.Value},
		}
		for _, f := range fields {
			if !stats.IsFinite(f.value) || f.value < 0 {
				return domain.NewInvalidInput(op, f.name,
					"item %d (%s) must be a finite non-negative number, got %v", i, item.ID, f.value)
			}
		}
	}
	return nil
}
