package domain

import "github.com/shopspring/decimal"

const (
	statsOtherCategory = "Other"
	monthKeyLayout     = "2006-01"
)

// Stats aggregates a buyer's purchases or a seller's sales.
type Stats struct {
	Count           int                        `json:"count"`
	Total           decimal.Decimal            `json:"total"`
	Average         decimal.Decimal            `json:"average"`
	CategoriesCount map[string]int             `json:"categories_count"`
	Monthly         map[string]decimal.Decimal `json:"monthly"`
}

// ComputeStats does a single linear pass over purchases.
func ComputeStats(purchases []*Purchase) Stats {
	s := Stats{
		Total:           decimal.Zero,
		Average:         decimal.Zero,
		CategoriesCount: make(map[string]int),
		Monthly:         make(map[string]decimal.Decimal),
	}
	for _, p := range purchases {
		s.Count++
		s.Total = s.Total.Add(p.Amount)

		category := p.Snapshot.Category
		if category == "" {
			category = statsOtherCategory
		}
		s.CategoriesCount[category]++

		if !p.PurchaseDate.IsZero() {
			key := p.PurchaseDate.UTC().Format(monthKeyLayout)
			s.Monthly[key] = s.Monthly[key].Add(p.Amount)
		}
	}
	if s.Count > 0 {
		s.Average = s.Total.Div(decimal.NewFromInt(int64(s.Count))).Round(2)
	}
	return s
}
