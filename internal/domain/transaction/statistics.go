package transaction

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MatchingTolerancePct is the largest parent/detail gap, in percent, that
	// still counts as matching.
	MatchingTolerancePct = 5.0

	topVendorCount = 5

	UncategorizedLabel = "uncategorized"
	UnknownVendorLabel = "unknown"
)

type CategoryTotal struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Total      float64 `json:"total"`
	Percentage float64 `json:"percentage"`
}

type ExpenseTypeTotal struct {
	Count      int     `json:"count"`
	Total      float64 `json:"total"`
	Percentage float64 `json:"percentage"`
}

type VendorTotal struct {
	Vendor string  `json:"vendor"`
	Count  int     `json:"count"`
	Total  float64 `json:"total"`
}

type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	Days int       `json:"days"`
}

type DetailStatistics struct {
	TotalDetailAmount    float64                     `json:"totalDetailAmount"`
	ParentAmount         float64                     `json:"parentAmount"`
	Difference           float64                     `json:"difference"`
	PercentageDifference float64                     `json:"percentageDifference"`
	IsMatching           bool                        `json:"isMatching"`
	ByCategory           []CategoryTotal             `json:"byCategory"`
	ByExpenseType        map[string]ExpenseTypeTotal `json:"byExpenseType"`
	TopVendors           []VendorTotal               `json:"topVendors"`
	DateRange            DateRange                   `json:"dateRange"`
	AverageAmount        float64                     `json:"averageAmount"`
	MaxAmount            float64                     `json:"maxAmount"`
	MinAmount            float64                     `json:"minAmount"`
}

type bucket struct {
	key   string
	count int
	total decimal.Decimal
}

// orderedBuckets accumulates totals per key and remembers first-seen order so
// that equal totals keep insertion order after a stable sort.
type orderedBuckets struct {
	index map[string]int
	items []*bucket
}

func newOrderedBuckets() *orderedBuckets {
	return &orderedBuckets{index: make(map[string]int)}
}

func (o *orderedBuckets) add(key string, amount decimal.Decimal) {
	i, ok := o.index[key]
	if !ok {
		i = len(o.items)
		o.index[key] = i
		o.items = append(o.items, &bucket{key: key})
	}
	o.items[i].count++
	o.items[i].total = o.items[i].total.Add(amount)
}

func (o *orderedBuckets) sorted() []*bucket {
	out := append([]*bucket(nil), o.items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].total.GreaterThan(out[j].total)
	})
	return out
}

// ComputeStatistics summarizes a linked parent's details. It returns nil when
// there is nothing to summarize.
func ComputeStatistics(parent *Transaction, details []*Detail) *DetailStatistics {
	if parent == nil {
		return nil
	}
	rows := make([]*Detail, 0, len(details))
	for _, d := range details {
		if d != nil {
			rows = append(rows, d)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	total := decimal.Zero
	categories := newOrderedBuckets()
	vendors := newOrderedBuckets()
	types := map[string]*bucket{
		ExpenseFixed:    {key: ExpenseFixed},
		ExpenseVariable: {key: ExpenseVariable},
		ExpenseSpecial:  {key: ExpenseSpecial},
	}

	first := decimal.NewFromFloat(rows[0].Amount)
	maxAmt, minAmt := first, first
	from, to := rows[0].Date, rows[0].Date

	for _, d := range rows {
		amt := decimal.NewFromFloat(d.Amount)
		total = total.Add(amt)

		if amt.GreaterThan(maxAmt) {
			maxAmt = amt
		}
		if amt.LessThan(minAmt) {
			minAmt = amt
		}
		if d.Date.Before(from) {
			from = d.Date
		}
		if d.Date.After(to) {
			to = d.Date
		}

		category := strings.TrimSpace(derefString(d.Category))
		if category == "" {
			category = UncategorizedLabel
		}
		categories.add(category, amt)

		vendor := strings.TrimSpace(d.Vendor)
		if vendor == "" {
			vendor = UnknownVendorLabel
		}
		vendors.add(vendor, amt)

		b, ok := types[derefString(d.ExpenseType)]
		if !ok {
			b = types[ExpenseVariable]
		}
		b.count++
		b.total = b.total.Add(amt)
	}

	parentAmt := decimal.NewFromFloat(parent.Amount)
	diff := total.Sub(parentAmt).Abs()

	var pct decimal.Decimal
	switch {
	case !parentAmt.IsZero():
		pct = diff.Div(parentAmt.Abs()).Mul(decimal.NewFromInt(100))
	case total.IsZero():
		pct = decimal.Zero
	default:
		pct = decimal.NewFromInt(100)
	}

	stats := &DetailStatistics{
		TotalDetailAmount:    total.Round(2).InexactFloat64(),
		ParentAmount:         parentAmt.Round(2).InexactFloat64(),
		Difference:           diff.Round(2).InexactFloat64(),
		PercentageDifference: pct.Round(2).InexactFloat64(),
		IsMatching:           pct.LessThan(decimal.NewFromFloat(MatchingTolerancePct)),
		ByCategory:           make([]CategoryTotal, 0, len(categories.items)),
		ByExpenseType:        make(map[string]ExpenseTypeTotal, len(types)),
		TopVendors:           make([]VendorTotal, 0, topVendorCount),
		DateRange: DateRange{
			From: from,
			To:   to,
			Days: DaysBetween(from, to) + 1,
		},
		AverageAmount: total.Div(decimal.NewFromInt(int64(len(rows)))).Round(2).InexactFloat64(),
		MaxAmount:     maxAmt.Round(2).InexactFloat64(),
		MinAmount:     minAmt.Round(2).InexactFloat64(),
	}

	for _, b := range categories.sorted() {
		stats.ByCategory = append(stats.ByCategory, CategoryTotal{
			Category:   b.key,
			Count:      b.count,
			Total:      b.total.Round(2).InexactFloat64(),
			Percentage: share(b.total, total),
		})
	}

	for key, b := range types {
		stats.ByExpenseType[key] = ExpenseTypeTotal{
			Count:      b.count,
			Total:      b.total.Round(2).InexactFloat64(),
			Percentage: share(b.total, total),
		}
	}

	for i, b := range vendors.sorted() {
		if i == topVendorCount {
			break
		}
		stats.TopVendors = append(stats.TopVendors, VendorTotal{
			Vendor: b.key,
			Count:  b.count,
			Total:  b.total.Round(2).InexactFloat64(),
		})
	}

	return stats
}

func share(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}
