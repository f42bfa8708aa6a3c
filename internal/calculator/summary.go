// Package calculator holds the aggregation math behind summaries, goals,
// races and collaborative goals. Everything here is pure: no storage, no clocks.
package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/spendwise/internal/models"
)

// UnknownCategory is the name reported for expenses whose category is not
// in the supplied name map.
const UnknownCategory = "Uncategorized"

var hundred = decimal.NewFromInt(100)

// CategoryTotal is the spend aggregated for one category.
type CategoryTotal struct {
	CategoryID string
	Name       string
	Total      decimal.Decimal
	Count      int
	Percent    decimal.Decimal // share of the overall total, 2 decimal places
}

// Summary is the result of grouping a set of expenses by category.
type Summary struct {
	Total      decimal.Decimal
	Count      int
	Categories []CategoryTotal
}

// SumExpenses adds up the amounts of all expenses.
func SumExpenses(expenses []models.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// SummarizeByCategory groups expenses by category and computes each
// category's share of the total.
//
// Categories are sorted by total descending, then by name. Only categories
// with at least one expense appear in the result.
func SummarizeByCategory(expenses []models.Expense, names map[string]string) Summary {
	byCategory := make(map[string]*CategoryTotal)
	total := decimal.Zero

	for _, e := range expenses {
		ct, ok := byCategory[e.CategoryID]
		if !ok {
			name, found := names[e.CategoryID]
			if !found {
				name = UnknownCategory
			}
			ct = &CategoryTotal{CategoryID: e.CategoryID, Name: name, Total: decimal.Zero}
			byCategory[e.CategoryID] = ct
		}
		ct.Total = ct.Total.Add(e.Amount)
		ct.Count++
		total = total.Add(e.Amount)
	}

	categories := make([]CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		ct.Percent = Percent(ct.Total, total)
		categories = append(categories, *ct)
	}

	sort.Slice(categories, func(i, j int) bool {
		if c := categories[i].Total.Cmp(categories[j].Total); c != 0 {
			return c > 0
		}
		return categories[i].Name < categories[j].Name
	})

	return Summary{
		Total:      total,
		Count:      len(expenses),
		Categories: categories,
	}
}

// Percent returns part as a percentage of whole, rounded to 2 places.
// A non-positive whole yields zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

// ProgressAngle maps progress toward a target onto the 0-360 degree sweep of
// a circular progress widget.
func ProgressAngle(current, target decimal.Decimal) float64 {
	if !target.IsPositive() || !current.IsPositive() {
		return 0
	}
	if current.GreaterThanOrEqual(target) {
		return 360
	}
	return current.Div(target).Mul(decimal.NewFromInt(360)).Round(2).InexactFloat64()
}
