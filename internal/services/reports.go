package services

import (
	"context"

	"expense-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// CategoryTotal is the sum of one owner's expenses tagged with a category.
type CategoryTotal struct {
	Category   models.Category
	Total      decimal.Decimal
	Count      int
	Percentage float64
}

// Breakdown holds per-category totals in category order.
type Breakdown struct {
	Items []CategoryTotal
	// Categorized is the sum over all items; uncategorized expenses are not included.
	Categorized decimal.Decimal
}

// HasChartData is false when every category total is zero, in which case no
// chart should be drawn.
func (b Breakdown) HasChartData() bool {
	return b.Categorized.IsPositive()
}

// Reports computes totals from an owner's ledger.
type Reports struct {
	ledger *Ledger
}

// NewReports creates a Reports service.
func NewReports(ledger *Ledger) *Reports {
	return &Reports{ledger: ledger}
}

// TotalFor sums every expense ownerID owns. An empty ledger totals zero.
func (r *Reports) TotalFor(ctx context.Context, ownerID int64) (decimal.Decimal, error) {
	expenses, err := r.ledger.ListExpenses(ctx, ownerID)
	if err != nil {
		return decimal.Zero, err
	}
	return Total(expenses), nil
}

// PerCategoryTotals sums ownerID's expenses for each of categories.
func (r *Reports) PerCategoryTotals(ctx context.Context, ownerID int64, categories []models.Category) (Breakdown, error) {
	expenses, err := r.ledger.ListExpenses(ctx, ownerID)
	if err != nil {
		return Breakdown{}, err
	}
	return PerCategory(expenses, categories), nil
}

// Total sums the amounts of expenses.
func Total(expenses []models.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// PerCategory groups expenses by category. Categories without expenses
// yield a zero entry.
func PerCategory(expenses []models.Expense, categories []models.Category) Breakdown {
	index := make(map[int64]int, len(categories))
	b := Breakdown{
		Items:       make([]CategoryTotal, len(categories)),
		Categorized: decimal.Zero,
	}
	for i, c := range categories {
		index[c.ID] = i
		b.Items[i] = CategoryTotal{Category: c, Total: decimal.Zero}
	}

	for _, e := range expenses {
		if e.CategoryID == nil {
			continue
		}
		i, ok := index[*e.CategoryID]
		if !ok {
			continue
		}
		b.Items[i].Total = b.Items[i].Total.Add(e.Amount)
		b.Items[i].Count++
		b.Categorized = b.Categorized.Add(e.Amount)
	}

	if b.Categorized.IsPositive() {
		hundred := decimal.NewFromInt(100)
		for i := range b.Items {
			b.Items[i].Percentage = b.Items[i].Total.Div(b.Categorized).Mul(hundred).InexactFloat64()
		}
	}
	return b
}
