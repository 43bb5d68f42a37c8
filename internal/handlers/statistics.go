package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"expense-ledger/internal/chart"
	applog "expense-ledger/internal/log"
	"expense-ledger/internal/services"
)

// chartCSP stops the chart document from running script when opened directly.
const chartCSP = "default-src 'none'; style-src 'unsafe-inline'"

// BreakdownItem represents a category with its spending statistics.
type BreakdownItem struct {
	Name       string
	Total      string
	Count      int
	Percentage string
	Color      string
}

func breakdownItems(b services.Breakdown) []BreakdownItem {
	items := make([]BreakdownItem, 0, len(b.Items))
	for i, ct := range b.Items {
		items = append(items, BreakdownItem{
			Name:       ct.Category.Name,
			Total:      formatMoney(ct.Total),
			Count:      ct.Count,
			Percentage: strconv.FormatFloat(ct.Percentage, 'f', 1, 64),
			Color:      chart.ColorFor(i),
		})
	}
	return items
}

// Chart serves the per-category pie chart as SVG. When every category total
// is zero there is nothing to draw and the response is 204 No Content.
func (h *Handlers) Chart(w http.ResponseWriter, r *http.Request) {
	p, err := PrincipalFrom(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	categories, err := h.svc.Categories.ListCategories(r.Context())
	if err != nil {
		h.serverError(w, r, "ListCategories failed", err)
		return
	}
	breakdown, err := h.svc.Reports.PerCategoryTotals(r.Context(), p.UserID, categories)
	if err != nil {
		h.serverError(w, r, "PerCategoryTotals failed", err)
		return
	}

	var buf bytes.Buffer
	err = chart.RenderPie(&buf, breakdown, chart.Options{})
	if errors.Is(err, chart.ErrNoData) {
		applog.FromContext(r.Context()).Debug("No chart data")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		h.serverError(w, r, "Chart rendering failed", err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Security-Policy", chartCSP)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = buf.WriteTo(w)
}
