package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"expense-ledger/internal/chart"
	"expense-ledger/internal/models"
	"expense-ledger/internal/services"

	"github.com/shopspring/decimal"
)

const (
	msgCategoryExists  = "Category already exists!"
	msgCategoryAdded   = "Category added successfully!"
	msgCategoryInvalid = "Category name must be between 1 and 100 characters"
	msgInvalidAmount   = "Amount must be a number like 4.50"
	msgNoDescription   = "Description is required"
	msgLongDescription = "Description must be at most 200 characters"
	msgUnknownCategory = "Category does not exist!"

	uncategorizedName  = "Uncategorized"
	uncategorizedColor = "#475569"
)

// ExpenseItem represents an expense in the list view.
type ExpenseItem struct {
	ID           int64
	Description  string
	Amount       string
	Time         string
	CategoryName string
	Color        string
}

// ExpenseGroup groups expenses by date.
type ExpenseGroup struct {
	Title string
	Date  string
	Total string
	Items []ExpenseItem
}

// HomeViewModel is the data passed to the ledger page.
type HomeViewModel struct {
	Page
	Today      string
	Total      string
	Categories []models.Category
	Groups     []ExpenseGroup
	Breakdown  []BreakdownItem
	HasChart   bool
}

// Home renders the signed-in user's ledger.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
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
	expenses, err := h.svc.Ledger.ListExpenses(r.Context(), p.UserID)
	if err != nil {
		h.serverError(w, r, "ListExpenses failed", err)
		return
	}

	breakdown := services.PerCategory(expenses, categories)
	now := h.now()
	h.render(w, r, "home.html", HomeViewModel{
		Page:       Page{Username: p.Username, Flash: h.popFlash(w, r)},
		Today:      now.Format("Monday, 02 January 2006"),
		Total:      formatMoney(services.Total(expenses)),
		Categories: categories,
		Groups:     groupExpenses(expenses, categories, now),
		Breakdown:  breakdownItems(breakdown),
		HasChart:   breakdown.HasChartData(),
	})
}

// AddExpense handles the expense form on the home page.
func (h *Handlers) AddExpense(w http.ResponseWriter, r *http.Request) {
	p, err := PrincipalFrom(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	amount, err := services.ParseAmount(r.PostFormValue("expense_amount"))
	if err != nil {
		h.setFlash(w, msgInvalidAmount)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	var categoryID *int64
	if raw := strings.TrimSpace(r.PostFormValue("expense_category")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.setFlash(w, msgUnknownCategory)
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		categoryID = &id
	}

	_, err = h.svc.Ledger.AddExpense(r.Context(), p.UserID, r.PostFormValue("expense_description"), amount, categoryID)
	switch {
	case err == nil:
		h.metrics.ExpenseOp("add")
	case errors.Is(err, services.ErrEmptyDescription):
		h.setFlash(w, msgNoDescription)
	case errors.Is(err, services.ErrInvalidInput):
		h.setFlash(w, msgLongDescription)
	case errors.Is(err, services.ErrInvalidAmount):
		h.setFlash(w, msgInvalidAmount)
	case errors.Is(err, services.ErrUnknownCategory):
		h.setFlash(w, msgUnknownCategory)
	case errors.Is(err, services.ErrUnknownOwner):
		// The session outlived its user.
		h.clearSessionCookie(w)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	default:
		h.serverError(w, r, "AddExpense failed", err)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// DeleteExpense removes one of the user's expenses. Ids that are not numeric
// or not owned by the user are ignored.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	p, err := PrincipalFrom(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	id, err := strconv.ParseInt(r.URL.Query().Get("delexpenseid"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err := h.svc.Ledger.DeleteExpense(r.Context(), p.UserID, id); err != nil {
		h.serverError(w, r, "DeleteExpense failed", err)
		return
	}
	h.metrics.ExpenseOp("delete")

	http.Redirect(w, r, "/", http.StatusFound)
}

// Clear removes every expense the user owns.
func (h *Handlers) Clear(w http.ResponseWriter, r *http.Request) {
	p, err := PrincipalFrom(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err := h.svc.Ledger.ClearAll(r.Context(), p.UserID); err != nil {
		h.serverError(w, r, "ClearAll failed", err)
		return
	}
	h.metrics.ExpenseOp("clear")

	http.Redirect(w, r, "/", http.StatusFound)
}

// AddCategory creates a shared category.
func (h *Handlers) AddCategory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	_, err := h.svc.Categories.AddCategory(r.Context(), r.PostFormValue("category_name"))
	switch {
	case err == nil:
		h.setFlash(w, msgCategoryAdded)
	case errors.Is(err, services.ErrDuplicateCategory):
		h.setFlash(w, msgCategoryExists)
	case errors.Is(err, services.ErrInvalidInput):
		h.setFlash(w, msgCategoryInvalid)
	default:
		h.serverError(w, r, "AddCategory failed", err)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// groupExpenses buckets expenses by local calendar day, keeping the order in
// which each day first appears.
func groupExpenses(expenses []models.Expense, categories []models.Category, now time.Time) []ExpenseGroup {
	type bucket struct {
		group ExpenseGroup
		total decimal.Decimal
	}

	position := make(map[int64]int, len(categories))
	for i, c := range categories {
		position[c.ID] = i
	}

	var order []string
	buckets := make(map[string]*bucket)
	for _, e := range expenses {
		created := e.CreatedAt.In(now.Location())
		dateStr := created.Format("2006-01-02")
		b, ok := buckets[dateStr]
		if !ok {
			b = &bucket{
				group: ExpenseGroup{Date: dateStr, Title: formatGroupTitle(created, now)},
				total: decimal.Zero,
			}
			buckets[dateStr] = b
			order = append(order, dateStr)
		}
		b.total = b.total.Add(e.Amount)

		item := ExpenseItem{
			ID:           e.ID,
			Description:  e.Description,
			Amount:       formatMoney(e.Amount),
			Time:         created.Format("15:04"),
			CategoryName: uncategorizedName,
			Color:        uncategorizedColor,
		}
		if e.CategoryID != nil {
			if i, ok := position[*e.CategoryID]; ok {
				item.CategoryName = categories[i].Name
				item.Color = chart.ColorFor(i)
			}
		}
		b.group.Items = append(b.group.Items, item)
	}

	groups := make([]ExpenseGroup, 0, len(order))
	for _, d := range order {
		b := buckets[d]
		b.group.Total = formatMoney(b.total)
		groups = append(groups, b.group)
	}
	return groups
}

func formatGroupTitle(date, now time.Time) string {
	dateStr := date.Format("2006-01-02")

	if dateStr == now.Format("2006-01-02") {
		return "TODAY"
	}
	if dateStr == now.AddDate(0, 0, -1).Format("2006-01-02") {
		return "YESTERDAY"
	}
	return strings.ToUpper(date.Format("Mon, 02 Jan '06"))
}

func formatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
