package services

import (
	"context"
	"time"

	"expense-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// UserStore persists user records.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// CategoryStore persists the shared category set.
type CategoryStore interface {
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*models.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}

// ExpenseStore persists ledger rows, always filtered by owner.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, userID int64, description string, amount decimal.Decimal, categoryID *int64, date time.Time) (*models.Expense, error)
	ListExpenses(ctx context.Context, userID int64) ([]models.Expense, error)
	DeleteExpense(ctx context.Context, userID, id int64) (int64, error)
	ClearExpenses(ctx context.Context, userID int64) (int64, error)
}

// Store is everything the services need from persistence.
type Store interface {
	UserStore
	CategoryStore
	ExpenseStore
}

// Services bundles the components the HTTP layer dispatches to.
type Services struct {
	Accounts   *Accounts
	Categories *Categories
	Ledger     *Ledger
	Reports    *Reports
}

// New wires every service over a single store.
func New(store Store) *Services {
	ledger := NewLedger(store, store, store)
	return &Services{
		Accounts:   NewAccounts(store),
		Categories: NewCategories(store),
		Ledger:     ledger,
		Reports:    NewReports(ledger),
	}
}
