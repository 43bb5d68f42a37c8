package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	applog "expense-ledger/internal/log"
	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"

	"github.com/shopspring/decimal"
)

const maxDescriptionLength = 200

// Ledger holds expense rows. Every read and write is scoped to an owner.
type Ledger struct {
	users      UserStore
	categories CategoryStore
	expenses   ExpenseStore
}

// NewLedger creates a Ledger service.
func NewLedger(users UserStore, categories CategoryStore, expenses ExpenseStore) *Ledger {
	return &Ledger{users: users, categories: categories, expenses: expenses}
}

// AddExpense records an expense for ownerID. categoryID is optional.
func (l *Ledger) AddExpense(ctx context.Context, ownerID int64, description string, amount decimal.Decimal, categoryID *int64) (*models.Expense, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return nil, fmt.Errorf("%w: description too long (max %d characters)", ErrInvalidInput, maxDescriptionLength)
	}
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	if _, err := l.users.GetUserByID(ctx, ownerID); errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUnknownOwner
	} else if err != nil {
		return nil, fmt.Errorf("lookup owner: %w", err)
	}

	if categoryID != nil {
		if _, err := l.categories.GetCategoryByID(ctx, *categoryID); errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnknownCategory
		} else if err != nil {
			return nil, fmt.Errorf("lookup category: %w", err)
		}
	}

	expense, err := l.expenses.CreateExpense(ctx, ownerID, description, amount, categoryID, time.Now())
	if errors.Is(err, storage.ErrForeignKey) {
		// Users and categories are never deleted, so a dangling reference
		// here can only be the category.
		if categoryID != nil {
			return nil, ErrUnknownCategory
		}
		return nil, ErrUnknownOwner
	}
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	return expense, nil
}

// ListExpenses returns ownerID's expenses and nobody else's.
func (l *Ledger) ListExpenses(ctx context.Context, ownerID int64) ([]models.Expense, error) {
	return l.expenses.ListExpenses(ctx, ownerID)
}

// DeleteExpense removes expenseID if ownerID owns it. Unknown or foreign ids
// are a silent no-op.
func (l *Ledger) DeleteExpense(ctx context.Context, ownerID, expenseID int64) error {
	n, err := l.expenses.DeleteExpense(ctx, ownerID, expenseID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		applog.FromContext(ctx).WithComponent(applog.ComponentLedger).Debug("Delete matched no owned expense",
			applog.FieldUserID, ownerID, "expense_id", expenseID)
	}
	return nil
}

// ClearAll removes every expense owned by ownerID.
func (l *Ledger) ClearAll(ctx context.Context, ownerID int64) error {
	n, err := l.expenses.ClearExpenses(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	applog.FromContext(ctx).WithComponent(applog.ComponentLedger).Info("Expenses cleared", applog.FieldUserID, ownerID, "count", n)
	return nil
}
