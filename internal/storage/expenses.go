package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"expense-ledger/internal/models"

	"github.com/shopspring/decimal"
)

const expenseColumns = "id, user_id, description, amount, category_id, created_at"

// CreateExpense inserts a new expense owned by userID. A dangling user or
// category reference yields ErrForeignKey.
func (db *DB) CreateExpense(ctx context.Context, userID int64, description string, amount decimal.Decimal, categoryID *int64, date time.Time) (*models.Expense, error) {
	if date.IsZero() {
		date = time.Now()
	}
	var category sql.NullInt64
	if categoryID != nil {
		category = sql.NullInt64{Int64: *categoryID, Valid: true}
	}

	id, err := db.insert(ctx,
		"INSERT INTO expenses (user_id, description, amount, category_id, created_at) VALUES (?, ?, ?, ?, ?)",
		userID, description, amount.StringFixed(2), category, date.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}
	return db.GetExpense(ctx, userID, id)
}

// GetExpense retrieves a single expense by ID, scoped to its owner.
func (db *DB) GetExpense(ctx context.Context, userID, id int64) (*models.Expense, error) {
	row := db.queryRow(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ? AND user_id = ?",
		id, userID,
	)
	return scanExpense(row)
}

// ListExpenses retrieves every expense owned by userID in insertion order.
func (db *DB) ListExpenses(ctx context.Context, userID int64) ([]models.Expense, error) {
	rows, err := db.query(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE user_id = ? ORDER BY id",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

// DeleteExpense removes the expense only when userID owns it and reports how
// many rows went away.
func (db *DB) DeleteExpense(ctx context.Context, userID, id int64) (int64, error) {
	res, err := db.exec(ctx, "DELETE FROM expenses WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearExpenses removes all expenses owned by userID.
func (db *DB) ClearExpenses(ctx context.Context, userID int64) (int64, error) {
	res, err := db.exec(ctx, "DELETE FROM expenses WHERE user_id = ?", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	var (
		e        models.Expense
		category sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Description, &e.Amount, &category, &e.CreatedAt); err != nil {
		return nil, classify(err)
	}
	if category.Valid {
		id := category.Int64
		e.CategoryID = &id
	}
	return &e, nil
}
