package storage

import (
	"context"
	"fmt"

	"expense-ledger/internal/models"
)

// CreateCategory inserts a category. Names are unique across all users.
func (db *DB) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	id, err := db.insert(ctx, "INSERT INTO categories (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return db.GetCategoryByID(ctx, id)
}

// GetCategoryByID retrieves a category by ID.
func (db *DB) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	row := db.queryRow(ctx, "SELECT id, name, created_at FROM categories WHERE id = ?", id)
	return scanCategory(row)
}

// GetCategoryByName retrieves a category by its exact name.
func (db *DB) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	row := db.queryRow(ctx, "SELECT id, name, created_at FROM categories WHERE name = ?", name)
	return scanCategory(row)
}

// ListCategories returns every category in insertion order.
func (db *DB) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := db.query(ctx, "SELECT id, name, created_at FROM categories ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func scanCategory(row rowScanner) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
		return nil, classify(err)
	}
	return &c, nil
}
