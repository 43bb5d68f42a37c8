package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	applog "expense-ledger/internal/log"
	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"
)

const maxCategoryLength = 100

// Categories is the store of category names shared by every user.
type Categories struct {
	store CategoryStore
}

// NewCategories creates a Categories service.
func NewCategories(store CategoryStore) *Categories {
	return &Categories{store: store}
}

// AddCategory creates a category; names are unique across all users.
func (c *Categories) AddCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxCategoryLength {
		return nil, fmt.Errorf("%w: category name too long (max %d characters)", ErrInvalidInput, maxCategoryLength)
	}

	if _, err := c.store.GetCategoryByName(ctx, name); err == nil {
		return nil, ErrDuplicateCategory
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup category: %w", err)
	}

	category, err := c.store.CreateCategory(ctx, name)
	if errors.Is(err, storage.ErrConflict) {
		return nil, ErrDuplicateCategory
	}
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	applog.FromContext(ctx).Info("Category added", "category_id", category.ID, "name", category.Name)
	return category, nil
}

// ListCategories returns all categories in insertion order.
func (c *Categories) ListCategories(ctx context.Context) ([]models.Category, error) {
	return c.store.ListCategories(ctx)
}
