package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense represents a single ledger row owned by one user.
type Expense struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Category is a named expense category shared by all users.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User represents a user account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
