package storage

import (
	"context"
	"fmt"

	"expense-ledger/internal/models"
)

const userColumns = "id, username, password_hash, created_at"

// CreateUser creates a new user with the given username and password hash.
// A duplicate username yields ErrConflict from the unique constraint.
func (db *DB) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	id, err := db.insert(ctx,
		"INSERT INTO users (username, password_hash) VALUES (?, ?)",
		username, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return db.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := db.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := db.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	return scanUser(row)
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	err := db.queryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, classify(err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, classify(err)
	}
	return &u, nil
}
