package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"expense-ledger/internal/auth"
	applog "expense-ledger/internal/log"
	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"
)

const maxUsernameLength = 150

// dummyDigest is checked against when the username is unknown, so a failed
// login costs one scrypt derivation whether or not the user exists.
var dummyDigest = sync.OnceValue(func() string {
	hash, err := auth.HashPassword("expense-ledger-unknown-user")
	if err != nil {
		return ""
	}
	return hash
})

// Accounts is the identity store: registration and credential checks.
type Accounts struct {
	users         UserStore
	checkPassword func(password, hash string) bool
}

// NewAccounts creates an Accounts service.
func NewAccounts(users UserStore) *Accounts {
	return &Accounts{users: users, checkPassword: auth.CheckPassword}
}

// Register creates a user with a freshly salted scrypt digest of rawPassword.
func (a *Accounts) Register(ctx context.Context, username, rawPassword string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || rawPassword == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return nil, fmt.Errorf("%w: username too long (max %d characters)", ErrInvalidInput, maxUsernameLength)
	}

	// Advisory only; the unique constraint decides.
	if _, err := a.users.GetUserByUsername(ctx, username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := auth.HashPassword(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := a.users.CreateUser(ctx, username, hash)
	if errors.Is(err, storage.ErrConflict) {
		return nil, ErrDuplicateUsername
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	applog.FromContext(ctx).Info("User registered", applog.FieldUserID, user.ID)
	return user, nil
}

// Authenticate returns the user when rawPassword matches the stored digest.
func (a *Accounts) Authenticate(ctx context.Context, username, rawPassword string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || rawPassword == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := a.users.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		a.checkPassword(rawPassword, dummyDigest())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !a.checkPassword(rawPassword, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
