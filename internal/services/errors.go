package services

import "errors"

// Errors surfaced to the request boundary. Callers match them with errors.Is.
var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrDuplicateCategory  = errors.New("category already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnknownOwner       = errors.New("unknown owner")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidInput       = errors.New("invalid input")
)
