package services

import (
	"errors"

	"github.com/cppla/organizer/store"
)

var (
	// ErrNotFound covers missing records and malformed identifiers alike.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateAccount is returned when signing up with a registered email.
	ErrDuplicateAccount = errors.New("an account with that email already exists")
	// ErrPasswordMismatch is returned when password and confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrPasswordTooLong is returned for passwords bcrypt cannot hash.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
	// ErrInvalidCredential is returned for a wrong password or an unusable session token.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrUnauthenticated is returned by operations that need a resolved identity.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// StoreFailure wraps an unexpected persistence error with the step that failed.
type StoreFailure struct {
	Op  string
	Err error
}

func (e *StoreFailure) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StoreFailure) Unwrap() error { return e.Err }

// storeErr maps store.ErrNotFound to ErrNotFound and wraps everything else.
func storeErr(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return &StoreFailure{Op: op, Err: err}
}
