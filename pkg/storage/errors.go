package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrRecordNotFound is returned when a lookup matches no row
	ErrRecordNotFound = errors.New("record not found")
	// ErrEditConflict is returned when a versioned update matched zero rows
	ErrEditConflict = errors.New("edit conflict")
	// ErrReturningFailure means a write succeeded but RETURNING produced no usable data
	ErrReturningFailure = errors.New("returning clause produced no data")
	// ErrDuplicateEmail is returned when the users.email unique constraint fires
	ErrDuplicateEmail = errors.New("duplicate email")
)

// DatabaseError wraps a driver or connection failure
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// WrapDatabaseError returns nil for a nil err
func WrapDatabaseError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DatabaseError{Op: op, Err: err}
}
