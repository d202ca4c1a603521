// Package errs defines the error taxonomy shared by the ORM layers.
// Call sites wrap these sentinels so callers can classify failures
// with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrImproperlyConfigured covers a missing or invalid active database,
	// invalid field construction and table-name collisions.
	ErrImproperlyConfigured = errors.New("improperly configured")

	// ErrDoesNotExist is returned by Get when no row matches.
	ErrDoesNotExist = errors.New("does not exist")

	// ErrInsert is returned when an insert or bulk insert fails.
	ErrInsert = errors.New("insert error")

	// ErrQuery is returned for malformed predicates, before any SQL runs.
	ErrQuery = errors.New("query error")

	// ErrDatabase wraps driver failures outside of inserts.
	ErrDatabase = errors.New("database error")
)

// Configf returns an ErrImproperlyConfigured with a formatted detail.
func Configf(format string, args ...any) error {
	return wrap(ErrImproperlyConfigured, format, args...)
}

// Queryf returns an ErrQuery with a formatted detail.
func Queryf(format string, args ...any) error {
	return wrap(ErrQuery, format, args...)
}

// Insertf returns an ErrInsert with a formatted detail.
func Insertf(format string, args ...any) error {
	return wrap(ErrInsert, format, args...)
}

// DoesNotExistf returns an ErrDoesNotExist with a formatted detail.
func DoesNotExistf(format string, args ...any) error {
	return wrap(ErrDoesNotExist, format, args...)
}

// Database wraps a driver error with ErrDatabase. Nil stays nil.
func Database(err error, op string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrDatabase, op, err)
}

// Insert wraps a driver error raised while inserting into table with
// ErrInsert. Nil stays nil.
func Insert(err error, table string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrInsert, table, err)
}

func wrap(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
