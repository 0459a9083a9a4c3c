package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrConnectivity marks failures to open, reach or borrow from the pool.
	ErrConnectivity = errors.New("database connectivity error")

	// ErrInvalidArgument is returned for malformed arguments to SQL builders.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupportedDialect is returned when no Dialect is registered for a driver.
	ErrUnsupportedDialect = errors.New("unsupported database dialect")
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// StatementError is returned when a statement fails on an otherwise healthy connection.
type StatementError struct {
	Query string
	Err   error
}

// Error implements the error interface.
func (e *StatementError) Error() string {
	return fmt.Sprintf("executing %q: %v", truncateSQL(e.Query), e.Err)
}

// Unwrap returns the driver error.
func (e *StatementError) Unwrap() error {
	return e.Err
}

// SQLState returns the PostgreSQL error code carried by err, or "".
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return SQLState(err) == uniqueViolation
}

// isConnectivityError reports whether err came from the transport rather than the statement.
func isConnectivityError(err error) bool {
	if errors.Is(err, ErrConnectivity) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var connectErr *pgconn.ConnectError
	return errors.As(err, &connectErr)
}

// connectivityError wraps err with ErrConnectivity unless it already is one.
func connectivityError(op string, err error) error {
	if errors.Is(err, ErrConnectivity) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrConnectivity, op, err)
}
