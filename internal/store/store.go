package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"dinein-backend/internal/apperr"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres error codes
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// Tx runs fn inside a single transaction. Any error returned by fn rolls back
// every write made through tx and comes back classified.
func Tx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if err := db.WithContext(ctx).Transaction(fn); err != nil {
		return Classify(err)
	}
	return nil
}

// ForUpdate locks the selected rows until the surrounding transaction ends.
// SQLite ignores the clause; it serializes writers on its own.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// NotFound turns gorm's record-not-found into a typed NotFound with msg and
// passes every other error through untouched.
func NotFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(format, args...)
	}
	return err
}

// Classify maps a storage error onto the apperr taxonomy. Errors that are
// already typed are returned as is.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("record not found")
	case isUniqueViolation(err):
		return &apperr.Error{Kind: apperr.KindInvalidState, Message: "conflicting concurrent update", Err: err}
	case isLockConflict(err):
		return &apperr.Error{Kind: apperr.KindInvalidState, Message: "concurrent update, try again", Err: err}
	case isConnectionError(err):
		return apperr.Unavailable(err)
	default:
		return apperr.Internal(fmt.Errorf("store: %w", err))
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isLockConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		(pgErr.Code == pgDeadlockDetected || pgErr.Code == pgSerializationFailure)
}

func isConnectionError(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded)
}
