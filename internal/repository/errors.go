package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"studenthub/internal/model"
)

// classify tags driver errors with the model sentinels the services branch on.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %w", model.ErrNotFound, err)
	case isPermission(err):
		return fmt.Errorf("%w: %w", model.ErrPermission, err)
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %w", model.ErrConflict, err)
	case IsTransient(err):
		return fmt.Errorf("%w: %w", model.ErrUnavailable, err)
	}
	return err
}

// IsTransient reports network, timeout and connection-class failures that are
// worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code() & 0xff
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}

	code := sqlState(err)
	switch {
	case strings.HasPrefix(code, "08"): // connection exception
		return true
	case code == "53300", code == "57P01", code == "57P02", code == "57P03":
		return true
	case code == "57014": // query_canceled, raised when a statement deadline fires
		return true
	case code == "40001", code == "40P01":
		return true
	}
	return false
}

func isPermission(err error) bool {
	code := sqlState(err)
	return code == "42501" || strings.HasPrefix(code, "28")
}

func isUniqueViolation(err error) bool {
	if sqlState(err) == "23505" {
		return true
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		// extended result codes are not always enabled, so fall back to the message
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			(sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE"))
	}
	return false
}

func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
