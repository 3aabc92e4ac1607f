package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/koustreak/blobgate/internal/errs"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errDuplicateEntry   = 1062
	errAccessDenied     = 1045
	errConnRefused      = 2003
	errUnknownDatabase  = 1049
	errPacketTooLarge   = 1153
	errDataTooLong      = 1406
	errLockWaitTimeout  = 1205
	errQueryInterrupted = 1317
)

// mapError converts a MySQL driver error into a *errs.Error
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	if errors.Is(err, driver.ErrBadConn) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case errDuplicateEntry:
			return errs.Wrap(errs.ErrKindConflict, msg, err)
		case errAccessDenied:
			return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
		case errConnRefused, errUnknownDatabase:
			return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
		case errPacketTooLarge, errDataTooLong:
			return errs.Wrap(errs.ErrKindTooLarge, msg, err)
		case errLockWaitTimeout, errQueryInterrupted:
			return errs.Wrap(errs.ErrKindTimeout, msg, err)
		}
		return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
	}

	return errs.Wrap(errs.ErrKindUnknown, msg, err)
}
