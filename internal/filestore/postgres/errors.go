package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/koustreak/blobgate/internal/errs"
)

// PostgreSQL SQLSTATE error codes
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgErrConnectionFailure = "08006"
	pgErrConnectionRefused = "08001"
	pgErrInvalidPassword   = "28P01"
	pgErrUniqueViolation   = "23505"
	pgErrProgramLimit      = "54000"
)

// mapError converts a pgx error into a *errs.Error
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrConnectionFailure, pgErrConnectionRefused:
			return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
		case pgErrInvalidPassword:
			return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
		case pgErrUniqueViolation:
			return errs.Wrap(errs.ErrKindConflict, msg, err)
		case pgErrProgramLimit:
			return errs.Wrap(errs.ErrKindTooLarge, msg, err)
		}
		return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	return errs.Wrap(errs.ErrKindUnknown, msg, err)
}
