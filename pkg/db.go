package pkg

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// https://www.postgresql.org/docs/current/errcodes-appendix.html

func pgErrHasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

// IsUniqueViolationError reports whether err is a unique constraint violation.
// Name uniqueness in the catalogs and templates is enforced by unique
// indexes, so concurrent duplicate inserts surface here instead of through
// a check-then-insert race.
func IsUniqueViolationError(err error) bool {
	return pgErrHasCode(err, "23505")
}

// IsForeignKeyViolationError reports whether err is a foreign key violation.
func IsForeignKeyViolationError(err error) bool {
	return pgErrHasCode(err, "23503")
}

// IsCheckViolationError reports whether err is a CHECK constraint violation
// (e.g. a session rating outside 1..10).
func IsCheckViolationError(err error) bool {
	return pgErrHasCode(err, "23514")
}
