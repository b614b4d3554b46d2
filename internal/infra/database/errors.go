package database

import (
	"errors"

	"github.com/lib/pq"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// constraintViolation returns the violated constraint name when err is a
// PostgreSQL error with the given SQLSTATE code.
func constraintViolation(err error, code string) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == code {
		return pqErr.Constraint, true
	}
	return "", false
}

func isUniqueViolation(err error, constraint string) bool {
	name, ok := constraintViolation(err, pgUniqueViolation)
	return ok && name == constraint
}

func isForeignKeyViolation(err error, constraint string) bool {
	name, ok := constraintViolation(err, pgForeignKeyViolation)
	return ok && name == constraint
}
