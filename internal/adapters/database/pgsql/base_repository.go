// Package pgsql implements the repository ports against PostgreSQL using pgx.
package pgsql

import (
	"errors"
	"fmt"

	"github.com/expenseasy/expenseasy_backend/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// mapNotFound translates pgx.ErrNoRows into the domain not-found sentinel,
// wrapping everything else with context.
func mapNotFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, apperrors.ErrNotFound)
	}
	return fmt.Errorf("failed to find %s: %w", what, err)
}

// isUniqueViolation reports whether err is a unique-constraint violation,
// optionally on one specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
