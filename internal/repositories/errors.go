package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"rental-backend/internal/apperrors"
)

// Postgres SQLSTATE codes the repositories translate
const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
)

// notFound turns pgx.ErrNoRows into apperrors.NotFound and passes anything else through
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.New(apperrors.KindNotFound, "%s not found", what)
	}
	return err
}

// constraintName returns the violated constraint when err is a Postgres error with the given code
func constraintName(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}
