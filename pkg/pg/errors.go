package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrFailedToOpenDBConnection = errors.New("failed to open db connection")
	ErrFailedToParseDBConfig    = errors.New("failed to parse db config")
	ErrHealthcheckFailed        = errors.New("healthcheck failed, connection is not available")
	ErrFailedToApplyMigrations  = errors.New("failed to apply migrations")
	ErrMigrationsDirNotFound    = errors.New("migrations directory not found")
	ErrMigrationPathNotProvided = errors.New("migration path not provided")
)

// SQLSTATE codes this package cares about. Tenant routing needs to tell
// "the schema is gone" apart from every other database failure.
const (
	codeUniqueViolation   = "23505"
	codeInvalidSchemaName = "3D000"
	codeUndefinedTable    = "42P01"
)

// IsNotFoundError detects pgx.ErrNoRows for uniform "not found" handling.
func IsNotFoundError(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}

// IsTxClosedError detects use of an already finished transaction.
func IsTxClosedError(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrTxClosed)
}

// IsDuplicateKeyError detects unique constraint violations. The tenant
// registry relies on this to translate racing inserts into a conflict.
func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// IsInvalidSchemaError detects references to a schema that does not exist in
// the cluster (SQLSTATE 3D000). This is the low-level signal behind the typed
// schema-not-found error in the tenant connection factory.
func IsInvalidSchemaError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeInvalidSchemaName
}

// IsUndefinedTableError detects queries against tables that were never
// provisioned (SQLSTATE 42P01), which usually means baseline DDL drift.
func IsUndefinedTableError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUndefinedTable
}
