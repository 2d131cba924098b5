package assessment

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	core "github.com/lumenlearn/assessment-backend/internal/assessment"
)

// Postgres SQLSTATE codes this layer cares about.
const (
	pgUniqueViolation   = "23505"
	pgSerializationFail = "40001"
	pgDeadlockDetected  = "40P01"
	pgLockNotAvailable  = "55P03"
)

// mapDBError folds driver-level failures into the core error taxonomy:
// unique violations become conflicts (idempotency-key collisions),
// serialization/lock failures become retryable for the caller.
func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return errors.Join(core.ErrConflict, err)
		case pgSerializationFail, pgDeadlockDetected, pgLockNotAvailable:
			return errors.Join(core.ErrRetryable, err)
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Join(core.ErrConflict, err)
	}
	return err
}

// lockForUpdate applies a row lock on dialects that support it. The
// sqlite driver used by tests and local dev serializes writes on its
// single writer and rejects FOR UPDATE syntax.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(forUpdateClause)
	}
	return tx
}
