package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/tair/produce-ledger/internal/ledger/domain"
)

// SQLSTATE codes postgres uses when a transaction lost a race.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// translate maps driver errors onto ledger sentinels. notFound is the
// sentinel to use for gorm.ErrRecordNotFound.
func translate(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil {
		return notFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", domain.ErrAlreadyExists, err)
	}
	if isConflict(err) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}

func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	// sqlite reports writer contention as SQLITE_BUSY
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
