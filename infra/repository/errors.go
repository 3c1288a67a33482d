package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/amirasaad/cashfake/pkg/domain"
	"github.com/amirasaad/cashfake/pkg/domain/account"
	"github.com/amirasaad/cashfake/pkg/domain/ledger"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// Postgres codes worth a retry: serialization failures, deadlocks, shutdowns and
// connection limits. Class 08 (connection exceptions) is matched by prefix.
var pgTransientCodes = map[string]bool{
	"40001": true,
	"40P01": true,
	"53300": true,
	"57P01": true,
	"57P02": true,
	"57P03": true,
}

// MapGormErrorToDomain converts GORM and driver errors to domain errors.
// Errors that are already classified are returned unchanged; unknown errors pass through.
func MapGormErrorToDomain(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.AsError(err); ok {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation:
			return domain.DuplicateKey(indexField(pgErr.ConstraintName), err)
		case pgErr.Code == pgCheckViolation && strings.Contains(pgErr.ConstraintName, "balance"):
			return domain.ErrNegativeBalance.Wrap(err)
		case pgErr.Code == pgCheckViolation:
			return domain.ErrInvalidEntry.Wrap(err)
		case pgTransientCodes[pgErr.Code] || strings.HasPrefix(pgErr.Code, "08"):
			return domain.ErrTransientStore.Wrap(err)
		}
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		// translated errors carry no constraint name
		return domain.DuplicateKey("", err)
	case isTransient(err):
		return domain.ErrTransientStore.Wrap(err)
	}
	return err
}

// WrapError runs a GORM operation and maps its error.
func WrapError(op func() error) error {
	return MapGormErrorToDomain(op())
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		pgconn.Timeout(err) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// indexField maps a constraint name to the index name published by the repository contract.
func indexField(constraint string) string {
	switch constraint {
	case indexAccountsNumber:
		return account.IndexNumber
	case indexAccountsEmail:
		return account.IndexEmail
	case indexLedgerIdempotency:
		return ledger.IndexIdempotencyKey
	}
	return constraint
}
