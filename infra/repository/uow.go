package repository

import (
	"context"

	"github.com/amirasaad/cashfake/pkg/repository"
	"gorm.io/gorm"
)

// UoW runs units of work as database transactions.
type UoW struct {
	db *gorm.DB
	tx *gorm.DB
}

var _ repository.UnitOfWork = (*UoW)(nil)

// NewUoW creates a new UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{db: db}
}

// Do runs fn in a transaction. A nested Do joins the enclosing transaction.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if u.tx != nil {
		return fn(u)
	}
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UoW{db: u.db, tx: tx})
	})
	return MapGormErrorToDomain(err)
}

func (u *UoW) AccountRepository() (repository.AccountRepository, error) {
	return NewAccountRepository(u.session()), nil
}

func (u *UoW) LedgerRepository() (repository.LedgerRepository, error) {
	return NewLedgerRepository(u.session()), nil
}

func (u *UoW) session() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}
