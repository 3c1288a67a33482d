package repository

import "context"

// UnitOfWork defines the contract for transactional work and repository access.
//
// Do runs fn as one atomic unit: stores bound to the uow passed to fn see each other's
// writes, and either every write in fn becomes visible or none does. A non-nil error from
// fn rolls the unit back and is returned unchanged.
//
// Repositories obtained from a UnitOfWork outside Do run each call on its own.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	AccountRepository() (AccountRepository, error)
	LedgerRepository() (LedgerRepository, error)
}
