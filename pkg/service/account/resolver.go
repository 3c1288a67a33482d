package account

import (
	"context"
	"errors"
	"strings"

	"github.com/amirasaad/cashfake/pkg/domain"
	"github.com/amirasaad/cashfake/pkg/domain/account"
	"github.com/amirasaad/cashfake/pkg/repository"
)

// Resolution is the outcome of resolving a destination query. Found is false, with a nil
// error, when nothing matches.
type Resolution struct {
	Found   bool
	Account *account.Account
}

// Resolver maps a free-form destination to an account by exact number or email.
// It does not report which of the two matched.
type Resolver struct {
	uow repository.UnitOfWork
}

// NewResolver creates a Resolver.
func NewResolver(uow repository.UnitOfWork) *Resolver {
	return &Resolver{uow: uow}
}

// Resolve looks query up outside any unit of work.
func (r *Resolver) Resolve(ctx context.Context, query string) (Resolution, error) {
	accounts, err := r.uow.AccountRepository()
	if err != nil {
		return Resolution{}, err
	}
	return ResolveWith(ctx, accounts, query)
}

// ResolveWith looks query up through accounts, typically bound to an open unit of work.
func ResolveWith(ctx context.Context, accounts repository.AccountRepository, query string) (Resolution, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Resolution{}, domain.ErrQueryRequired
	}
	a, err := accounts.GetByNumberOrEmail(ctx, q)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return Resolution{}, nil
	}
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Found: true, Account: a}, nil
}
