package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/amirasaad/cashfake/pkg/domain"
	"github.com/amirasaad/cashfake/pkg/domain/account"
	"github.com/amirasaad/cashfake/pkg/money"
	"github.com/amirasaad/cashfake/pkg/repository"
	"github.com/google/uuid"
)

type accountRepository struct {
	uow *UoW
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var out *account.Account
	err := r.uow.run(ctx, func(t *tx) error {
		a, ok := t.account(id)
		if !ok {
			return domain.ErrAccountNotFound
		}
		out = a.Clone()
		return nil
	})
	return out, err
}

func (r *accountRepository) GetByNumber(ctx context.Context, number string) (*account.Account, error) {
	var out *account.Account
	err := r.uow.run(ctx, func(t *tx) error {
		id, ok := t.idByNumber(number)
		if !ok {
			return domain.ErrAccountNotFound
		}
		a, _ := t.account(id)
		out = a.Clone()
		return nil
	})
	return out, err
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	var out *account.Account
	err := r.uow.run(ctx, func(t *tx) error {
		id, ok := t.idByEmail(account.NormalizeEmail(email))
		if !ok {
			return domain.ErrAccountNotFound
		}
		a, _ := t.account(id)
		out = a.Clone()
		return nil
	})
	return out, err
}

func (r *accountRepository) GetByNumberOrEmail(ctx context.Context, query string) (*account.Account, error) {
	var out *account.Account
	err := r.uow.run(ctx, func(t *tx) error {
		id, ok := t.idByNumber(query)
		if !ok {
			id, ok = t.idByEmail(account.NormalizeEmail(query))
		}
		if !ok {
			return domain.ErrAccountNotFound
		}
		a, _ := t.account(id)
		out = a.Clone()
		return nil
	})
	return out, err
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	return r.uow.run(ctx, func(t *tx) error {
		if _, ok := t.account(a.ID); ok {
			return domain.DuplicateKey("primary", nil)
		}
		if _, ok := t.idByNumber(a.Number); ok {
			return domain.DuplicateKey(account.IndexNumber, nil)
		}
		email := account.NormalizeEmail(a.Email)
		if _, ok := t.idByEmail(email); ok {
			return domain.DuplicateKey(account.IndexEmail, nil)
		}
		c := a.Clone()
		c.Email = email
		t.accounts[c.ID] = c
		t.byNumber[c.Number] = c.ID
		t.byEmail[email] = c.ID
		return nil
	})
}

func (r *accountRepository) ApplyBalanceDelta(ctx context.Context, id uuid.UUID, delta money.Amount) (money.Amount, error) {
	var balance money.Amount
	err := r.uow.run(ctx, func(t *tx) error {
		a, ok := t.mutable(id)
		if !ok {
			return domain.ErrAccountNotFound
		}
		if a.Balance+delta < 0 {
			return domain.ErrNegativeBalance
		}
		a.Balance += delta
		a.UpdatedAt = time.Now().UTC()
		balance = a.Balance
		return nil
	})
	return balance, err
}

func (r *accountRepository) SetSuspended(ctx context.Context, id uuid.UUID, suspended bool) error {
	return r.uow.run(ctx, func(t *tx) error {
		a, ok := t.mutable(id)
		if !ok {
			return domain.ErrAccountNotFound
		}
		a.Suspended = suspended
		a.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *accountRepository) List(ctx context.Context, filter repository.AccountFilter) ([]*account.Account, int64, error) {
	var (
		out   []*account.Account
		total int64
	)
	err := r.uow.run(ctx, func(t *tx) error {
		var matched []*account.Account
		for _, a := range t.allAccounts() {
			switch filter.Status {
			case repository.StatusActive:
				if a.Suspended {
					continue
				}
			case repository.StatusSuspended:
				if !a.Suspended {
					continue
				}
			}
			matched = append(matched, a)
		}
		slices.SortFunc(matched, func(a, b *account.Account) int {
			c := compareAccounts(a, b, filter.SortBy)
			if filter.Descending {
				return -c
			}
			return c
		})
		total = int64(len(matched))
		start := min(max(filter.Offset, 0), len(matched))
		end := len(matched)
		if filter.Limit > 0 {
			end = min(start+filter.Limit, end)
		}
		for _, a := range matched[start:end] {
			out = append(out, a.Clone())
		}
		return nil
	})
	return out, total, err
}

func compareAccounts(a, b *account.Account, by repository.AccountSort) int {
	var c int
	if by == repository.SortFullName {
		c = strings.Compare(strings.ToLower(a.FullName), strings.ToLower(b.FullName))
	} else {
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}
