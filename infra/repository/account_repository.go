package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirasaad/cashfake/pkg/domain"
	"github.com/amirasaad/cashfake/pkg/domain/account"
	"github.com/amirasaad/cashfake/pkg/money"
	"github.com/amirasaad/cashfake/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates an account repository on db, which may be a transaction.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *accountRepository) GetByNumber(ctx context.Context, number string) (*account.Account, error) {
	return r.first(ctx, "number = ?", number)
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	return r.first(ctx, "email = ?", account.NormalizeEmail(email))
}

func (r *accountRepository) GetByNumberOrEmail(ctx context.Context, query string) (*account.Account, error) {
	return r.first(ctx, "number = ? OR email = ?", query, account.NormalizeEmail(query))
}

func (r *accountRepository) first(ctx context.Context, cond string, args ...any) (*account.Account, error) {
	var m Account
	err := r.db.WithContext(ctx).Where(cond, args...).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return m.toDomain(), nil
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(accountModel(a)).Error
	})
}

// ApplyBalanceDelta relies on the conditional UPDATE for atomicity: concurrent deltas on
// one row queue on its lock and each re-checks the condition against the committed balance.
func (r *accountRepository) ApplyBalanceDelta(ctx context.Context, id uuid.UUID, delta money.Amount) (money.Amount, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&Account{}).
		Where("id = ? AND balance + ? >= 0", id, int64(delta)).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", int64(delta)),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.Model(&Account{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return 0, MapGormErrorToDomain(err)
		}
		if count == 0 {
			return 0, domain.ErrAccountNotFound
		}
		return 0, domain.ErrNegativeBalance
	}

	var balance int64
	if err := db.Model(&Account{}).Select("balance").Where("id = ?", id).Scan(&balance).Error; err != nil {
		return 0, MapGormErrorToDomain(err)
	}
	return money.Amount(balance), nil
}

func (r *accountRepository) SetSuspended(ctx context.Context, id uuid.UUID, suspended bool) error {
	res := r.db.WithContext(ctx).Model(&Account{}).
		Where("id = ?", id).
		Updates(map[string]any{"suspended": suspended, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepository) List(ctx context.Context, filter repository.AccountFilter) ([]*account.Account, int64, error) {
	q := r.db.WithContext(ctx).Model(&Account{})
	switch filter.Status {
	case repository.StatusActive:
		q = q.Where("suspended = ?", false)
	case repository.StatusSuspended:
		q = q.Where("suspended = ?", true)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, MapGormErrorToDomain(err)
	}

	column := "created_at"
	if filter.SortBy == repository.SortFullName {
		column = "full_name"
	}
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: filter.Descending}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: filter.Descending})
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var models []Account
	if err := q.Find(&models).Error; err != nil {
		return nil, 0, MapGormErrorToDomain(err)
	}
	out := make([]*account.Account, 0, len(models))
	for i := range models {
		out = append(out, models[i].toDomain())
	}
	return out, total, nil
}
