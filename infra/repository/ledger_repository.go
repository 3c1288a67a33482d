package repository

import (
	"context"
	"errors"

	"github.com/amirasaad/cashfake/pkg/domain"
	"github.com/amirasaad/cashfake/pkg/domain/ledger"
	"github.com/amirasaad/cashfake/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a ledger repository on db, which may be a transaction.
func NewLedgerRepository(db *gorm.DB) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(ctx context.Context, e *ledger.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(entryModel(e)).Error
	})
}

func (r *ledgerRepository) Get(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *ledgerRepository) GetByIdempotencyKey(ctx context.Context, ownerID uuid.UUID, key string) (*ledger.Entry, error) {
	return r.first(ctx, "owner_id = ? AND idempotency_key = ?", ownerID, key)
}

func (r *ledgerRepository) first(ctx context.Context, cond string, args ...any) (*ledger.Entry, error) {
	var m LedgerEntry
	err := r.db.WithContext(ctx).Where(cond, args...).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return m.toDomain(), nil
}

func (r *ledgerRepository) QueryByParticipant(ctx context.Context, accountID uuid.UUID, number string) ([]*ledger.Entry, error) {
	return r.find(r.db.WithContext(ctx).
		Where("owner_id = ? OR destination_number = ?", accountID, number))
}

func (r *ledgerRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, kind ledger.Kind, limit int) ([]*ledger.Entry, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ? AND kind = ?", ownerID, string(kind))
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.find(q)
}

func (r *ledgerRepository) find(q *gorm.DB) ([]*ledger.Entry, error) {
	var models []LedgerEntry
	if err := q.Order("created_at DESC").Order("id DESC").Find(&models).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*ledger.Entry, 0, len(models))
	for i := range models {
		out = append(out, models[i].toDomain())
	}
	return out, nil
}
