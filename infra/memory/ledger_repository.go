package memory

import (
	"context"

	"github.com/amirasaad/cashfake/pkg/domain"
	"github.com/amirasaad/cashfake/pkg/domain/ledger"
	"github.com/google/uuid"
)

type ledgerRepository struct {
	uow *UoW
}

func (r *ledgerRepository) Append(ctx context.Context, e *ledger.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return r.uow.run(ctx, func(t *tx) error {
		if _, ok := t.entry(e.ID); ok {
			return domain.DuplicateKey("primary", nil)
		}
		c := e.Clone()
		if c.IdempotencyKey != nil {
			k := idempotencyKey{owner: c.OwnerID, key: *c.IdempotencyKey}
			if _, ok := t.entryIDByKey(k); ok {
				return domain.DuplicateKey(ledger.IndexIdempotencyKey, nil)
			}
			t.byKey[k] = c.ID
		}
		t.entries = append(t.entries, c)
		return nil
	})
}

func (r *ledgerRepository) Get(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	var out *ledger.Entry
	err := r.uow.run(ctx, func(t *tx) error {
		e, ok := t.entry(id)
		if !ok {
			return domain.ErrEntryNotFound
		}
		out = e.Clone()
		return nil
	})
	return out, err
}

func (r *ledgerRepository) GetByIdempotencyKey(ctx context.Context, ownerID uuid.UUID, key string) (*ledger.Entry, error) {
	var out *ledger.Entry
	err := r.uow.run(ctx, func(t *tx) error {
		id, ok := t.entryIDByKey(idempotencyKey{owner: ownerID, key: key})
		if !ok {
			return domain.ErrEntryNotFound
		}
		e, _ := t.entry(id)
		out = e.Clone()
		return nil
	})
	return out, err
}

func (r *ledgerRepository) QueryByParticipant(ctx context.Context, accountID uuid.UUID, number string) ([]*ledger.Entry, error) {
	var out []*ledger.Entry
	err := r.uow.run(ctx, func(t *tx) error {
		t.eachEntry(func(e *ledger.Entry) {
			credited := number != "" && e.DestinationNumber != nil && *e.DestinationNumber == number
			if e.OwnerID == accountID || credited {
				out = append(out, e.Clone())
			}
		})
		return nil
	})
	ledger.SortNewestFirst(out)
	return out, err
}

func (r *ledgerRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, kind ledger.Kind, limit int) ([]*ledger.Entry, error) {
	var out []*ledger.Entry
	err := r.uow.run(ctx, func(t *tx) error {
		t.eachEntry(func(e *ledger.Entry) {
			if e.OwnerID == ownerID && e.Kind == kind {
				out = append(out, e.Clone())
			}
		})
		return nil
	})
	ledger.SortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}
