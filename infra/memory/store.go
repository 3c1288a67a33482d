// Package memory is an in-process implementation of the storage contracts.
//
// A single lock serialises every unit of work. Writes made inside Do are staged in an
// overlay and merged into the store only when the callback returns nil, so a failed unit
// leaves no trace. Values handed to callers are copies.
package memory

import (
	"context"
	"errors"

	"github.com/amirasaad/cashfake/pkg/domain"
	"github.com/amirasaad/cashfake/pkg/domain/account"
	"github.com/amirasaad/cashfake/pkg/domain/ledger"
	"github.com/amirasaad/cashfake/pkg/repository"
	"github.com/google/uuid"
)

var errUnitClosed = errors.New("memory: unit of work used after Do returned")

type idempotencyKey struct {
	owner uuid.UUID
	key   string
}

// Store holds committed state.
type Store struct {
	sem chan struct{}

	accounts map[uuid.UUID]*account.Account
	byNumber map[string]uuid.UUID
	byEmail  map[string]uuid.UUID

	entries map[uuid.UUID]*ledger.Entry
	order   []uuid.UUID
	byKey   map[idempotencyKey]uuid.UUID
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		sem:      make(chan struct{}, 1),
		accounts: make(map[uuid.UUID]*account.Account),
		byNumber: make(map[string]uuid.UUID),
		byEmail:  make(map[string]uuid.UUID),
		entries:  make(map[uuid.UUID]*ledger.Entry),
		byKey:    make(map[idempotencyKey]uuid.UUID),
	}
}

// UnitOfWork returns a UnitOfWork backed by s.
func (s *Store) UnitOfWork() *UoW {
	return &UoW{store: s}
}

// lock waits for the store, giving up when ctx is done.
func (s *Store) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return domain.ErrTransientStore.Wrap(err)
	}
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return domain.ErrTransientStore.Wrap(ctx.Err())
	}
}

func (s *Store) unlock() { <-s.sem }

// UoW implements repository.UnitOfWork.
type UoW struct {
	store *Store
	tx    *tx
}

var _ repository.UnitOfWork = (*UoW)(nil)

// Do runs fn under the store lock. A nested Do joins the enclosing unit.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if u.tx != nil {
		if u.tx.done {
			return errUnitClosed
		}
		return fn(u)
	}
	if err := u.store.lock(ctx); err != nil {
		return err
	}
	defer u.store.unlock()

	t := newTx(u.store)
	defer func() { t.done = true }()
	if err := fn(&UoW{store: u.store, tx: t}); err != nil {
		return err
	}
	// a unit that outlived its deadline is rolled back like any other failure
	if err := ctx.Err(); err != nil {
		return domain.ErrTransientStore.Wrap(err)
	}
	t.commit()
	return nil
}

func (u *UoW) AccountRepository() (repository.AccountRepository, error) {
	return &accountRepository{uow: u}, nil
}

func (u *UoW) LedgerRepository() (repository.LedgerRepository, error) {
	return &ledgerRepository{uow: u}, nil
}

// run executes op inside the current unit, or in a unit of its own.
func (u *UoW) run(ctx context.Context, op func(t *tx) error) error {
	if u.tx != nil {
		if u.tx.done {
			return errUnitClosed
		}
		if err := ctx.Err(); err != nil {
			return domain.ErrTransientStore.Wrap(err)
		}
		return op(u.tx)
	}
	return u.Do(ctx, func(uow repository.UnitOfWork) error {
		return op(uow.(*UoW).tx)
	})
}

// tx is the overlay of one unit of work.
type tx struct {
	s    *Store
	done bool

	accounts map[uuid.UUID]*account.Account
	byNumber map[string]uuid.UUID
	byEmail  map[string]uuid.UUID

	entries []*ledger.Entry
	byKey   map[idempotencyKey]uuid.UUID
}

func newTx(s *Store) *tx {
	return &tx{
		s:        s,
		accounts: make(map[uuid.UUID]*account.Account),
		byNumber: make(map[string]uuid.UUID),
		byEmail:  make(map[string]uuid.UUID),
		byKey:    make(map[idempotencyKey]uuid.UUID),
	}
}

func (t *tx) account(id uuid.UUID) (*account.Account, bool) {
	if a, ok := t.accounts[id]; ok {
		return a, true
	}
	a, ok := t.s.accounts[id]
	return a, ok
}

// mutable returns a staged copy of the account, staging it on first use.
func (t *tx) mutable(id uuid.UUID) (*account.Account, bool) {
	if a, ok := t.accounts[id]; ok {
		return a, true
	}
	a, ok := t.s.accounts[id]
	if !ok {
		return nil, false
	}
	c := a.Clone()
	t.accounts[id] = c
	return c, true
}

func (t *tx) idByNumber(number string) (uuid.UUID, bool) {
	if id, ok := t.byNumber[number]; ok {
		return id, true
	}
	id, ok := t.s.byNumber[number]
	return id, ok
}

func (t *tx) idByEmail(email string) (uuid.UUID, bool) {
	if id, ok := t.byEmail[email]; ok {
		return id, true
	}
	id, ok := t.s.byEmail[email]
	return id, ok
}

// allAccounts returns committed accounts overlaid with staged ones.
func (t *tx) allAccounts() []*account.Account {
	out := make([]*account.Account, 0, len(t.s.accounts)+len(t.accounts))
	for id, a := range t.s.accounts {
		if staged, ok := t.accounts[id]; ok {
			a = staged
		}
		out = append(out, a)
	}
	for id, a := range t.accounts {
		if _, ok := t.s.accounts[id]; !ok {
			out = append(out, a)
		}
	}
	return out
}

func (t *tx) entry(id uuid.UUID) (*ledger.Entry, bool) {
	for _, e := range t.entries {
		if e.ID == id {
			return e, true
		}
	}
	e, ok := t.s.entries[id]
	return e, ok
}

func (t *tx) entryIDByKey(k idempotencyKey) (uuid.UUID, bool) {
	if id, ok := t.byKey[k]; ok {
		return id, true
	}
	id, ok := t.s.byKey[k]
	return id, ok
}

// eachEntry visits committed entries in append order, then staged ones.
func (t *tx) eachEntry(visit func(e *ledger.Entry)) {
	for _, id := range t.s.order {
		visit(t.s.entries[id])
	}
	for _, e := range t.entries {
		visit(e)
	}
}

func (t *tx) commit() {
	s := t.s
	for id, a := range t.accounts {
		s.accounts[id] = a
	}
	for n, id := range t.byNumber {
		s.byNumber[n] = id
	}
	for e, id := range t.byEmail {
		s.byEmail[e] = id
	}
	for _, e := range t.entries {
		s.entries[e.ID] = e
		s.order = append(s.order, e.ID)
	}
	for k, id := range t.byKey {
		s.byKey[k] = id
	}
}
