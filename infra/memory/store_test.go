package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirasaad/cashfake/infra/memory"
	"github.com/amirasaad/cashfake/pkg/domain"
	"github.com/amirasaad/cashfake/pkg/domain/account"
	"github.com/amirasaad/cashfake/pkg/domain/ledger"
	"github.com/amirasaad/cashfake/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newAccount(t *testing.T, name, number string) *account.Account {
	t.Helper()
	a, err := account.New(name, name+"@example.com", "hash", number, 321)
	require.NoError(t, err)
	return a
}

func repos(t *testing.T, uow repository.UnitOfWork) (repository.AccountRepository, repository.LedgerRepository) {
	t.Helper()
	accounts, err := uow.AccountRepository()
	require.NoError(t, err)
	entries, err := uow.LedgerRepository()
	require.NoError(t, err)
	return accounts, entries
}

func TestCreate_UniqueIndexes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	accounts, _ := repos(t, memory.NewStore().UnitOfWork())

	require.NoError(t, accounts.Create(ctx, newAccount(t, "alice", "6204501111")))

	err := accounts.Create(ctx, newAccount(t, "bob", "6204501111"))
	index, ok := domain.DuplicateIndex(err)
	require.True(t, ok)
	assert.Equal(t, account.IndexNumber, index)

	dup := newAccount(t, "alice", "6204502222")
	dup.Email = "ALICE@example.com"
	err = accounts.Create(ctx, dup)
	index, ok = domain.DuplicateIndex(err)
	require.True(t, ok)
	assert.Equal(t, account.IndexEmail, index)
}

func TestLookups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	accounts, _ := repos(t, memory.NewStore().UnitOfWork())
	alice := newAccount(t, "alice", "6204501111")
	require.NoError(t, accounts.Create(ctx, alice))

	got, err := accounts.GetByNumberOrEmail(ctx, "6204501111")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	got, err = accounts.GetByNumberOrEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = accounts.GetByNumberOrEmail(ctx, "620450111")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	got.FullName = "mutated"
	again, err := accounts.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", again.FullName)
}

func TestApplyBalanceDelta_NeverNegative(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	accounts, _ := repos(t, memory.NewStore().UnitOfWork())
	alice := newAccount(t, "alice", "6204501111")
	require.NoError(t, accounts.Create(ctx, alice))

	balance, err := accounts.ApplyBalanceDelta(ctx, alice.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), int64(balance))

	_, err = accounts.ApplyBalanceDelta(ctx, alice.ID, -501)
	assert.ErrorIs(t, err, domain.ErrNegativeBalance)

	balance, err = accounts.ApplyBalanceDelta(ctx, alice.ID, -500)
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = accounts.ApplyBalanceDelta(ctx, newAccount(t, "ghost", "6204509999").ID, 1)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestDo_RollbackLeavesNoTrace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uow := memory.NewStore().UnitOfWork()
	accounts, entries := repos(t, uow)
	alice := newAccount(t, "alice", "6204501111")
	require.NoError(t, accounts.Create(ctx, alice))
	_, err := accounts.ApplyBalanceDelta(ctx, alice.ID, 1000)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = uow.Do(ctx, func(tx repository.UnitOfWork) error {
		txAccounts, txEntries := repos(t, tx)
		if _, err := txAccounts.ApplyBalanceDelta(ctx, alice.ID, -400); err != nil {
			return err
		}
		e, err := ledger.NewWithdrawal(alice, 400, "", time.Now())
		if err != nil {
			return err
		}
		if err := txEntries.Append(ctx, e); err != nil {
			return err
		}
		if err := txAccounts.Create(ctx, newAccount(t, "bob", "6204502222")); err != nil {
			return err
		}
		// staged writes are visible inside the unit
		got, err := txAccounts.Get(ctx, alice.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(600), int64(got.Balance))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := accounts.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), int64(got.Balance))
	_, err = accounts.GetByNumber(ctx, "6204502222")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	history, err := entries.QueryByParticipant(ctx, alice.ID, alice.Number)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDo_ExpiredContextIsTransient(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := memory.NewStore().UnitOfWork().Do(ctx, func(repository.UnitOfWork) error { return nil })
	assert.ErrorIs(t, err, domain.ErrTransientStore)
	assert.Equal(t, domain.KindTransientStore, domain.KindOf(err))
}

func TestDo_SerialisesUnits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uow := memory.NewStore().UnitOfWork()
	accounts, _ := repos(t, uow)
	alice := newAccount(t, "alice", "6204501111")
	require.NoError(t, accounts.Create(ctx, alice))

	// read-then-write inside a unit never loses an update
	var g errgroup.Group
	for range 50 {
		g.Go(func() error {
			return uow.Do(ctx, func(tx repository.UnitOfWork) error {
				txAccounts, err := tx.AccountRepository()
				if err != nil {
					return err
				}
				a, err := txAccounts.Get(ctx, alice.ID)
				if err != nil {
					return err
				}
				_, err = txAccounts.ApplyBalanceDelta(ctx, a.ID, 1)
				return err
			})
		})
	}
	require.NoError(t, g.Wait())
	got, err := accounts.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), int64(got.Balance))
}

func TestLedger_AppendAndQuery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	accounts, entries := repos(t, memory.NewStore().UnitOfWork())
	alice := newAccount(t, "alice", "6204501111")
	bob := newAccount(t, "bob", "6204502222")
	require.NoError(t, accounts.Create(ctx, alice))
	require.NoError(t, accounts.Create(ctx, bob))

	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	sent, err := ledger.NewTransfer(ledger.TransferParams{Sender: alice, Destination: bob, Amount: 100, At: t0, IdempotencyKey: "k"})
	require.NoError(t, err)
	received, err := ledger.NewTransfer(ledger.TransferParams{Sender: bob, Destination: alice, Amount: 50, At: t0.Add(time.Hour)})
	require.NoError(t, err)
	unrelated, err := ledger.NewWithdrawal(bob, 10, "", t0.Add(2*time.Hour))
	require.NoError(t, err)
	for _, e := range []*ledger.Entry{sent, received, unrelated} {
		require.NoError(t, entries.Append(ctx, e))
	}

	got, err := entries.QueryByParticipant(ctx, alice.ID, alice.Number)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, received.ID, got[0].ID)
	assert.Equal(t, sent.ID, got[1].ID)

	replay, err := entries.GetByIdempotencyKey(ctx, alice.ID, "k")
	require.NoError(t, err)
	assert.Equal(t, sent.ID, replay.ID)
	_, err = entries.GetByIdempotencyKey(ctx, bob.ID, "k")
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)

	again, err := ledger.NewTransfer(ledger.TransferParams{Sender: alice, Destination: bob, Amount: 100, At: t0, IdempotencyKey: "k"})
	require.NoError(t, err)
	assert.ErrorIs(t, entries.Append(ctx, again), domain.ErrDuplicateKey)

	owned, err := entries.ListByOwner(ctx, bob.ID, ledger.KindTransfer, 10)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, received.ID, owned[0].ID)
}

func TestList_FilterSortPage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	accounts, _ := repos(t, memory.NewStore().UnitOfWork())
	for i, name := range []string{"carol", "alice", "bob"} {
		a := newAccount(t, name, "620450100"+string(rune('0'+i)))
		require.NoError(t, accounts.Create(ctx, a))
		if name == "bob" {
			require.NoError(t, accounts.SetSuspended(ctx, a.ID, true))
		}
	}

	page, total, err := accounts.List(ctx, repository.AccountFilter{SortBy: repository.SortFullName, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "alice", page[0].FullName)
	assert.Equal(t, "bob", page[1].FullName)

	page, total, err = accounts.List(ctx, repository.AccountFilter{Status: repository.StatusSuspended})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "bob", page[0].FullName)

	page, _, err = accounts.List(ctx, repository.AccountFilter{Status: repository.StatusActive, SortBy: repository.SortFullName, Descending: true})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "carol", page[0].FullName)

	page, _, err = accounts.List(ctx, repository.AccountFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
}
