package transfer_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	infracache "github.com/amirasaad/cashfake/infra/cache"
	infraeventbus "github.com/amirasaad/cashfake/infra/eventbus"
	"github.com/amirasaad/cashfake/infra/memory"
	"github.com/amirasaad/cashfake/pkg/cache"
	"github.com/amirasaad/cashfake/pkg/domain"
	"github.com/amirasaad/cashfake/pkg/domain/account"
	"github.com/amirasaad/cashfake/pkg/domain/ledger"
	"github.com/amirasaad/cashfake/pkg/money"
	"github.com/amirasaad/cashfake/pkg/repository"
	"github.com/amirasaad/cashfake/pkg/service/transfer"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// MockIdempotencyCache is a mock implementation for testing
type MockIdempotencyCache struct {
	mock.Mock
}

func (m *MockIdempotencyCache) Get(ctx context.Context, ownerID uuid.UUID, key string) (*cache.Record, error) {
	args := m.Called(ctx, ownerID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.Record), args.Error(1)
}

func (m *MockIdempotencyCache) Set(ctx context.Context, ownerID uuid.UUID, key string, rec cache.Record, ttl time.Duration) error {
	args := m.Called(ctx, ownerID, key, rec, ttl)
	return args.Error(0)
}

// slowUoW delays every unit of work, so concurrent requests all pass their first
// idempotency lookup before any of them commits.
type slowUoW struct {
	repository.UnitOfWork
	delay time.Duration
}

func (u slowUoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	time.Sleep(u.delay)
	return u.UnitOfWork.Do(ctx, fn)
}

type fixture struct {
	uow      *memory.UoW
	accounts repository.AccountRepository
	entries  repository.LedgerRepository
	seq      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	uow := memory.NewStore().UnitOfWork()
	accounts, err := uow.AccountRepository()
	require.NoError(t, err)
	entries, err := uow.LedgerRepository()
	require.NoError(t, err)
	return &fixture{uow: uow, accounts: accounts, entries: entries}
}

func (f *fixture) open(t *testing.T, name, balance string) *account.Account {
	t.Helper()
	f.seq++
	a, err := account.New(name, fmt.Sprintf("%s@example.com", name), "hash", fmt.Sprintf("620450%04d", 1000+f.seq), 100+f.seq)
	require.NoError(t, err)
	require.NoError(t, f.accounts.Create(context.Background(), a))
	if balance != "" {
		amount, err := money.Parse(balance)
		require.NoError(t, err)
		_, err = f.accounts.ApplyBalanceDelta(context.Background(), a.ID, amount)
		require.NoError(t, err)
	}
	return a
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) string {
	t.Helper()
	a, err := f.accounts.Get(context.Background(), id)
	require.NoError(t, err)
	return a.Balance.String()
}

func (f *fixture) history(t *testing.T, a *account.Account) []*ledger.Entry {
	t.Helper()
	got, err := f.entries.QueryByParticipant(context.Background(), a.ID, a.Number)
	require.NoError(t, err)
	return got
}

func (f *fixture) suspend(t *testing.T, a *account.Account) {
	t.Helper()
	require.NoError(t, f.accounts.SetSuspended(context.Background(), a.ID, true))
}

func TestTransfer_OnPlatform(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.open(t, "alice", "100")
	bob := f.open(t, "bob", "")
	engine := transfer.New(f.uow, discard)

	res, err := engine.Transfer(context.Background(), transfer.TransferRequest{
		InitiatorID:      alice.ID,
		DestinationQuery: "BOB@example.com",
		Amount:           "60",
		Note:             "rent",
	})
	require.NoError(t, err)
	assert.Equal(t, "40.00", res.Balance.String())
	assert.False(t, res.Replayed)
	assert.Equal(t, "40.00", f.balance(t, alice.ID))
	assert.Equal(t, "60.00", f.balance(t, bob.ID))

	e := res.Entry
	require.NotNil(t, e.DestinationNumber)
	assert.Equal(t, bob.Number, *e.DestinationNumber)
	assert.Equal(t, bob.Number, e.DestinationLabel)
	assert.Nil(t, e.RecipientName)
	assert.Equal(t, "alice", e.SenderName)
	assert.Equal(t, "bob", e.CounterpartyName)
	assert.Equal(t, "rent", e.Note)

	assert.Len(t, f.history(t, alice), 1)
	assert.Len(t, f.history(t, bob), 1)
}

func TestTransfer_InsufficientBalanceLeavesNoTrace(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.open(t, "alice", "40")
	bob := f.open(t, "bob", "")
	engine := transfer.New(f.uow, discard)

	_, err := engine.Transfer(context.Background(), transfer.TransferRequest{
		InitiatorID: alice.ID, DestinationQuery: bob.Number, Amount: "50",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Equal(t, domain.KindInsufficientBalance, domain.KindOf(err))
	assert.Equal(t, "40.00", f.balance(t, alice.ID))
	assert.Equal(t, "0.00", f.balance(t, bob.ID))
	assert.Empty(t, f.history(t, alice))
}

func TestTransfer_OffPlatform(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.open(t, "alice", "100")
	bob := f.open(t, "bob", "")
	engine := transfer.New(f.uow, discard)
	ctx := context.Background()

	_, err := engine.Transfer(ctx, transfer.TransferRequest{
		InitiatorID: alice.ID, DestinationQuery: "@tagXYZ", Amount: "25",
	})
	assert.ErrorIs(t, err, domain.ErrRecipientNameRequired)
	assert.Equal(t, "100.00", f.balance(t, alice.ID))

	res, err := engine.Transfer(ctx, transfer.TransferRequest{
		InitiatorID: alice.ID, DestinationQuery: " @tagXYZ ", Amount: "25", RecipientName: "Zed",
	})
	require.NoError(t, err)
	assert.Equal(t, "75.00", f.balance(t, alice.ID))
	assert.Equal(t, "0.00", f.balance(t, bob.ID))

	e := res.Entry
	assert.False(t, e.OnPlatform())
	assert.Equal(t, "@tagXYZ", e.DestinationLabel)
	require.NotNil(t, e.RecipientName)
	assert.Equal(t, "Zed", *e.RecipientName)
	assert.Equal(t, "Zed", e.CounterpartyName)

	keyed := transfer.TransferRequest{
		InitiatorID: alice.ID, DestinationQuery: "@tagXYZ", Amount: "5", RecipientName: "Zed", IdempotencyKey: "tag-1",
	}
	_, err = engine.Transfer(ctx, keyed)
	require.NoError(t, err)
	keyed.RecipientName = " Zed "
	replay, err := engine.Transfer(ctx, keyed)
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	keyed.RecipientName = "Ann"
	_, err = engine.Transfer(ctx, keyed)
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyReused)
	assert.Equal(t, "70.00", f.balance(t, alice.ID))
}

func TestWithdraw(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.open(t, "alice", "100")
	engine := transfer.New(f.uow, discard)

	res, err := engine.Withdraw(context.Background(), transfer.WithdrawRequest{InitiatorID: alice.ID, Amount: "30.50"})
	require.NoError(t, err)
	assert.Equal(t, "69.50", res.Balance.String())
	assert.Equal(t, ledger.KindWithdrawal, res.Entry.Kind)
	assert.Equal(t, ledger.BankLabel, res.Entry.DestinationLabel)
	assert.Equal(t, ledger.BankName, res.Entry.CounterpartyName)
	assert.Nil(t, res.Entry.DestinationNumber)

	_, err = engine.Withdraw(context.Background(), transfer.WithdrawRequest{InitiatorID: alice.ID, Amount: "70"})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Equal(t, "69.50", f.balance(t, alice.ID))
}

func TestTransfer_Rejections(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.open(t, "alice", "100")
	bob := f.open(t, "bob", "")
	frozen := f.open(t, "frozen", "100")
	closed := f.open(t, "closed", "")
	f.suspend(t, frozen)
	f.suspend(t, closed)
	engine := transfer.New(f.uow, discard)

	tests := []struct {
		name string
		req  transfer.TransferRequest
		want error
	}{
		{"empty amount", transfer.TransferRequest{InitiatorID: alice.ID, DestinationQuery: bob.Number}, domain.ErrInvalidAmount},
		{"not a number", transfer.TransferRequest{InitiatorID: alice.ID, DestinationQuery: bob.Number, Amount: "abc"}, domain.ErrInvalidAmount},
		{"zero", transfer.TransferRequest{InitiatorID: alice.ID, DestinationQuery: bob.Number, Amount: "0"}, domain.ErrInvalidAmount},
		{"negative", transfer.TransferRequest{InitiatorID: alice.ID, DestinationQuery: bob.Number, Amount: "-5"}, domain.ErrInvalidAmount},
		{"too precise", transfer.TransferRequest{InitiatorID: alice.ID, DestinationQuery: bob.Number, Amount: "1.234"}, domain.ErrInvalidAmount},
		{"invalid amount wins over unknown sender", transfer.TransferRequest{InitiatorID: uuid.New(), DestinationQuery: bob.Number, Amount: "x"}, domain.ErrInvalidAmount},
		{"blank destination", transfer.TransferRequest{InitiatorID: alice.ID, DestinationQuery: "  ", Amount: "1"}, domain.ErrRecipientRequired},
		{"unknown sender before blank destination", transfer.TransferRequest{InitiatorID: uuid.New(), Amount: "1"}, domain.ErrSenderNotFound},
		{"suspended sender before blank destination", transfer.TransferRequest{InitiatorID: frozen.ID, Amount: "1"}, domain.ErrSenderSuspended},
		{"balance before blank destination", transfer.TransferRequest{InitiatorID: alice.ID, Amount: "500"}, domain.ErrInsufficientBalance},
		{"note too long", transfer.TransferRequest{InitiatorID: alice.ID, DestinationQuery: bob.Number, Amount: "1", Note: strings.Repeat("n", ledger.MaxNoteLength+1)}, domain.ErrNoteTooLong},
		{"unknown sender", transfer.TransferRequest{InitiatorID: uuid.New(), DestinationQuery: bob.Number, Amount: "1"}, domain.ErrSenderNotFound},
		{"suspended sender", transfer.TransferRequest{InitiatorID: frozen.ID, DestinationQuery: bob.Number, Amount: "1"}, domain.ErrSenderSuspended},
		{"balance before destination", transfer.TransferRequest{InitiatorID: alice.ID, DestinationQuery: "@nobody", Amount: "500"}, domain.ErrInsufficientBalance},
		{"suspended recipient", transfer.TransferRequest{InitiatorID: alice.ID, DestinationQuery: closed.Number, Amount: "1"}, domain.ErrRecipientSuspended},
		{"self by number", transfer.TransferRequest{InitiatorID: alice.ID, DestinationQuery: alice.Number, Amount: "1"}, domain.ErrSelfTransfer},
		{"self by email", transfer.TransferRequest{InitiatorID: alice.ID, DestinationQuery: "Alice@Example.com", Amount: "1"}, domain.ErrSelfTransfer},
	}
	t.Cleanup(func() {
		assert.Equal(t, "100.00", f.balance(t, alice.ID))
		assert.Equal(t, "100.00", f.balance(t, frozen.ID))
		assert.Empty(t, f.history(t, alice))
	})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := engine.Transfer(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConcurrentDebits_NeverOverdraw(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.open(t, "alice", "100")
	bob := f.open(t, "bob", "")
	engine := transfer.New(f.uow, discard)

	const attempts = 50
	var ok, insufficient atomic.Int32
	var g errgroup.Group
	for i := range attempts {
		g.Go(func() error {
			var err error
			if i%2 == 0 {
				_, err = engine.Withdraw(context.Background(), transfer.WithdrawRequest{InitiatorID: alice.ID, Amount: "10"})
			} else {
				_, err = engine.Transfer(context.Background(), transfer.TransferRequest{
					InitiatorID: alice.ID, DestinationQuery: bob.Number, Amount: "10",
				})
			}
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientBalance):
				insufficient.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(10), ok.Load())
	assert.Equal(t, int32(attempts-10), insufficient.Load())
	assert.Equal(t, "0.00", f.balance(t, alice.ID))
	assert.Len(t, f.history(t, alice), 10)
}

func TestConcurrentTransfers_ConserveMoney(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.open(t, "alice", "50")
	bob := f.open(t, "bob", "50")
	engine := transfer.New(f.uow, discard)

	var g errgroup.Group
	for i := range 40 {
		from, to := alice, bob
		if i%2 == 1 {
			from, to = bob, alice
		}
		g.Go(func() error {
			_, err := engine.Transfer(context.Background(), transfer.TransferRequest{
				InitiatorID: from.ID, DestinationQuery: to.Number, Amount: "7.25",
			})
			if err != nil && !errors.Is(err, domain.ErrInsufficientBalance) {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	a, err := money.Parse(f.balance(t, alice.ID))
	require.NoError(t, err)
	b, err := money.Parse(f.balance(t, bob.ID))
	require.NoError(t, err)
	assert.Equal(t, "100.00", (a + b).String())
	assert.GreaterOrEqual(t, int64(a), int64(0))
	assert.GreaterOrEqual(t, int64(b), int64(0))
}

func TestIdempotentReplay(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.open(t, "alice", "100")
	bob := f.open(t, "bob", "")
	carol := f.open(t, "carol", "")
	engine := transfer.New(f.uow, discard,
		transfer.WithIdempotencyCache(infracache.NewMemoryIdempotencyCache(), time.Hour))
	ctx := context.Background()
	req := transfer.TransferRequest{
		InitiatorID: alice.ID, DestinationQuery: bob.Number, Amount: "10", IdempotencyKey: "k-1",
	}

	first, err := engine.Transfer(ctx, req)
	require.NoError(t, err)
	second, err := engine.Transfer(ctx, req)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)
	assert.Equal(t, "90.00", f.balance(t, alice.ID))
	assert.Equal(t, "90.00", second.Balance.String())
	assert.Len(t, f.history(t, alice), 1)

	// the same payee typed another way is still the same request
	byEmail := req
	byEmail.DestinationQuery = " BOB@example.com "
	again, err := engine.Transfer(ctx, byEmail)
	require.NoError(t, err)
	assert.True(t, again.Replayed)

	changed := map[string]func(r *transfer.TransferRequest){
		"amount":      func(r *transfer.TransferRequest) { r.Amount = "11" },
		"destination": func(r *transfer.TransferRequest) { r.DestinationQuery = carol.Number },
		"off-platform": func(r *transfer.TransferRequest) {
			r.DestinationQuery, r.RecipientName = "@carol-tag", "Carol"
		},
		"note": func(r *transfer.TransferRequest) { r.Note = "rent" },
	}
	for name, mutate := range changed {
		r := req
		mutate(&r)
		_, err = engine.Transfer(ctx, r)
		assert.ErrorIs(t, err, domain.ErrIdempotencyKeyReused, name)
	}
	assert.Equal(t, "0.00", f.balance(t, carol.ID))
	assert.Equal(t, "10.00", f.balance(t, bob.ID))

	_, err = engine.Withdraw(ctx, transfer.WithdrawRequest{InitiatorID: alice.ID, Amount: "10", IdempotencyKey: "k-1"})
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyReused)

	// keys are scoped to the initiator
	_, err = engine.Withdraw(ctx, transfer.WithdrawRequest{InitiatorID: bob.ID, Amount: "10", IdempotencyKey: "k-1"})
	require.NoError(t, err)
}

func TestCommittedMovementsArePublished(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.open(t, "alice", "100")
	bob := f.open(t, "bob", "")
	bus := infraeventbus.NewWithMemory(discard)
	engine := transfer.New(f.uow, discard, transfer.WithEventBus(bus))
	ctx := context.Background()

	req := transfer.TransferRequest{InitiatorID: alice.ID, DestinationQuery: bob.Number, Amount: "10", IdempotencyKey: "k"}
	res, err := engine.Transfer(ctx, req)
	require.NoError(t, err)
	_, err = engine.Transfer(ctx, req)
	require.NoError(t, err)
	_, err = engine.Withdraw(ctx, transfer.WithdrawRequest{InitiatorID: alice.ID, Amount: "500"})
	require.Error(t, err)
	_, err = engine.Withdraw(ctx, transfer.WithdrawRequest{InitiatorID: alice.ID, Amount: "5"})
	require.NoError(t, err)

	published := bus.Published()
	require.Len(t, published, 2, "replays and failures publish nothing")
	first := published[0].(*ledger.EntryRecorded)
	assert.Equal(t, res.Entry.ID, first.EntryID)
	assert.Equal(t, alice.ID, first.OwnerID)
	require.NotNil(t, first.DestinationNumber)
	assert.Equal(t, bob.Number, *first.DestinationNumber)
	assert.Equal(t, "90.00", first.OwnerBalance.String())

	second := published[1].(*ledger.EntryRecorded)
	assert.Equal(t, ledger.KindWithdrawal, second.Kind)
	assert.Equal(t, "85.00", second.OwnerBalance.String())
}

func TestIdempotentReplay_ConcurrentSameKey(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.open(t, "alice", "100")
	engine := transfer.New(f.uow, discard)

	const n = 20
	ids := make([]uuid.UUID, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			res, err := engine.Withdraw(context.Background(), transfer.WithdrawRequest{
				InitiatorID: alice.ID, Amount: "10", IdempotencyKey: "same",
			})
			if err != nil {
				return err
			}
			ids[i] = res.Entry.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())
	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, "90.00", f.balance(t, alice.ID))
	assert.Len(t, f.history(t, alice), 1)
}

func TestIdempotentReplay_RetryOfFullBalanceDebit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.open(t, "alice", "100")
	engine := transfer.New(slowUoW{UnitOfWork: f.uow, delay: 20 * time.Millisecond}, discard)

	// every retry finds the balance spent, but by the request that owns the key
	const n = 4
	var g errgroup.Group
	for range n {
		g.Go(func() error {
			_, err := engine.Withdraw(context.Background(), transfer.WithdrawRequest{
				InitiatorID: alice.ID, Amount: "100", IdempotencyKey: "same",
			})
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, "0.00", f.balance(t, alice.ID))
	assert.Len(t, f.history(t, alice), 1)

	// a fresh key still sees the empty balance
	_, err := engine.Withdraw(context.Background(), transfer.WithdrawRequest{
		InitiatorID: alice.ID, Amount: "100", IdempotencyKey: "other",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestIdempotency_CacheFailureFallsBackToLedger(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.open(t, "alice", "100")
	c := &MockIdempotencyCache{}
	c.On("Get", mock.Anything, alice.ID, "k").Return(nil, errors.New("redis down"))
	c.On("Set", mock.Anything, alice.ID, "k", mock.AnythingOfType("cache.Record"), time.Minute).
		Return(errors.New("redis down"))
	engine := transfer.New(f.uow, discard, transfer.WithIdempotencyCache(c, time.Minute))
	req := transfer.WithdrawRequest{InitiatorID: alice.ID, Amount: "5", IdempotencyKey: "k"}

	first, err := engine.Withdraw(context.Background(), req)
	require.NoError(t, err)
	second, err := engine.Withdraw(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)
	assert.Equal(t, "95.00", f.balance(t, alice.ID))
	c.AssertNumberOfCalls(t, "Get", 2)
	c.AssertExpectations(t)
}

func TestIdempotency_CacheHitSkipsLedgerKeyLookup(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.open(t, "alice", "100")
	engine := transfer.New(f.uow, discard)
	done, err := engine.Withdraw(context.Background(), transfer.WithdrawRequest{InitiatorID: alice.ID, Amount: "5"})
	require.NoError(t, err)

	// the remembered entry was written without a key, so only the cache can find it
	c := &MockIdempotencyCache{}
	c.On("Get", mock.Anything, alice.ID, "cached").
		Return(&cache.Record{EntryID: done.Entry.ID, CreatedAt: done.Entry.CreatedAt}, nil)
	c.On("Set", mock.Anything, alice.ID, "cached", mock.Anything, mock.Anything).Return(nil)
	engine = transfer.New(f.uow, discard, transfer.WithIdempotencyCache(c, 0))

	res, err := engine.Withdraw(context.Background(), transfer.WithdrawRequest{
		InitiatorID: alice.ID, Amount: "5", IdempotencyKey: "cached",
	})
	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Equal(t, done.Entry.ID, res.Entry.ID)
	assert.Equal(t, "95.00", f.balance(t, alice.ID))
}

func TestTransfer_DeadlineIsTransient(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.open(t, "alice", "100")
	engine := transfer.New(f.uow, discard, transfer.WithOperationTimeout(time.Nanosecond))

	_, err := engine.Withdraw(context.Background(), transfer.WithdrawRequest{InitiatorID: alice.ID, Amount: "5"})
	assert.Equal(t, domain.KindTransientStore, domain.KindOf(err))
	assert.Equal(t, "100.00", f.balance(t, alice.ID))
}

func TestTransfer_CanceledContext(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.open(t, "alice", "100")
	bob := f.open(t, "bob", "")
	engine := transfer.New(f.uow, discard)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Transfer(ctx, transfer.TransferRequest{
		InitiatorID: alice.ID, DestinationQuery: bob.Number, Amount: "5",
	})
	assert.Equal(t, domain.KindTransientStore, domain.KindOf(err))
	assert.Equal(t, "100.00", f.balance(t, alice.ID))
}

func TestClockStampsEntries(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	alice := f.open(t, "alice", "100")
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := transfer.New(f.uow, discard, transfer.WithClock(func() time.Time { return at }))

	res, err := engine.Withdraw(context.Background(), transfer.WithdrawRequest{InitiatorID: alice.ID, Amount: "1"})
	require.NoError(t, err)
	assert.Equal(t, at, res.Entry.CreatedAt)
}
