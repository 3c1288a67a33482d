// Package transfer moves money between accounts and out to the bank.
//
// Every movement is one unit of work: the debit, the optional credit and the ledger
// append commit together or not at all. The balance pre-check only orders the errors a
// caller sees; the store's conditional delta is what keeps balances non-negative.
package transfer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/amirasaad/cashfake/pkg/cache"
	"github.com/amirasaad/cashfake/pkg/domain"
	"github.com/amirasaad/cashfake/pkg/domain/account"
	"github.com/amirasaad/cashfake/pkg/domain/ledger"
	"github.com/amirasaad/cashfake/pkg/eventbus"
	"github.com/amirasaad/cashfake/pkg/money"
	"github.com/amirasaad/cashfake/pkg/repository"
	accountsvc "github.com/amirasaad/cashfake/pkg/service/account"
	"github.com/google/uuid"
)

const (
	DefaultOperationTimeout = 5 * time.Second
	DefaultIdempotencyTTL   = 24 * time.Hour
)

// TransferRequest asks to move Amount from the initiator to DestinationQuery, an account
// number, an email, or a free-form tag for a payee outside the platform.
type TransferRequest struct {
	InitiatorID      uuid.UUID
	DestinationQuery string
	Amount           string
	Note             string
	// RecipientName is required when DestinationQuery does not resolve.
	RecipientName  string
	IdempotencyKey string
}

// WithdrawRequest asks to move Amount from the initiator to their bank.
type WithdrawRequest struct {
	InitiatorID    uuid.UUID
	Amount         string
	IdempotencyKey string
}

// TransferResult is a completed movement. Balance is the initiator's balance right after
// it; for a replayed request it is the current balance.
type TransferResult struct {
	Entry    *ledger.Entry
	Balance  money.Amount
	Replayed bool
}

// WithdrawResult is a completed withdrawal.
type WithdrawResult = TransferResult

type Option func(*Engine)

// WithIdempotencyCache puts c in front of the ledger's idempotency index.
func WithIdempotencyCache(c cache.IdempotencyCache, ttl time.Duration) Option {
	return func(e *Engine) {
		e.cache = c
		if ttl > 0 {
			e.ttl = ttl
		}
	}
}

// WithOperationTimeout bounds the store calls of one movement.
func WithOperationTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithEventBus publishes a ledger.EntryRecorded event after every committed movement.
// Replays publish nothing.
func WithEventBus(bus eventbus.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithClock replaces the clock stamping ledger entries.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine executes transfers and withdrawals.
type Engine struct {
	uow     repository.UnitOfWork
	cache   cache.IdempotencyCache
	bus     eventbus.Bus
	timeout time.Duration
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// New creates an Engine.
func New(uow repository.UnitOfWork, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		uow:     uow,
		timeout: DefaultOperationTimeout,
		ttl:     DefaultIdempotencyTTL,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transfer debits the initiator and either credits the resolved destination or records
// an off-platform payee.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	log := e.logger.With("context", "Transfer", "initiatorID", req.InitiatorID)
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	query := strings.TrimSpace(req.DestinationQuery)
	note := strings.TrimSpace(req.Note)
	recipient := strings.TrimSpace(req.RecipientName)

	// an earlier entry under the same key must describe the same movement
	matches := func(ctx context.Context, accounts repository.AccountRepository, en *ledger.Entry) (bool, error) {
		if en.Kind != ledger.KindTransfer || en.Amount != amount || en.Note != note || query == "" {
			return false, nil
		}
		if !en.OnPlatform() {
			return en.DestinationLabel == query && en.RecipientName != nil && *en.RecipientName == recipient, nil
		}
		if *en.DestinationNumber == query {
			return true, nil
		}
		resolved, err := accountsvc.ResolveWith(ctx, accounts, query)
		if err != nil {
			return false, err
		}
		return resolved.Found && resolved.Account.Number == *en.DestinationNumber, nil
	}
	res, err := e.execute(ctx, req.InitiatorID, req.IdempotencyKey, matches,
		func(ctx context.Context, accounts repository.AccountRepository) (*ledger.Entry, []delta, error) {
			sender, err := loadSender(ctx, accounts, req.InitiatorID, amount)
			if err != nil {
				return nil, nil, err
			}
			if query == "" {
				return nil, nil, domain.ErrRecipientRequired
			}
			resolved, err := accountsvc.ResolveWith(ctx, accounts, query)
			if err != nil {
				return nil, nil, err
			}
			params := ledger.TransferParams{
				Sender:         sender,
				Label:          query,
				Amount:         amount,
				Note:           note,
				IdempotencyKey: req.IdempotencyKey,
				At:             e.now(),
			}
			deltas := []delta{{id: sender.ID, amount: amount.Neg()}}
			if resolved.Found {
				dest := resolved.Account
				switch {
				case dest.ID == sender.ID:
					return nil, nil, domain.ErrSelfTransfer
				case dest.Suspended:
					return nil, nil, domain.ErrRecipientSuspended
				}
				params.Destination = dest
				deltas = append(deltas, delta{id: dest.ID, amount: amount})
			} else {
				if recipient == "" {
					return nil, nil, domain.ErrRecipientNameRequired
				}
				params.RecipientName = recipient
			}
			entry, err := ledger.NewTransfer(params)
			if err != nil {
				return nil, nil, err
			}
			return entry, deltas, nil
		})
	if err != nil {
		log.Warn("Transfer failed", "error", err)
		return nil, err
	}
	log.Info("Transfer completed",
		"entryID", res.Entry.ID,
		"onPlatform", res.Entry.OnPlatform(),
		"amount", res.Entry.Amount.String(),
		"replayed", res.Replayed,
	)
	return res, nil
}

// Withdraw debits the initiator and records a withdrawal to their bank.
func (e *Engine) Withdraw(ctx context.Context, req WithdrawRequest) (*WithdrawResult, error) {
	log := e.logger.With("context", "Withdraw", "initiatorID", req.InitiatorID)
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	matches := func(_ context.Context, _ repository.AccountRepository, en *ledger.Entry) (bool, error) {
		return en.Kind == ledger.KindWithdrawal && en.Amount == amount, nil
	}
	res, err := e.execute(ctx, req.InitiatorID, req.IdempotencyKey, matches,
		func(ctx context.Context, accounts repository.AccountRepository) (*ledger.Entry, []delta, error) {
			sender, err := loadSender(ctx, accounts, req.InitiatorID, amount)
			if err != nil {
				return nil, nil, err
			}
			entry, err := ledger.NewWithdrawal(sender, amount, req.IdempotencyKey, e.now())
			if err != nil {
				return nil, nil, err
			}
			return entry, []delta{{id: sender.ID, amount: amount.Neg()}}, nil
		})
	if err != nil {
		log.Warn("Withdrawal failed", "error", err)
		return nil, err
	}
	log.Info("Withdrawal completed", "entryID", res.Entry.ID, "amount", res.Entry.Amount.String(), "replayed", res.Replayed)
	return res, nil
}

type delta struct {
	id     uuid.UUID
	amount money.Amount
}

// planFunc validates a movement against the unit's view of the accounts and returns the
// entry to append and the balance changes to apply.
type planFunc func(ctx context.Context, accounts repository.AccountRepository) (*ledger.Entry, []delta, error)

// matchFunc reports whether an entry recorded under the request's idempotency key
// describes the same movement as the request.
type matchFunc func(ctx context.Context, accounts repository.AccountRepository, en *ledger.Entry) (bool, error)

func (e *Engine) execute(
	ctx context.Context,
	initiator uuid.UUID,
	key string,
	matches matchFunc,
	plan planFunc,
) (*TransferResult, error) {
	key = strings.TrimSpace(key)
	if key != "" {
		res, err := e.replay(ctx, initiator, key, matches)
		if err != nil || res != nil {
			return res, err
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var (
		entry    *ledger.Entry
		balance  money.Amount
		replayed *TransferResult
	)
	err := e.uow.Do(opCtx, func(uow repository.UnitOfWork) error {
		accounts, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		entries, err := uow.LedgerRepository()
		if err != nil {
			return err
		}
		if key != "" {
			// a request with the same key may have committed since the lookup above
			if replayed, err = e.recorded(opCtx, accounts, entries, initiator, key, nil, matches); err != nil || replayed != nil {
				return err
			}
		}
		planned, deltas, err := plan(opCtx, accounts)
		if err != nil {
			return err
		}
		if balance, err = applyDeltas(opCtx, accounts, initiator, deltas); err != nil {
			return err
		}
		if err := entries.Append(opCtx, planned); err != nil {
			return err
		}
		entry = planned
		return nil
	})
	if err != nil {
		if key != "" && lostRace(err) {
			res, rerr := e.replay(ctx, initiator, key, matches)
			if rerr != nil {
				return nil, rerr
			}
			if res != nil {
				return res, nil
			}
		}
		return nil, classify(err)
	}
	if replayed != nil {
		e.remember(ctx, initiator, key, replayed.Entry)
		return replayed, nil
	}

	if key != "" {
		e.remember(ctx, initiator, key, entry)
	}
	e.publish(ctx, entry, balance)
	return &TransferResult{Entry: entry.Clone(), Balance: balance}, nil
}

// lostRace reports whether err may come from a concurrent request with the same key that
// committed first: either its entry took the key, or its debit took the balance.
func lostRace(err error) bool {
	if idx, ok := domain.DuplicateIndex(err); ok {
		return idx == ledger.IndexIdempotencyKey
	}
	return errors.Is(err, domain.ErrInsufficientBalance) || errors.Is(err, domain.ErrNegativeBalance)
}

// publish reports a committed entry. The ledger is the record, so a failed emit is only
// logged.
func (e *Engine) publish(ctx context.Context, entry *ledger.Entry, balance money.Amount) {
	if e.bus == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()
	if err := e.bus.Emit(ctx, ledger.NewEntryRecorded(entry, balance)); err != nil {
		e.logger.Warn("Failed to publish ledger event", "entryID", entry.ID, "error", err)
	}
}

// applyDeltas applies the balance changes in account id order, so two opposite
// transfers lock rows in the same order. It returns the initiator's new balance.
func applyDeltas(
	ctx context.Context,
	accounts repository.AccountRepository,
	initiator uuid.UUID,
	deltas []delta,
) (money.Amount, error) {
	slices.SortFunc(deltas, func(a, b delta) int { return bytes.Compare(a.id[:], b.id[:]) })
	var balance money.Amount
	for _, d := range deltas {
		b, err := accounts.ApplyBalanceDelta(ctx, d.id, d.amount)
		if err != nil {
			if d.id == initiator && errors.Is(err, domain.ErrNegativeBalance) {
				return 0, domain.ErrInsufficientBalance.Wrap(err)
			}
			return 0, err
		}
		if d.id == initiator {
			balance = b
		}
	}
	return balance, nil
}

// replay returns the completed movement for (initiator, key), or nil when there is none.
// The cache is consulted first and any cache failure falls through to the ledger.
func (e *Engine) replay(ctx context.Context, initiator uuid.UUID, key string, matches matchFunc) (*TransferResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	accounts, err := e.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	entries, err := e.uow.LedgerRepository()
	if err != nil {
		return nil, err
	}
	var cached *ledger.Entry
	if e.cache != nil {
		rec, err := e.cache.Get(ctx, initiator, key)
		switch {
		case err != nil:
			e.logger.Warn("Idempotency cache unavailable", "error", err)
		case rec != nil:
			if en, err := entries.Get(ctx, rec.EntryID); err == nil && en.OwnerID == initiator {
				cached = en
			}
		}
	}
	res, err := e.recorded(ctx, accounts, entries, initiator, key, cached, matches)
	if err != nil || res == nil {
		return nil, err
	}
	e.remember(ctx, initiator, key, res.Entry)
	return res, nil
}

// recorded looks up the entry for (initiator, key) through the given repositories, unless
// one is already known, and checks it against the request.
func (e *Engine) recorded(
	ctx context.Context,
	accounts repository.AccountRepository,
	entries repository.LedgerRepository,
	initiator uuid.UUID,
	key string,
	entry *ledger.Entry,
	matches matchFunc,
) (*TransferResult, error) {
	if entry == nil {
		en, err := entries.GetByIdempotencyKey(ctx, initiator, key)
		if errors.Is(err, domain.ErrEntryNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, classify(err)
		}
		entry = en
	}
	ok, err := matches(ctx, accounts, entry)
	if err != nil {
		return nil, classify(err)
	}
	if !ok {
		return nil, domain.ErrIdempotencyKeyReused
	}
	owner, err := accounts.Get(ctx, initiator)
	if err != nil {
		return nil, classify(err)
	}
	return &TransferResult{Entry: entry, Balance: owner.Balance, Replayed: true}, nil
}

func (e *Engine) remember(ctx context.Context, initiator uuid.UUID, key string, entry *ledger.Entry) {
	if e.cache == nil {
		return
	}
	rec := cache.Record{EntryID: entry.ID, CreatedAt: entry.CreatedAt}
	if err := e.cache.Set(context.WithoutCancel(ctx), initiator, key, rec, e.ttl); err != nil {
		e.logger.Warn("Idempotency cache write failed", "entryID", entry.ID, "error", err)
	}
}

func loadSender(ctx context.Context, accounts repository.AccountRepository, id uuid.UUID, amount money.Amount) (*account.Account, error) {
	sender, err := accounts.Get(ctx, id)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrSenderNotFound.Wrap(err)
	}
	if err != nil {
		return nil, err
	}
	if sender.Suspended {
		return nil, domain.ErrSenderSuspended
	}
	if sender.Balance < amount {
		return nil, domain.ErrInsufficientBalance
	}
	return sender, nil
}

func parseAmount(s string) (money.Amount, error) {
	amount, err := money.Parse(s)
	if err != nil {
		return 0, domain.ErrInvalidAmount.Wrap(err)
	}
	if !amount.IsPositive() {
		return 0, domain.ErrInvalidAmount
	}
	return amount, nil
}

// classify turns an unclassified context error into a transient store error.
func classify(err error) error {
	if domain.KindOf(err) != domain.KindInternal {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.ErrTransientStore.Wrap(err)
	}
	return err
}
