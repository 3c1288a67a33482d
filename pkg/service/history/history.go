// Package history assembles the read-only transaction views of an account.
package history

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"time"

	"github.com/amirasaad/cashfake/pkg/domain"
	"github.com/amirasaad/cashfake/pkg/domain/account"
	"github.com/amirasaad/cashfake/pkg/domain/ledger"
	"github.com/amirasaad/cashfake/pkg/money"
	"github.com/amirasaad/cashfake/pkg/repository"
	"github.com/google/uuid"
)

const (
	// DefaultRecentLimit is the number of recent counterparties returned by default.
	DefaultRecentLimit = 5
	minRecentWindow    = 10
)

// EntryView is one row of an account's history.
type EntryView struct {
	ID              uuid.UUID    `json:"id"`
	Kind            ledger.Kind  `json:"type"`
	SenderNumber    string       `json:"senderAccountNumber"`
	RecipientNumber string       `json:"recipientAccountNumber"`
	SenderName      string       `json:"senderName"`
	RecipientName   string       `json:"recipientName"`
	Amount          money.Amount `json:"amount"`
	Note            string       `json:"note"`
	CreatedAt       time.Time    `json:"timestamp"`
	// IsSent is true when the viewing account initiated the entry.
	IsSent bool `json:"isSent"`
}

// Counterparty is someone the account recently paid.
type Counterparty struct {
	Name string `json:"name"`
	// AccountNumber is set for on-platform counterparties only.
	AccountNumber *string `json:"accNo"`
	// Query is what the account typed to reach the counterparty.
	Query string `json:"query"`
}

// Service reads the ledger and never writes.
type Service struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

func New(uow repository.UnitOfWork, logger *slog.Logger) *Service {
	return &Service{uow: uow, logger: logger}
}

// History returns every entry the account owns or received, newest first with ties
// broken by id. Entries are read once, at call time; names missing from an entry are
// looked up while the sequence is consumed.
func (s *Service) History(ctx context.Context, accountID uuid.UUID) (iter.Seq2[EntryView, error], error) {
	accounts, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	entries, err := s.uow.LedgerRepository()
	if err != nil {
		return nil, err
	}
	me, err := accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	snapshot, err := entries.QueryByParticipant(ctx, me.ID, me.Number)
	if err != nil {
		return nil, err
	}
	ledger.SortNewestFirst(snapshot)
	s.logger.Debug("History read", "accountID", accountID, "entries", len(snapshot))

	names := &nameCache{ctx: ctx, accounts: accounts, byID: map[uuid.UUID]string{}, byNumber: map[string]string{}}
	return func(yield func(EntryView, error) bool) {
		for _, e := range snapshot {
			view, err := render(e, me, names)
			if err != nil {
				yield(EntryView{}, err)
				return
			}
			if !yield(view, nil) {
				return
			}
		}
	}, nil
}

// Collect materialises a history sequence, stopping at the first error.
func Collect(seq iter.Seq2[EntryView, error]) ([]EntryView, error) {
	views := []EntryView{}
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func render(e *ledger.Entry, me *account.Account, names *nameCache) (EntryView, error) {
	v := EntryView{
		ID:              e.ID,
		Kind:            e.Kind,
		SenderNumber:    e.SourceNumber,
		RecipientNumber: e.DestinationLabel,
		Amount:          e.Amount,
		Note:            e.Note,
		CreatedAt:       e.CreatedAt,
		IsSent:          e.OwnerID == me.ID,
	}
	var err error
	switch {
	case e.Kind == ledger.KindWithdrawal:
		v.SenderName = firstNonEmpty(e.SenderName, me.FullName)
		v.RecipientName = ledger.BankName
		if v.Note == "" {
			v.Note = ledger.WithdrawalNote
		}
	case v.IsSent:
		v.SenderName = firstNonEmpty(e.SenderName, me.FullName)
		v.RecipientName = e.CounterpartyName
		if v.RecipientName == "" && e.RecipientName != nil {
			v.RecipientName = *e.RecipientName
		}
		if v.RecipientName == "" && e.DestinationNumber != nil {
			if v.RecipientName, err = names.number(*e.DestinationNumber); err != nil {
				return EntryView{}, err
			}
		}
	default:
		v.RecipientName = firstNonEmpty(e.CounterpartyName, me.FullName)
		v.SenderName = e.SenderName
		if v.SenderName == "" {
			if v.SenderName, err = names.id(e.OwnerID); err != nil {
				return EntryView{}, err
			}
		}
	}
	if v.RecipientName == "" {
		v.RecipientName = ledger.UnknownName
	}
	return v, nil
}

// RecentCounterparties returns up to limit distinct recipients of the account's latest
// transfers, most recent first. A non-positive limit means DefaultRecentLimit.
func (s *Service) RecentCounterparties(ctx context.Context, accountID uuid.UUID, limit int) ([]Counterparty, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	accounts, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	entries, err := s.uow.LedgerRepository()
	if err != nil {
		return nil, err
	}
	if _, err := accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	recent, err := entries.ListByOwner(ctx, accountID, ledger.KindTransfer, max(minRecentWindow, 2*limit))
	if err != nil {
		return nil, err
	}
	ledger.SortNewestFirst(recent)

	names := &nameCache{ctx: ctx, accounts: accounts, byID: map[uuid.UUID]string{}, byNumber: map[string]string{}}
	seen := make(map[string]bool)
	out := make([]Counterparty, 0, limit)
	for _, e := range recent {
		if len(out) == limit {
			break
		}
		var key string
		switch {
		case e.DestinationNumber != nil:
			key = "number:" + *e.DestinationNumber
		case e.RecipientName != nil:
			key = "name:" + *e.RecipientName
		default:
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		c := Counterparty{Name: e.CounterpartyName, Query: e.DestinationLabel}
		if e.DestinationNumber != nil {
			number := *e.DestinationNumber
			c.AccountNumber = &number
			current, err := names.number(number)
			if err != nil {
				return nil, err
			}
			if current != ledger.UnknownName {
				c.Name = current
			}
		} else if c.Name == "" {
			c.Name = *e.RecipientName
		}
		if c.Name == "" {
			c.Name = ledger.UnknownName
		}
		out = append(out, c)
	}
	return out, nil
}

// nameCache resolves display names once per call. Accounts that no longer resolve are
// reported as ledger.UnknownName.
type nameCache struct {
	ctx      context.Context
	accounts repository.AccountRepository
	byID     map[uuid.UUID]string
	byNumber map[string]string
}

func (n *nameCache) id(id uuid.UUID) (string, error) {
	if name, ok := n.byID[id]; ok {
		return name, nil
	}
	a, err := n.accounts.Get(n.ctx, id)
	name, err := nameOf(a, err)
	if err != nil {
		return "", err
	}
	n.byID[id] = name
	return name, nil
}

func (n *nameCache) number(number string) (string, error) {
	if name, ok := n.byNumber[number]; ok {
		return name, nil
	}
	a, err := n.accounts.GetByNumber(n.ctx, number)
	name, err := nameOf(a, err)
	if err != nil {
		return "", err
	}
	n.byNumber[number] = name
	return name, nil
}

func nameOf(a *account.Account, err error) (string, error) {
	if errors.Is(err, domain.ErrAccountNotFound) {
		return ledger.UnknownName, nil
	}
	if err != nil {
		return "", err
	}
	return firstNonEmpty(a.FullName, ledger.UnknownName), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
