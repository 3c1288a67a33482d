// Package ledger defines the immutable record of a completed money movement.
package ledger

import (
	"bytes"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/amirasaad/cashfake/pkg/domain"
	"github.com/amirasaad/cashfake/pkg/domain/account"
	"github.com/amirasaad/cashfake/pkg/money"
	"github.com/google/uuid"
)

// Kind of movement.
type Kind string

const (
	KindTransfer   Kind = "Transfer"
	KindWithdrawal Kind = "Withdrawal"
)

// Fixed descriptors for withdrawals and unresolved names.
const (
	BankLabel      = "To Your Bank"
	BankName       = "Your Bank"
	WithdrawalNote = "Withdrawal to bank account"
	UnknownName    = "Unknown"
)

// IndexIdempotencyKey is the unique (owner, idempotency key) index reported on DuplicateKey.
const IndexIdempotencyKey = "idempotency_key"

// MaxNoteLength bounds Note in characters. Both stores hold at least this much.
const MaxNoteLength = 280

// Entry is append-only: stores expose no update or delete for it.
type Entry struct {
	ID      uuid.UUID
	Kind    Kind
	OwnerID uuid.UUID

	SourceNumber string
	// DestinationNumber is set only when the destination is an on-platform account.
	DestinationNumber *string
	// DestinationLabel is what the initiator typed, the resolved number, or BankLabel.
	DestinationLabel string
	// RecipientName is set only for off-platform transfers.
	RecipientName *string

	Amount money.Amount
	Note   string

	SenderName       string
	CounterpartyName string

	IdempotencyKey *string
	CreatedAt      time.Time
}

// TransferParams describes a transfer to record. Destination is nil for off-platform payees.
type TransferParams struct {
	Sender         *account.Account
	Destination    *account.Account
	Label          string
	RecipientName  string
	Amount         money.Amount
	Note           string
	IdempotencyKey string
	At             time.Time
}

// NewTransfer builds a validated Transfer entry with both display names captured.
func NewTransfer(p TransferParams) (*Entry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	e := &Entry{
		ID:               id,
		Kind:             KindTransfer,
		OwnerID:          p.Sender.ID,
		SourceNumber:     p.Sender.Number,
		DestinationLabel: strings.TrimSpace(p.Label),
		Amount:           p.Amount,
		Note:             strings.TrimSpace(p.Note),
		SenderName:       p.Sender.FullName,
		IdempotencyKey:   optional(p.IdempotencyKey),
		CreatedAt:        p.At.UTC(),
	}
	if p.Destination != nil {
		number := p.Destination.Number
		e.DestinationNumber = &number
		e.DestinationLabel = number
		e.CounterpartyName = p.Destination.FullName
	} else {
		e.RecipientName = optional(p.RecipientName)
		if e.RecipientName != nil {
			e.CounterpartyName = *e.RecipientName
		}
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewWithdrawal builds a validated Withdrawal entry.
func NewWithdrawal(owner *account.Account, amount money.Amount, idempotencyKey string, at time.Time) (*Entry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	e := &Entry{
		ID:               id,
		Kind:             KindWithdrawal,
		OwnerID:          owner.ID,
		SourceNumber:     owner.Number,
		DestinationLabel: BankLabel,
		Amount:           amount,
		Note:             WithdrawalNote,
		SenderName:       owner.FullName,
		CounterpartyName: BankName,
		IdempotencyKey:   optional(idempotencyKey),
		CreatedAt:        at.UTC(),
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate enforces the entry invariants stores rely on.
func (e *Entry) Validate() error {
	if !e.Amount.IsPositive() {
		return domain.ErrInvalidEntry.WithField("amount")
	}
	if utf8.RuneCountInString(e.Note) > MaxNoteLength {
		return domain.ErrNoteTooLong
	}
	if e.OwnerID == uuid.Nil || e.SourceNumber == "" {
		return domain.ErrInvalidEntry.WithField("owner")
	}
	switch e.Kind {
	case KindTransfer:
		// exactly one of the two destinations
		if (e.DestinationNumber == nil) == (e.RecipientName == nil) {
			return domain.ErrInvalidEntry.WithField("recipient_account")
		}
		if e.DestinationNumber != nil && *e.DestinationNumber == e.SourceNumber {
			return domain.ErrInvalidEntry.WithField("recipient_account")
		}
	case KindWithdrawal:
		if e.DestinationNumber != nil || e.RecipientName != nil {
			return domain.ErrInvalidEntry.WithField("recipient_account")
		}
	default:
		return domain.ErrInvalidEntry.WithField("kind")
	}
	return nil
}

// OnPlatform reports whether the entry credited another account.
func (e *Entry) OnPlatform() bool { return e.DestinationNumber != nil }

// Clone returns a deep copy.
func (e *Entry) Clone() *Entry {
	c := *e
	c.DestinationNumber = clonePtr(e.DestinationNumber)
	c.RecipientName = clonePtr(e.RecipientName)
	c.IdempotencyKey = clonePtr(e.IdempotencyKey)
	return &c
}

// SortNewestFirst orders entries by CreatedAt descending, ties by ID descending.
func SortNewestFirst(entries []*Entry) {
	slices.SortStableFunc(entries, func(a, b *Entry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(b.ID[:], a.ID[:])
	})
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
