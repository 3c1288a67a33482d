// Package repository declares the storage contracts of the core.
package repository

import (
	"context"

	"github.com/amirasaad/cashfake/pkg/domain/account"
	"github.com/amirasaad/cashfake/pkg/domain/ledger"
	"github.com/amirasaad/cashfake/pkg/money"
	"github.com/google/uuid"
)

// AccountStatus filters admin listings.
type AccountStatus string

const (
	StatusAll       AccountStatus = "all"
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
)

// AccountSort is a sortable column for admin listings.
type AccountSort string

const (
	SortCreatedAt AccountSort = "createdAt"
	SortFullName  AccountSort = "fullName"
)

// AccountFilter selects a page of accounts.
type AccountFilter struct {
	Status     AccountStatus
	SortBy     AccountSort
	Descending bool
	Offset     int
	Limit      int
}

// AccountRepository stores accounts.
//
// Lookups return domain.ErrAccountNotFound when nothing matches. Create returns
// domain.DuplicateKey naming account.IndexNumber or account.IndexEmail on a uniqueness
// violation.
type AccountRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetByNumber(ctx context.Context, number string) (*account.Account, error)
	GetByEmail(ctx context.Context, email string) (*account.Account, error)
	// GetByNumberOrEmail matches query exactly against the account number or the
	// normalized email.
	GetByNumberOrEmail(ctx context.Context, query string) (*account.Account, error)
	Create(ctx context.Context, a *account.Account) error
	// ApplyBalanceDelta adds delta to the balance and returns the new balance. It fails with
	// domain.ErrNegativeBalance, leaving the balance untouched, when the result would be
	// below zero.
	ApplyBalanceDelta(ctx context.Context, id uuid.UUID, delta money.Amount) (money.Amount, error)
	SetSuspended(ctx context.Context, id uuid.UUID, suspended bool) error
	List(ctx context.Context, filter AccountFilter) ([]*account.Account, int64, error)
}

// LedgerRepository is append-only.
type LedgerRepository interface {
	// Append validates and stores e. A repeated (owner, idempotency key) pair fails with
	// domain.DuplicateKey.
	Append(ctx context.Context, e *ledger.Entry) error
	Get(ctx context.Context, id uuid.UUID) (*ledger.Entry, error)
	GetByIdempotencyKey(ctx context.Context, ownerID uuid.UUID, key string) (*ledger.Entry, error)
	// QueryByParticipant returns every entry owned by accountID or crediting number,
	// newest first with ties broken by id, each entry once.
	QueryByParticipant(ctx context.Context, accountID uuid.UUID, number string) ([]*ledger.Entry, error)
	// ListByOwner returns the newest entries of kind owned by ownerID.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, kind ledger.Kind, limit int) ([]*ledger.Entry, error)
}
