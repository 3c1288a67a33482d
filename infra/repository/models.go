package repository

import (
	"time"

	"github.com/amirasaad/cashfake/pkg/domain/account"
	"github.com/amirasaad/cashfake/pkg/domain/ledger"
	"github.com/amirasaad/cashfake/pkg/money"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	indexAccountsNumber    = "idx_accounts_number"
	indexAccountsEmail     = "idx_accounts_email"
	indexLedgerIdempotency = "idx_ledger_idempotency"
)

// Account is the GORM model of account.Account.
type Account struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName      string    `gorm:"size:255;not null"`
	Email         string    `gorm:"size:255;not null;uniqueIndex:idx_accounts_email"`
	PasswordHash  string    `gorm:"not null"`
	Number        string    `gorm:"size:10;not null;uniqueIndex:idx_accounts_number"`
	RoutingNumber int       `gorm:"not null"`
	Balance       int64     `gorm:"not null;check:chk_accounts_balance_non_negative,balance >= 0"`
	Suspended     bool      `gorm:"not null;index"`
	CreatedAt     time.Time `gorm:"not null;index"`
	UpdatedAt     time.Time
}

func (Account) TableName() string { return "accounts" }

// LedgerEntry is the GORM model of ledger.Entry. Rows are never updated or deleted.
type LedgerEntry struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind              string    `gorm:"size:16;not null"`
	OwnerID           uuid.UUID `gorm:"type:uuid;not null;index:idx_ledger_owner;uniqueIndex:idx_ledger_idempotency,priority:1"`
	SourceNumber      string    `gorm:"size:10;not null"`
	DestinationNumber *string   `gorm:"size:10;index:idx_ledger_destination"`
	DestinationLabel  string    `gorm:"size:255;not null"`
	RecipientName     *string   `gorm:"size:255"`
	Amount            int64     `gorm:"not null;check:chk_ledger_amount_positive,amount > 0"`
	Note              string    `gorm:"size:1024"`
	SenderName        string    `gorm:"size:255"`
	CounterpartyName  string    `gorm:"size:255"`
	IdempotencyKey    *string   `gorm:"size:128;uniqueIndex:idx_ledger_idempotency,priority:2"`
	CreatedAt         time.Time `gorm:"not null;index"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Account{}, &LedgerEntry{})
}

func accountModel(a *account.Account) *Account {
	return &Account{
		ID:            a.ID,
		FullName:      a.FullName,
		Email:         account.NormalizeEmail(a.Email),
		PasswordHash:  a.PasswordHash,
		Number:        a.Number,
		RoutingNumber: a.RoutingNumber,
		Balance:       int64(a.Balance),
		Suspended:     a.Suspended,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func (m *Account) toDomain() *account.Account {
	return &account.Account{
		ID:            m.ID,
		FullName:      m.FullName,
		Email:         m.Email,
		PasswordHash:  m.PasswordHash,
		Number:        m.Number,
		RoutingNumber: m.RoutingNumber,
		Balance:       money.Amount(m.Balance),
		Suspended:     m.Suspended,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func entryModel(e *ledger.Entry) *LedgerEntry {
	return &LedgerEntry{
		ID:                e.ID,
		Kind:              string(e.Kind),
		OwnerID:           e.OwnerID,
		SourceNumber:      e.SourceNumber,
		DestinationNumber: e.DestinationNumber,
		DestinationLabel:  e.DestinationLabel,
		RecipientName:     e.RecipientName,
		Amount:            int64(e.Amount),
		Note:              e.Note,
		SenderName:        e.SenderName,
		CounterpartyName:  e.CounterpartyName,
		IdempotencyKey:    e.IdempotencyKey,
		CreatedAt:         e.CreatedAt,
	}
}

func (m *LedgerEntry) toDomain() *ledger.Entry {
	return &ledger.Entry{
		ID:                m.ID,
		Kind:              ledger.Kind(m.Kind),
		OwnerID:           m.OwnerID,
		SourceNumber:      m.SourceNumber,
		DestinationNumber: m.DestinationNumber,
		DestinationLabel:  m.DestinationLabel,
		RecipientName:     m.RecipientName,
		Amount:            money.Amount(m.Amount),
		Note:              m.Note,
		SenderName:        m.SenderName,
		CounterpartyName:  m.CounterpartyName,
		IdempotencyKey:    m.IdempotencyKey,
		CreatedAt:         m.CreatedAt,
	}
}
