// Package account defines the Account aggregate.
package account

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/amirasaad/cashfake/pkg/domain"
	"github.com/amirasaad/cashfake/pkg/money"
	"github.com/google/uuid"
)

const (
	// NumberPrefix is shared by every account number.
	NumberPrefix = "620450"
	// MinRouting and MaxRouting bound the routing number.
	MinRouting = 100
	MaxRouting = 999
)

// Unique indexes reported by stores on DuplicateKey.
const (
	IndexNumber = "number"
	IndexEmail  = "email"
)

var numberPattern = regexp.MustCompile(`^620450\d{4}$`)

// Account is a user's balance-holding record.
type Account struct {
	ID            uuid.UUID
	FullName      string
	Email         string
	PasswordHash  string
	Number        string
	RoutingNumber int
	Balance       money.Amount
	Suspended     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New builds an account with a zero balance.
func New(fullName, email, passwordHash, number string, routing int) (*Account, error) {
	if !ValidNumber(number) {
		return nil, domain.ErrInvalidAccountNumber
	}
	if routing < MinRouting || routing > MaxRouting {
		return nil, domain.ErrInvalidAccountNumber.WithField("routing_number")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Account{
		ID:            id,
		FullName:      strings.TrimSpace(fullName),
		Email:         NormalizeEmail(email),
		PasswordHash:  passwordHash,
		Number:        number,
		RoutingNumber: routing,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ValidNumber reports whether n is a well-formed account number.
func ValidNumber(n string) bool {
	return numberPattern.MatchString(n)
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is a bare address.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Clone returns a copy safe to hand outside a store.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}

// View is the read model exposed to presentation.
type View struct {
	ID            uuid.UUID    `json:"id"`
	FullName      string       `json:"fullName"`
	Email         string       `json:"email"`
	Number        string       `json:"accNo"`
	Balance       money.Amount `json:"balance"`
	RoutingNumber int          `json:"routingNo"`
	Suspended     bool         `json:"isSuspended"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// View projects the account without its credential.
func (a *Account) View() View {
	return View{
		ID:            a.ID,
		FullName:      a.FullName,
		Email:         a.Email,
		Number:        a.Number,
		Balance:       a.Balance,
		RoutingNumber: a.RoutingNumber,
		Suspended:     a.Suspended,
		CreatedAt:     a.CreatedAt,
	}
}
