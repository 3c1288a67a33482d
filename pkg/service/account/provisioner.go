package account

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strconv"

	"github.com/amirasaad/cashfake/pkg/domain"
	"github.com/amirasaad/cashfake/pkg/domain/account"
	"github.com/amirasaad/cashfake/pkg/repository"
)

// DefaultMaxAttempts bounds account-number draws per registration.
const DefaultMaxAttempts = 16

// RandomSource draws integers in [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// BuildFunc builds the account to insert around an allocated number.
type BuildFunc func(number string, routing int) (*account.Account, error)

// Provisioner allocates account numbers. Uniqueness is decided by the store's unique
// index at insert time, never by a prior read.
type Provisioner struct {
	uow         repository.UnitOfWork
	rnd         RandomSource
	maxAttempts int
	logger      *slog.Logger
}

// NewProvisioner creates a Provisioner drawing from the global generator.
func NewProvisioner(uow repository.UnitOfWork, maxAttempts int, logger *slog.Logger) *Provisioner {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Provisioner{uow: uow, rnd: globalSource{}, maxAttempts: maxAttempts, logger: logger}
}

// WithRandom replaces the random source. Sources used concurrently must be safe for it.
func (p *Provisioner) WithRandom(src RandomSource) *Provisioner {
	p.rnd = src
	return p
}

// Allocate draws a candidate account number (prefix plus four digits in 1000..9999) and
// a routing number in 100..999.
func (p *Provisioner) Allocate() (string, int) {
	number := account.NumberPrefix + strconv.Itoa(1000+p.rnd.IntN(9000))
	routing := account.MinRouting + p.rnd.IntN(account.MaxRouting-account.MinRouting+1)
	return number, routing
}

// Provision inserts the account built around a fresh number, re-drawing on number
// collisions. Each attempt is its own unit of work. A duplicate email is not retried.
func (p *Provisioner) Provision(ctx context.Context, build BuildFunc) (*account.Account, error) {
	log := p.logger.With("context", "Provision")
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		number, routing := p.Allocate()
		a, err := build(number, routing)
		if err != nil {
			return nil, err
		}
		err = p.uow.Do(ctx, func(uow repository.UnitOfWork) error {
			accounts, err := uow.AccountRepository()
			if err != nil {
				return err
			}
			return accounts.Create(ctx, a)
		})
		if err == nil {
			log.Info("Account provisioned", "accountID", a.ID, "attempt", attempt)
			return a, nil
		}

		index, duplicate := domain.DuplicateIndex(err)
		if !duplicate {
			return nil, err
		}
		switch index {
		case account.IndexNumber:
			log.Debug("Account number collision", "attempt", attempt)
			continue
		case account.IndexEmail:
			return nil, domain.ErrEmailTaken.Wrap(err)
		}
		// the store could not name the index
		taken, lookupErr := p.emailTaken(ctx, a.Email)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if taken {
			return nil, domain.ErrEmailTaken.Wrap(err)
		}
		log.Debug("Unattributed duplicate, retrying", "attempt", attempt)
	}
	log.Warn("Account number allocation exhausted", "attempts", p.maxAttempts)
	return nil, domain.ErrAllocationExhausted
}

func (p *Provisioner) emailTaken(ctx context.Context, email string) (bool, error) {
	accounts, err := p.uow.AccountRepository()
	if err != nil {
		return false, err
	}
	_, err = accounts.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return false, nil
	}
	return err == nil, err
}
