// Package account provides registration, lookup and administration of accounts.
package account

import (
	"context"
	"log/slog"
	"strings"

	"github.com/amirasaad/cashfake/pkg/domain"
	"github.com/amirasaad/cashfake/pkg/domain/account"
	"github.com/amirasaad/cashfake/pkg/repository"
	"github.com/google/uuid"
)

const (
	minPasswordLength = 6
	// DefaultPerPage is the admin listing page size.
	DefaultPerPage = 100
)

// PasswordHasher turns a plain password into an opaque credential.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Service exposes account operations to presentation.
type Service struct {
	uow         repository.UnitOfWork
	resolver    *Resolver
	provisioner *Provisioner
	hasher      PasswordHasher
	logger      *slog.Logger
}

// NewService creates a new account service.
func NewService(
	uow repository.UnitOfWork,
	provisioner *Provisioner,
	hasher PasswordHasher,
	logger *slog.Logger,
) *Service {
	return &Service{
		uow:         uow,
		resolver:    NewResolver(uow),
		provisioner: provisioner,
		hasher:      hasher,
		logger:      logger,
	}
}

// Resolver returns the resolver shared with the transfer engine.
func (s *Service) Resolver() *Resolver { return s.resolver }

// RegisterInput is a registration request.
type RegisterInput struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
}

func (in RegisterInput) validate() error {
	if strings.TrimSpace(in.FullName) == "" || strings.TrimSpace(in.Email) == "" ||
		in.Password == "" || in.ConfirmPassword == "" {
		return domain.ErrFieldsRequired
	}
	if !account.ValidEmail(account.NormalizeEmail(in.Email)) {
		return domain.ErrInvalidEmail
	}
	if len(in.Password) < minPasswordLength {
		return domain.ErrPasswordTooShort
	}
	if in.Password != in.ConfirmPassword {
		return domain.ErrPasswordMismatch
	}
	return nil
}

// Register creates an account with a zero balance and a freshly allocated number.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*account.Account, error) {
	log := s.logger.With("context", "Register", "email", account.NormalizeEmail(in.Email))
	if err := in.validate(); err != nil {
		log.Debug("Registration rejected", "error", err)
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		log.Error("Password hashing failed", "error", err)
		return nil, err
	}
	a, err := s.provisioner.Provision(ctx, func(number string, routing int) (*account.Account, error) {
		return account.New(in.FullName, in.Email, hash, number, routing)
	})
	if err != nil {
		log.Warn("Registration failed", "error", err)
		return nil, err
	}
	return a, nil
}

// GetAccount returns the account view of id.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (account.View, error) {
	accounts, err := s.uow.AccountRepository()
	if err != nil {
		return account.View{}, err
	}
	a, err := accounts.Get(ctx, id)
	if err != nil {
		return account.View{}, err
	}
	return a.View(), nil
}

// LookupResult is the public answer to a destination lookup.
type LookupResult struct {
	Found         bool   `json:"found"`
	Name          string `json:"name,omitempty"`
	AccountNumber string `json:"accNo,omitempty"`
}

// Lookup resolves query for display before a transfer.
func (s *Service) Lookup(ctx context.Context, query string) (LookupResult, error) {
	res, err := s.resolver.Resolve(ctx, query)
	if err != nil {
		return LookupResult{}, err
	}
	if !res.Found {
		return LookupResult{}, nil
	}
	return LookupResult{Found: true, Name: res.Account.FullName, AccountNumber: res.Account.Number}, nil
}

// ListFilter selects an admin listing page. Page is 1-based.
type ListFilter struct {
	Status  string
	Sort    string
	Order   string
	Page    int
	PerPage int
}

// Page is one page of an admin listing.
type Page struct {
	Accounts   []account.View `json:"accounts"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PerPage    int            `json:"perPage"`
	TotalPages int            `json:"totalPages"`
}

// ListAccounts lists accounts for administration.
func (s *Service) ListAccounts(ctx context.Context, f ListFilter) (*Page, error) {
	page := max(f.Page, 1)
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	filter := repository.AccountFilter{
		Status:     repository.StatusAll,
		SortBy:     repository.SortCreatedAt,
		Descending: !strings.EqualFold(f.Order, "asc"),
		Offset:     (page - 1) * perPage,
		Limit:      perPage,
	}
	switch repository.AccountStatus(f.Status) {
	case repository.StatusActive, repository.StatusSuspended:
		filter.Status = repository.AccountStatus(f.Status)
	}
	if repository.AccountSort(f.Sort) == repository.SortFullName {
		filter.SortBy = repository.SortFullName
	}

	accounts, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	list, total, err := accounts.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]account.View, 0, len(list))
	for _, a := range list {
		views = append(views, a.View())
	}
	return &Page{
		Accounts:   views,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: int((total + int64(perPage) - 1) / int64(perPage)),
	}, nil
}

// ToggleSuspension flips the suspension flag of id.
func (s *Service) ToggleSuspension(ctx context.Context, id uuid.UUID) (account.View, error) {
	var view account.View
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		a, err := accounts.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := accounts.SetSuspended(ctx, id, !a.Suspended); err != nil {
			return err
		}
		a.Suspended = !a.Suspended
		view = a.View()
		return nil
	})
	if err != nil {
		return account.View{}, err
	}
	s.logger.Info("Account suspension toggled", "accountID", id, "suspended", view.Suspended)
	return view, nil
}
