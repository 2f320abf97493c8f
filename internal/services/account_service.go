package services

import (
	"context"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// AccountStore is the persistence surface for account management.
type AccountStore interface {
	CreateAccount(ctx context.Context, a core.Account) error
	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
}

// AccountService manages bank accounts.
type AccountService struct {
	store AccountStore
}

func NewAccountService(store AccountStore) *AccountService {
	return &AccountService{store: store}
}

// Create registers a new account for the user.
func (s *AccountService) Create(ctx context.Context, userID, name string, accountType core.AccountType) (core.Account, error) {
	a := core.Account{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
		Type:   accountType,
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, core.WrapError(core.CodeValidationFailed, err, "account %q", name)
	}
	if err := s.store.CreateAccount(ctx, a); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

// List returns the user's accounts.
func (s *AccountService) List(ctx context.Context, userID string) ([]core.Account, error) {
	return s.store.ListAccounts(ctx, userID)
}
