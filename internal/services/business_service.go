package services

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/match"
	"fintrack/internal/storage"
)

// BusinessStore is the persistence surface for merchant management.
type BusinessStore interface {
	CreateBusiness(ctx context.Context, b core.Business) error
	GetBusiness(ctx context.Context, id string) (core.Business, error)
	UpdateBusinessRules(ctx context.Context, id string, regexps []string) error
	ListBusinesses(ctx context.Context) ([]core.Business, error)
	ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, update storage.TransactionUpdate) error
}

// BusinessService manages the merchant catalog and bulk recognition.
type BusinessService struct {
	store BusinessStore
}

func NewBusinessService(store BusinessStore) *BusinessService {
	return &BusinessService{store: store}
}

// Create registers a new business with an initial rule set.
func (s *BusinessService) Create(ctx context.Context, name, defaultCategoryID string, regexps []string) (core.Business, error) {
	b := core.Business{
		ID:                uuid.NewString(),
		Name:              name,
		DefaultCategoryID: defaultCategoryID,
		Regexps:           core.NormalizeRules(regexps),
	}
	if err := b.Validate(); err != nil {
		return core.Business{}, core.WrapError(core.CodeInvalidPattern, err, "business %q", name)
	}
	if err := s.store.CreateBusiness(ctx, b); err != nil {
		return core.Business{}, err
	}
	return b, nil
}

// AddRule appends one pattern to a business's rule set. Empty patterns and
// patterns already present are ignored; malformed patterns fail fast.
func (s *BusinessService) AddRule(ctx context.Context, businessID, pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return core.WrapError(core.CodeMissingField, core.ErrEmptyPattern, "business %q", businessID)
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return core.WrapError(core.CodeInvalidPattern, err, "pattern %q", pattern)
	}

	b, err := s.store.GetBusiness(ctx, businessID)
	if err != nil {
		return err
	}
	rules := core.NormalizeRules(append(b.Regexps, pattern))
	if len(rules) == len(b.Regexps) {
		// Already present.
		return nil
	}
	return s.store.UpdateBusinessRules(ctx, businessID, rules)
}

// Recognize runs the bulk merchant pass: every currently-unrecognized
// transaction is matched against the catalog, and the first matching
// business claims it. Updated transactions are returned.
func (s *BusinessService) Recognize(ctx context.Context) ([]core.Transaction, error) {
	businesses, err := s.store.ListBusinesses(ctx)
	if err != nil {
		return nil, core.WrapError(core.CodeDatabaseFailure, err, "loading business catalog")
	}

	unrecognized, err := s.store.ListTransactions(ctx, storage.TransactionFilter{Unrecognized: true})
	if err != nil {
		return nil, core.WrapError(core.CodeDatabaseFailure, err, "loading unrecognized transactions")
	}

	var updated []core.Transaction
	for _, tx := range unrecognized {
		business, ok := match.Recognize(tx.EffectiveDescription(), businesses)
		if !ok {
			continue
		}

		tx.BusinessID = business.ID
		tx.ProcessingStatus = core.ProcessingMerchantRecognized
		if tx.CategoryID == "" {
			tx.CategoryID = business.DefaultCategoryID
		}

		err := s.store.UpdateTransaction(ctx, tx.ID, storage.TransactionUpdate{
			BusinessID:       &tx.BusinessID,
			CategoryID:       &tx.CategoryID,
			ProcessingStatus: &tx.ProcessingStatus,
		})
		if err != nil {
			return nil, core.WrapError(core.CodeDatabaseFailure, err, "updating transaction %q", tx.ID)
		}
		updated = append(updated, tx)
	}

	slog.InfoContext(ctx, "Bulk recognition completed",
		"candidates", len(unrecognized), "recognized", len(updated))
	return updated, nil
}
