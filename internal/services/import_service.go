// Package services orchestrates the domain engines over storage and
// messaging.
package services

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"fintrack/internal/chase"
	"fintrack/internal/core"
	"fintrack/internal/importer"
	"fintrack/internal/match"
)

// ImportStore is the persistence surface the import flow needs.
type ImportStore interface {
	importer.TransactionSource
	GetAccount(ctx context.Context, id string) (core.Account, error)
	InsertTransactions(ctx context.Context, txs []core.Transaction) error
	ListBusinesses(ctx context.Context) ([]core.Business, error)
}

// ImportEventPublisher announces completed imports to interested workers.
type ImportEventPublisher interface {
	PublishImportCompleted(ctx context.Context, accountID string, newTransactions int) error
}

// ImportResult is the summary returned to the uploader.
type ImportResult struct {
	Parsed                    int `json:"parsed"`
	Unposted                  int `json:"unposted"`
	NewTransactions           int `json:"newTransactions"`
	Duplicates                int `json:"duplicates"`
	BusinessRecognized        int `json:"businessRecognized"`
	MultipleBusinessesMatched int `json:"multipleBusinessesMatched"`
	Unrecognized              int `json:"unrecognized"`
}

// ImportService runs the CSV upload pipeline: parse, deduplicate, recognize
// merchants, persist, announce.
type ImportService struct {
	store     ImportStore
	importer  *importer.Importer
	publisher ImportEventPublisher
}

func NewImportService(store ImportStore, publisher ImportEventPublisher) *ImportService {
	return &ImportService{
		store:     store,
		importer:  importer.New(store),
		publisher: publisher,
	}
}

// ImportTransactionsFromCSV ingests a Chase CSV export into the account.
// The business catalog is snapshotted once per call so every transaction in
// the batch is matched against the same rule set.
func (s *ImportService) ImportTransactionsFromCSV(ctx context.Context, accountID string, csv io.Reader) (*ImportResult, error) {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	statement, err := chase.Parse(csv)
	if err != nil {
		return nil, err
	}

	pending := make([]core.Transaction, 0, len(statement.Transactions))
	for _, origin := range statement.Transactions {
		pending = append(pending, core.Transaction{
			ID:        uuid.NewString(),
			AccountID: accountID,
			Origin:    origin,
		})
	}

	merged, err := s.importer.MergeWithExisting(ctx, accountID, pending)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		Parsed:          merged.Parsed,
		Unposted:        merged.Unposted,
		NewTransactions: len(merged.New),
		Duplicates:      merged.Duplicates,
	}

	if len(merged.New) == 0 {
		slog.InfoContext(ctx, "Import produced no new transactions",
			"account_id", accountID, "parsed", merged.Parsed)
		return result, nil
	}

	businesses, err := s.store.ListBusinesses(ctx)
	if err != nil {
		return nil, core.WrapError(core.CodeDatabaseFailure, err, "loading business catalog")
	}

	for i := range merged.New {
		match.Apply(&merged.New[i], businesses)
		switch {
		case merged.New[i].ProcessingStatus.Recognized():
			result.BusinessRecognized++
		case merged.New[i].ProcessingStatus.Multiple():
			result.MultipleBusinessesMatched++
		default:
			result.Unrecognized++
		}
	}

	if err := s.store.InsertTransactions(ctx, merged.New); err != nil {
		return nil, core.WrapError(core.CodeDatabaseFailure, err, "persisting imported transactions")
	}

	if s.publisher != nil {
		if err := s.publisher.PublishImportCompleted(ctx, accountID, len(merged.New)); err != nil {
			// The import itself succeeded; the worker will pick the
			// transactions up on its next periodic pass.
			slog.ErrorContext(ctx, "Failed to publish import event",
				"account_id", accountID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Import completed",
		"account_id", accountID,
		"parsed", result.Parsed,
		"new", result.NewTransactions,
		"duplicates", result.Duplicates,
		"recognized", result.BusinessRecognized)

	return result, nil
}
