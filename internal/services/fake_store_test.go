package services

import (
	"context"
	"sort"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// fakeStore is an in-memory stand-in for the SQLite repository, implementing
// every store interface the services consume.
type fakeStore struct {
	accounts     map[string]core.Account
	categories   map[string]core.Category
	businesses   map[string]core.Business
	businessSeq  []string
	transactions map[string]core.Transaction

	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:     make(map[string]core.Account),
		categories:   make(map[string]core.Category),
		businesses:   make(map[string]core.Business),
		transactions: make(map[string]core.Transaction),
	}
}

func (f *fakeStore) GetAccount(_ context.Context, id string) (core.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return core.Account{}, core.NewError(core.CodeAccountNotFound, "account %q", id)
	}
	return a, nil
}

func (f *fakeStore) CreateAccount(_ context.Context, a core.Account) error {
	f.accounts[a.ID] = a
	return nil
}

func (f *fakeStore) ListAccounts(_ context.Context, userID string) ([]core.Account, error) {
	var out []core.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) RecentPosted(_ context.Context, accountID string, limit int) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range f.transactions {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].Origin.PostingDate.After(out[b].Origin.PostingDate.Time)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) InsertTransactions(_ context.Context, txs []core.Transaction) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, t := range txs {
		f.transactions[t.ID] = t
	}
	return nil
}

func (f *fakeStore) ListTransactions(_ context.Context, filter storage.TransactionFilter) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range f.transactions {
		if filter.AccountID != "" && t.AccountID != filter.AccountID {
			continue
		}
		if !filter.From.IsEmpty() && t.Origin.PostingDate.Before(filter.From.Time) {
			continue
		}
		if !filter.To.IsEmpty() && t.Origin.PostingDate.After(filter.To.Time) {
			continue
		}
		if filter.Unrecognized && (!t.ProcessingStatus.Unrecognized() || t.BusinessID != "") {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].Origin.PostingDate.After(out[b].Origin.PostingDate.Time)
	})
	return out, nil
}

func (f *fakeStore) UpdateTransaction(_ context.Context, id string, update storage.TransactionUpdate) error {
	t, ok := f.transactions[id]
	if !ok {
		return core.NewError(core.CodeTransactionNotFound, "transaction %q", id)
	}
	if update.CategoryID != nil {
		t.CategoryID = *update.CategoryID
	}
	if update.BusinessID != nil {
		t.BusinessID = *update.BusinessID
	}
	if update.ProcessingStatus != nil {
		t.ProcessingStatus = *update.ProcessingStatus
	}
	if update.TransactionStatus != nil {
		t.TransactionStatus = *update.TransactionStatus
	}
	f.transactions[id] = t
	return nil
}

func (f *fakeStore) CreateBusiness(_ context.Context, b core.Business) error {
	for _, existing := range f.businesses {
		if existing.Name == b.Name {
			return core.NewError(core.CodeDuplicateName, "business %q", b.Name)
		}
	}
	f.businesses[b.ID] = b
	f.businessSeq = append(f.businessSeq, b.ID)
	return nil
}

func (f *fakeStore) GetBusiness(_ context.Context, id string) (core.Business, error) {
	b, ok := f.businesses[id]
	if !ok {
		return core.Business{}, core.NewError(core.CodeBusinessNotFound, "business %q", id)
	}
	return b, nil
}

func (f *fakeStore) UpdateBusinessRules(_ context.Context, id string, regexps []string) error {
	b, ok := f.businesses[id]
	if !ok {
		return core.NewError(core.CodeBusinessNotFound, "business %q", id)
	}
	b.Regexps = regexps
	f.businesses[id] = b
	return nil
}

func (f *fakeStore) ListBusinesses(_ context.Context) ([]core.Business, error) {
	out := make([]core.Business, 0, len(f.businessSeq))
	for _, id := range f.businessSeq {
		out = append(out, f.businesses[id])
	}
	return out, nil
}

func (f *fakeStore) CreateCategory(_ context.Context, c core.Category) error {
	f.categories[c.ID] = c
	return nil
}

func (f *fakeStore) UpdateCategory(_ context.Context, c core.Category) error {
	if _, ok := f.categories[c.ID]; !ok {
		return core.NewError(core.CodeCategoryNotFound, "category %q", c.ID)
	}
	f.categories[c.ID] = c
	return nil
}

func (f *fakeStore) DeleteCategory(_ context.Context, id string) error {
	c, ok := f.categories[id]
	if !ok {
		return core.NewError(core.CodeCategoryNotFound, "category %q", id)
	}
	if c.Type == core.CategoryTypeDefault {
		return core.WrapError(core.CodeValidationFailed, core.ErrDefaultCategory, "category %q", id)
	}
	delete(f.categories, id)
	return nil
}

func (f *fakeStore) GetCategory(_ context.Context, id string) (core.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return core.Category{}, core.NewError(core.CodeCategoryNotFound, "category %q", id)
	}
	return c, nil
}

func (f *fakeStore) ListCategories(_ context.Context, userID string) ([]core.Category, error) {
	var out []core.Category
	for _, c := range f.categories {
		if c.UserID == userID || c.UserID == "" {
			out = append(out, c)
		}
	}
	return out, nil
}

// fakePublisher records import events.
type fakePublisher struct {
	events []string
	err    error
}

func (f *fakePublisher) PublishImportCompleted(_ context.Context, accountID string, _ int) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, accountID)
	return nil
}
