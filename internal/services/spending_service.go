package services

import (
	"context"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
	"fintrack/internal/spending"
	"fintrack/internal/storage"
)

// SpendingStore is the read surface the reporting flow needs.
type SpendingStore interface {
	ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]core.Transaction, error)
	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
}

// ReportRequest selects the transaction set to aggregate.
type ReportRequest struct {
	UserID               string
	AccountID            string
	From, To             core.Date
	IncludeSubcategories bool
}

// SpendingReport is the combined reporting payload.
type SpendingReport struct {
	Categories          []*spending.Bucket     `json:"categories"`
	SubCategories       []*spending.Bucket     `json:"subCategories,omitempty"`
	SpendingsByMonth    SpendingsByMonth       `json:"spendingsByMonth"`
	SpendingProgression []spending.DayPoint    `json:"spendingProgression"`
	AnnualBalances      []spending.MonthBucket `json:"annualBalances"`
}

// SpendingsByMonth pairs the per-month root buckets with the per-month leaf
// buckets.
type SpendingsByMonth struct {
	Parents []spending.MonthBucket `json:"parents"`
	Subs    []spending.MonthBucket `json:"subs"`
}

// SpendingService builds spending reports.
type SpendingService struct {
	store SpendingStore
	now   func() time.Time
}

func NewSpendingService(store SpendingStore) *SpendingService {
	return &SpendingService{store: store, now: time.Now}
}

// Report aggregates the user's transactions into category totals, monthly
// series, a daily progression, and trailing-year balances. Hidden
// transactions are excluded from every view; balance-excluded transactions
// are additionally excluded from the balance series.
func (s *SpendingService) Report(ctx context.Context, req ReportRequest) (*SpendingReport, error) {
	filter := storage.TransactionFilter{
		AccountID: req.AccountID,
		From:      req.From,
		To:        req.To,
	}
	txs, err := s.store.ListTransactions(ctx, filter)
	if err != nil {
		return nil, core.WrapError(core.CodeDatabaseFailure, err, "loading transactions")
	}

	accounts, err := s.store.ListAccounts(ctx, req.UserID)
	if err != nil {
		return nil, core.WrapError(core.CodeDatabaseFailure, err, "loading accounts")
	}
	accountsByID := make(map[string]core.Account, len(accounts))
	for _, a := range accounts {
		accountsByID[a.ID] = a
	}

	categories, err := s.store.ListCategories(ctx, req.UserID)
	if err != nil {
		return nil, core.WrapError(core.CodeDatabaseFailure, err, "loading categories")
	}
	categoriesByID := make(map[string]core.Category, len(categories))
	for _, c := range categories {
		categoriesByID[c.ID] = c
	}

	visible := make([]core.Transaction, 0, len(txs))
	forBalance := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.TransactionStatus.Hidden() {
			continue
		}
		visible = append(visible, tx)
		if !tx.TransactionStatus.ExcludeFromBalance() {
			forBalance = append(forBalance, tx)
		}
	}

	categorized, err := spending.Categorize(visible, accountsByID, categoriesByID, req.IncludeSubcategories)
	if err != nil {
		return nil, err
	}

	monthlyParents, monthlySubs, err := spending.MonthlyCategorySpending(visible, accountsByID, categoriesByID)
	if err != nil {
		return nil, err
	}

	progression, err := spending.Progression(visible, accountsByID)
	if err != nil {
		return nil, err
	}

	balances, err := spending.MonthlyAccountBalances(forBalance, accountsByID, s.now())
	if err != nil {
		return nil, err
	}

	report := &SpendingReport{
		Categories:          categorized.Parents.Buckets(),
		SpendingsByMonth:    SpendingsByMonth{Parents: monthlyParents, Subs: monthlySubs},
		SpendingProgression: progression,
		AnnualBalances:      balances,
	}
	if req.IncludeSubcategories && categorized.Subs != nil {
		report.SubCategories = categorized.Subs.Buckets()
	}
	return report, nil
}

// MonthlySummaryRows flattens the user's monthly root-category spending into
// export rows, one per (month, category), labeled with the category caption.
func (s *SpendingService) MonthlySummaryRows(ctx context.Context, userID string) ([]sheets.SummaryRow, error) {
	report, err := s.Report(ctx, ReportRequest{UserID: userID})
	if err != nil {
		return nil, err
	}

	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, core.WrapError(core.CodeDatabaseFailure, err, "loading categories")
	}
	captions := make(map[string]string, len(categories))
	for _, c := range categories {
		captions[c.ID] = c.Caption
	}

	rows := make([]sheets.SummaryRow, 0, len(report.SpendingsByMonth.Parents))
	for _, b := range report.SpendingsByMonth.Parents {
		caption := captions[b.CategoryID]
		if caption == "" {
			caption = b.CategoryID
		}
		rows = append(rows, sheets.SummaryRow{
			Month:   b.Month,
			Caption: caption,
			Debit:   b.Debit,
			Credit:  b.Credit,
			Saldo:   b.Saldo,
		})
	}
	return rows, nil
}
