package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func spendingFixture() (*fakeStore, *SpendingService) {
	store := newFakeStore()
	store.accounts["checking"] = core.Account{
		ID: "checking", UserID: "u1", Name: "Checking", Type: core.AccountTypeDebit,
	}
	store.categories["food"] = core.Category{ID: "food", UserID: "u1", Caption: "Food"}
	store.categories["groceries"] = core.Category{
		ID: "groceries", UserID: "u1", ParentID: "food", Caption: "Groceries",
	}

	svc := NewSpendingService(store)
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }
	return store, svc
}

func addTx(store *fakeStore, id string, cents int64, date core.Date, categoryID string, status core.TransactionStatus) {
	store.transactions[id] = core.Transaction{
		ID:         id,
		AccountID:  "checking",
		CategoryID: categoryID,
		Origin: core.OriginTransaction{
			PostingDate: date,
			Description: "TX " + id,
			Amount:      core.Money{Cents: cents},
		},
		TransactionStatus: status,
	}
}

func TestSpendingReport(t *testing.T) {
	store, svc := spendingFixture()
	addTx(store, "t1", -5000, core.NewDate(2026, 3, 10), "groceries", 0)
	addTx(store, "t2", -2000, core.NewDate(2026, 3, 12), "food", 0)

	report, err := svc.Report(context.Background(), ReportRequest{
		UserID:               "u1",
		IncludeSubcategories: true,
	})
	require.NoError(t, err)

	require.Len(t, report.Categories, 1)
	assert.Equal(t, "food", report.Categories[0].CategoryID)
	assert.Equal(t, int64(7000), report.Categories[0].Debit.Cents)

	require.Len(t, report.SubCategories, 1)
	assert.Equal(t, "groceries", report.SubCategories[0].CategoryID)
	assert.Equal(t, int64(5000), report.SubCategories[0].Debit.Cents)

	require.NotEmpty(t, report.SpendingsByMonth.Parents)
	assert.Equal(t, "2026-03", report.SpendingsByMonth.Parents[0].Month)

	assert.Len(t, report.AnnualBalances, 12)
	assert.NotEmpty(t, report.SpendingProgression)
}

func TestSpendingReportHiddenExcludedEverywhere(t *testing.T) {
	store, svc := spendingFixture()
	addTx(store, "t1", -5000, core.NewDate(2026, 3, 10), "groceries", 0)
	addTx(store, "hidden", -99999, core.NewDate(2026, 3, 11), "groceries", core.StatusHidden)

	report, err := svc.Report(context.Background(), ReportRequest{UserID: "u1"})
	require.NoError(t, err)

	require.Len(t, report.Categories, 1)
	assert.Equal(t, int64(5000), report.Categories[0].Debit.Cents)

	var march core.Money
	for _, p := range report.AnnualBalances {
		if p.Month == "2026-03" {
			march = p.Debit
		}
	}
	assert.Equal(t, int64(5000), march.Cents)
}

func TestSpendingReportBalanceExclusion(t *testing.T) {
	store, svc := spendingFixture()
	addTx(store, "t1", -5000, core.NewDate(2026, 3, 10), "groceries", 0)
	addTx(store, "transfer", -30000, core.NewDate(2026, 3, 11), "groceries", core.StatusExcludeFromBalance)

	report, err := svc.Report(context.Background(), ReportRequest{UserID: "u1"})
	require.NoError(t, err)

	// Balance-excluded transactions still count toward category spending.
	require.Len(t, report.Categories, 1)
	assert.Equal(t, int64(35000), report.Categories[0].Debit.Cents)

	var march core.Money
	for _, p := range report.AnnualBalances {
		if p.Month == "2026-03" {
			march = p.Debit
		}
	}
	assert.Equal(t, int64(5000), march.Cents, "balance series skips excluded transactions")
}

func TestSpendingReportNoSubsWhenNotRequested(t *testing.T) {
	store, svc := spendingFixture()
	addTx(store, "t1", -5000, core.NewDate(2026, 3, 10), "groceries", 0)

	report, err := svc.Report(context.Background(), ReportRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Nil(t, report.SubCategories)
}

func TestSpendingReportEmpty(t *testing.T) {
	_, svc := spendingFixture()

	report, err := svc.Report(context.Background(), ReportRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, report.Categories)
	assert.Len(t, report.AnnualBalances, 12)
	assert.Empty(t, report.SpendingProgression)
}

func TestSpendingReportDateFilter(t *testing.T) {
	store, svc := spendingFixture()
	addTx(store, "old", -1000, core.NewDate(2025, 1, 5), "groceries", 0)
	addTx(store, "t1", -5000, core.NewDate(2026, 3, 10), "groceries", 0)

	report, err := svc.Report(context.Background(), ReportRequest{
		UserID: "u1",
		From:   core.NewDate(2026, 1, 1),
	})
	require.NoError(t, err)
	require.Len(t, report.Categories, 1)
	assert.Equal(t, int64(5000), report.Categories[0].Debit.Cents)
}
