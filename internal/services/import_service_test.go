package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

const importCSV = `Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #
DEBIT,03/15/2026,STARBUCKS STORE 1234,-4.50,ACH_DEBIT,1200.33,
DEBIT,03/16/2026,MYSTERY VENDOR,-20.00,ACH_DEBIT,1180.33,
CREDIT,03/17/2026,PAYROLL ACME,2500.00,ACH_CREDIT,3680.33,
`

func importFixture() (*fakeStore, *fakePublisher, *ImportService) {
	store := newFakeStore()
	store.accounts["checking"] = core.Account{
		ID: "checking", UserID: "u1", Name: "Checking", Type: core.AccountTypeDebit,
	}
	store.businesses["starbucks"] = core.Business{
		ID: "starbucks", Name: "Starbucks", DefaultCategoryID: "dining",
		Regexps: []string{`(?i)^STARBUCKS`},
	}
	store.businessSeq = []string{"starbucks"}

	pub := &fakePublisher{}
	return store, pub, NewImportService(store, pub)
}

func TestImportTransactionsFromCSV(t *testing.T) {
	store, pub, svc := importFixture()

	res, err := svc.ImportTransactionsFromCSV(context.Background(), "checking", strings.NewReader(importCSV))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Parsed)
	assert.Equal(t, 3, res.NewTransactions)
	assert.Zero(t, res.Duplicates)
	assert.Equal(t, 1, res.BusinessRecognized)
	assert.Equal(t, 2, res.Unrecognized)
	assert.Zero(t, res.MultipleBusinessesMatched)

	assert.Len(t, store.transactions, 3)
	for _, tx := range store.transactions {
		assert.NotEmpty(t, tx.ID)
		assert.Equal(t, "checking", tx.AccountID)
		if tx.ProcessingStatus.Recognized() {
			assert.Equal(t, "starbucks", tx.BusinessID)
			assert.Equal(t, "dining", tx.CategoryID)
		}
	}

	assert.Equal(t, []string{"checking"}, pub.events)
}

func TestImportSecondUploadIsAllDuplicates(t *testing.T) {
	_, pub, svc := importFixture()
	ctx := context.Background()

	_, err := svc.ImportTransactionsFromCSV(ctx, "checking", strings.NewReader(importCSV))
	require.NoError(t, err)

	res, err := svc.ImportTransactionsFromCSV(ctx, "checking", strings.NewReader(importCSV))
	require.NoError(t, err)
	assert.Zero(t, res.NewTransactions)
	assert.Equal(t, 3, res.Duplicates)
	assert.Len(t, pub.events, 1, "no event published for an empty import")
}

func TestImportUnknownAccount(t *testing.T) {
	_, _, svc := importFixture()

	_, err := svc.ImportTransactionsFromCSV(context.Background(), "ghost", strings.NewReader(importCSV))
	require.Error(t, err)
	assert.Equal(t, core.CodeAccountNotFound, core.CodeOf(err))
}

func TestImportMalformedStatement(t *testing.T) {
	_, _, svc := importFixture()

	_, err := svc.ImportTransactionsFromCSV(context.Background(), "checking", strings.NewReader("Foo,Bar\n1,2\n"))
	require.Error(t, err)
	assert.Equal(t, core.CodeMalformedStatement, core.CodeOf(err))
}

func TestImportPublishFailureIsNonFatal(t *testing.T) {
	store, pub, _ := importFixture()
	pub.err = errors.New("broker unavailable")
	svc := NewImportService(store, pub)

	res, err := svc.ImportTransactionsFromCSV(context.Background(), "checking", strings.NewReader(importCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, res.NewTransactions)
	assert.Len(t, store.transactions, 3)
}

func TestImportInsertFailure(t *testing.T) {
	store, _, svc := importFixture()
	store.insertErr = errors.New("disk full")

	_, err := svc.ImportTransactionsFromCSV(context.Background(), "checking", strings.NewReader(importCSV))
	require.Error(t, err)
	assert.Equal(t, core.CodeDatabaseFailure, core.CodeOf(err))
}

func TestImportWithoutPublisher(t *testing.T) {
	store, _, _ := importFixture()
	svc := NewImportService(store, nil)

	res, err := svc.ImportTransactionsFromCSV(context.Background(), "checking", strings.NewReader(importCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, res.NewTransactions)
}
