package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func businessFixture() (*fakeStore, *BusinessService) {
	store := newFakeStore()
	return store, NewBusinessService(store)
}

func TestBusinessCreate(t *testing.T) {
	store, svc := businessFixture()

	b, err := svc.Create(context.Background(), "Starbucks", "dining",
		[]string{`(?i)^STARBUCKS`, "", `(?i)^STARBUCKS`})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, []string{`(?i)^STARBUCKS`}, b.Regexps)
	assert.Contains(t, store.businesses, b.ID)
}

func TestBusinessCreateInvalidPattern(t *testing.T) {
	_, svc := businessFixture()

	_, err := svc.Create(context.Background(), "Broken", "", []string{`[unclosed`})
	require.Error(t, err)
	assert.Equal(t, core.CodeInvalidPattern, core.CodeOf(err))
}

func TestAddRule(t *testing.T) {
	store, svc := businessFixture()
	b, err := svc.Create(context.Background(), "Kroger", "groceries", []string{`(?i)KROGER`})
	require.NoError(t, err)

	require.NoError(t, svc.AddRule(context.Background(), b.ID, `(?i)KR MKT`))
	got, _ := store.GetBusiness(context.Background(), b.ID)
	assert.Equal(t, []string{`(?i)KROGER`, `(?i)KR MKT`}, got.Regexps)

	// Duplicate and empty patterns are no-ops or rejected.
	require.NoError(t, svc.AddRule(context.Background(), b.ID, `(?i)KROGER`))
	got, _ = store.GetBusiness(context.Background(), b.ID)
	assert.Len(t, got.Regexps, 2)

	err = svc.AddRule(context.Background(), b.ID, "   ")
	assert.Equal(t, core.CodeMissingField, core.CodeOf(err))

	err = svc.AddRule(context.Background(), b.ID, `[unclosed`)
	assert.Equal(t, core.CodeInvalidPattern, core.CodeOf(err))

	err = svc.AddRule(context.Background(), "missing", "X")
	assert.Equal(t, core.CodeBusinessNotFound, core.CodeOf(err))
}

func TestRecognizeBulk(t *testing.T) {
	store, svc := businessFixture()
	_, err := svc.Create(context.Background(), "Starbucks", "dining", []string{`(?i)^STARBUCKS`})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "Any Coffee", "dining", []string{`(?i)COFFEE`})
	require.NoError(t, err)

	store.transactions["t1"] = core.Transaction{
		ID: "t1", AccountID: "checking",
		Origin: core.OriginTransaction{
			PostingDate: core.NewDate(2026, 3, 10),
			Description: "STARBUCKS COFFEE #42",
			Amount:      core.Money{Cents: -450},
		},
		ProcessingStatus: core.ProcessingMerchantUnrecognized,
	}
	store.transactions["t2"] = core.Transaction{
		ID: "t2", AccountID: "checking",
		Origin: core.OriginTransaction{
			PostingDate: core.NewDate(2026, 3, 11),
			Description: "NOTHING KNOWN",
			Amount:      core.Money{Cents: -100},
		},
		ProcessingStatus: core.ProcessingMerchantUnrecognized,
	}
	// Already claimed; must not be touched by the bulk pass.
	store.transactions["t3"] = core.Transaction{
		ID: "t3", AccountID: "checking", BusinessID: "manual",
		Origin: core.OriginTransaction{
			PostingDate: core.NewDate(2026, 3, 12),
			Description: "STARBUCKS STORE",
			Amount:      core.Money{Cents: -200},
		},
		ProcessingStatus: core.ProcessingMerchantRecognized,
	}

	updated, err := svc.Recognize(context.Background())
	require.NoError(t, err)
	require.Len(t, updated, 1)

	// Both catalog entries match t1; the first in catalog order wins.
	got := store.transactions["t1"]
	assert.True(t, got.ProcessingStatus.Recognized())
	assert.Equal(t, "dining", got.CategoryID)
	starbucksID := store.businessSeq[0]
	assert.Equal(t, starbucksID, got.BusinessID)

	assert.True(t, store.transactions["t2"].ProcessingStatus.Unrecognized())
	assert.Equal(t, "manual", store.transactions["t3"].BusinessID)
}
