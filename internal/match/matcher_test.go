package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func catalog() []core.Business {
	return []core.Business{
		{ID: "starbucks", Name: "Starbucks", DefaultCategoryID: "dining", Regexps: []string{`(?i)^STARBUCKS`}},
		{ID: "kroger", Name: "Kroger", DefaultCategoryID: "groceries", Regexps: []string{`(?i)KROGER`}},
		{ID: "coffee", Name: "Any Coffee", DefaultCategoryID: "dining", Regexps: []string{`(?i)COFFEE`}},
	}
}

func descTx(description string) core.Transaction {
	return core.Transaction{
		ID: "t1",
		Origin: core.OriginTransaction{
			Description: description,
			Amount:      core.Money{Cents: -450},
		},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name           string
		description    string
		wantBusinessID string
		wantRecognized bool
		wantMultiple   bool
	}{
		{"single match", "STARBUCKS STORE 1234", "starbucks", true, false},
		{"no match", "SOME UNKNOWN VENDOR", "", false, false},
		{"multiple matches", "STARBUCKS COFFEE #42", "", false, true},
		{"case insensitive", "kroger fuel ctr", "kroger", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(descTx(tt.description), catalog())
			assert.Equal(t, tt.wantBusinessID, c.BusinessID)
			assert.Equal(t, tt.wantRecognized, c.Status.Recognized())
			assert.Equal(t, tt.wantMultiple, c.Status.Multiple())
			if !tt.wantRecognized && !tt.wantMultiple {
				assert.True(t, c.Status.Unrecognized())
			}
			if tt.wantMultiple {
				assert.Empty(t, c.BusinessID, "ambiguous matches must not pick a business")
			}
		})
	}
}

func TestClassifyStatusesAreExclusive(t *testing.T) {
	for _, desc := range []string{"STARBUCKS STORE", "UNKNOWN", "STARBUCKS COFFEE"} {
		c := Classify(descTx(desc), catalog())
		set := 0
		for _, on := range []bool{c.Status.Recognized(), c.Status.Unrecognized(), c.Status.Multiple()} {
			if on {
				set++
			}
		}
		assert.Equal(t, 1, set, "exactly one outcome flag for %q", desc)
	}
}

func TestClassifyUsesOverrideDescription(t *testing.T) {
	tx := descTx("ACH WITHDRAWAL 99887766")
	tx.OverrideDescription = "KROGER 123"

	c := Classify(tx, catalog())
	assert.Equal(t, "kroger", c.BusinessID)
}

func TestClassifySkipsInvalidPatterns(t *testing.T) {
	businesses := []core.Business{
		{ID: "bad", Name: "Bad", Regexps: []string{`[unclosed`}},
		{ID: "good", Name: "Good", Regexps: []string{`VENDOR`}},
	}

	c := Classify(descTx("VENDOR X"), businesses)
	assert.Equal(t, "good", c.BusinessID)
	assert.True(t, c.Status.Recognized())
}

func TestRecognizeFirstMatchWins(t *testing.T) {
	business, ok := Recognize("STARBUCKS COFFEE #42", catalog())
	require.True(t, ok)
	assert.Equal(t, "starbucks", business.ID)

	_, ok = Recognize("NOTHING HERE", catalog())
	assert.False(t, ok)
}

func TestApplyRecognized(t *testing.T) {
	tx := descTx("STARBUCKS STORE 1234")
	Apply(&tx, catalog())

	assert.Equal(t, "starbucks", tx.BusinessID)
	assert.True(t, tx.ProcessingStatus.Recognized())
	assert.Equal(t, "dining", tx.CategoryID, "default category filled in")
}

func TestApplyKeepsExistingCategory(t *testing.T) {
	tx := descTx("STARBUCKS STORE 1234")
	tx.CategoryID = "coffee-budget"
	Apply(&tx, catalog())

	assert.Equal(t, "coffee-budget", tx.CategoryID)
}

func TestApplySkipsOverridden(t *testing.T) {
	tx := descTx("STARBUCKS STORE 1234")
	tx.BusinessID = "manual-pick"
	tx.ProcessingStatus = core.ProcessingMerchantOverridden

	Apply(&tx, catalog())
	assert.Equal(t, "manual-pick", tx.BusinessID)
	assert.True(t, tx.ProcessingStatus.Overridden())
}

func TestApplyReplacesStaleFlags(t *testing.T) {
	tx := descTx("NO MATCH HERE")
	tx.ProcessingStatus = core.ProcessingMerchantRecognized
	tx.BusinessID = "starbucks"

	Apply(&tx, catalog())
	assert.True(t, tx.ProcessingStatus.Unrecognized())
	assert.False(t, tx.ProcessingStatus.Recognized())
	assert.Empty(t, tx.BusinessID)
}
