package spending

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func testAccounts() map[string]core.Account {
	return map[string]core.Account{
		"checking": {ID: "checking", UserID: "u1", Name: "Checking", Type: core.AccountTypeDebit},
		"visa":     {ID: "visa", UserID: "u1", Name: "Visa", Type: core.AccountTypeCredit},
	}
}

func testCategories() map[string]core.Category {
	return map[string]core.Category{
		"food":      {ID: "food", Caption: "Food"},
		"groceries": {ID: "groceries", ParentID: "food", Caption: "Groceries"},
		"veg":       {ID: "veg", ParentID: "groceries", Caption: "Vegetables"},
		"dining":    {ID: "dining", ParentID: "food", Caption: "Dining Out"},
		"car":       {ID: "car", Caption: "Car"},
	}
}

func tx(id, accountID, categoryID string, cents int64) core.Transaction {
	return core.Transaction{
		ID:         id,
		AccountID:  accountID,
		CategoryID: categoryID,
		Origin: core.OriginTransaction{
			PostingDate: core.NewDate(2026, 3, 15),
			Amount:      core.Money{Cents: cents},
		},
	}
}

func TestCategorizeRollsUpToRoot(t *testing.T) {
	txs := []core.Transaction{tx("t1", "checking", "groceries", -5000)}

	res, err := Categorize(txs, testAccounts(), testCategories(), true)
	require.NoError(t, err)

	food, ok := res.Parents.Get("food")
	require.True(t, ok)
	assert.Equal(t, int64(5000), food.Debit.Cents)
	assert.Equal(t, int64(0), food.Credit.Cents)
	assert.Equal(t, int64(-5000), food.Saldo.Cents)

	groceries, ok := res.Subs.Get("groceries")
	require.True(t, ok)
	assert.Equal(t, "food", groceries.ParentID)
	assert.Equal(t, int64(5000), groceries.Debit.Cents)
	assert.Equal(t, int64(0), groceries.Credit.Cents)
	assert.Equal(t, int64(-5000), groceries.Saldo.Cents)
}

func TestCategorizeDeepChainReachesRoot(t *testing.T) {
	txs := []core.Transaction{tx("t1", "checking", "veg", -5000)}

	res, err := Categorize(txs, testAccounts(), testCategories(), true)
	require.NoError(t, err)

	veg, ok := res.Subs.Get("veg")
	require.True(t, ok)
	assert.Equal(t, "groceries", veg.ParentID)
	assert.Equal(t, int64(5000), veg.Debit.Cents)

	// The root receives the amount even though the intermediate ancestor
	// has no bucket of its own.
	food, ok := res.Parents.Get("food")
	require.True(t, ok)
	assert.Equal(t, int64(5000), food.Debit.Cents)
	assert.Equal(t, int64(-5000), food.Saldo.Cents)
}

func TestCategorizeDeepChainAccumulatesIntermediateSub(t *testing.T) {
	txs := []core.Transaction{
		tx("t1", "checking", "groceries", -1000),
		tx("t2", "checking", "veg", -5000),
	}

	res, err := Categorize(txs, testAccounts(), testCategories(), true)
	require.NoError(t, err)

	// Groceries already has its own bucket when the veg transaction walks
	// up, so it collects both its direct transaction and its child's.
	groceries, ok := res.Subs.Get("groceries")
	require.True(t, ok)
	assert.Equal(t, int64(6000), groceries.Debit.Cents)

	veg, ok := res.Subs.Get("veg")
	require.True(t, ok)
	assert.Equal(t, int64(5000), veg.Debit.Cents)

	food, ok := res.Parents.Get("food")
	require.True(t, ok)
	assert.Equal(t, int64(6000), food.Debit.Cents)
}

func TestCategorizeRootTotalsSumDescendants(t *testing.T) {
	txs := []core.Transaction{
		tx("t1", "checking", "groceries", -5000),
		tx("t2", "checking", "dining", -2500),
		tx("t3", "visa", "groceries", 1000),
		tx("t4", "checking", "food", -300),
	}

	res, err := Categorize(txs, testAccounts(), testCategories(), true)
	require.NoError(t, err)

	food, ok := res.Parents.Get("food")
	require.True(t, ok)
	assert.Equal(t, int64(7800), food.Debit.Cents)
	assert.Equal(t, int64(1000), food.Credit.Cents)
	assert.Equal(t, int64(-6800), food.Saldo.Cents)

	var subDebit, subCredit int64
	for _, b := range res.Subs.Buckets() {
		subDebit += b.Debit.Cents
		subCredit += b.Credit.Cents
	}
	// Root totals cover descendants plus transactions filed on the root itself.
	assert.Equal(t, food.Debit.Cents, subDebit+300)
	assert.Equal(t, food.Credit.Cents, subCredit)
}

func TestCategorizeWithoutSubcategories(t *testing.T) {
	txs := []core.Transaction{tx("t1", "checking", "groceries", -5000)}

	res, err := Categorize(txs, testAccounts(), testCategories(), false)
	require.NoError(t, err)
	assert.Nil(t, res.Subs)

	food, ok := res.Parents.Get("food")
	require.True(t, ok)
	assert.Equal(t, int64(5000), food.Debit.Cents)
}

func TestCategorizeUnknownAccountIsFatal(t *testing.T) {
	txs := []core.Transaction{tx("t1", "ghost", "groceries", -5000)}

	_, err := Categorize(txs, testAccounts(), testCategories(), true)
	require.Error(t, err)
	assert.Equal(t, core.CodeAccountNotFound, core.CodeOf(err))
}

func TestCategorizeUncategorizedNotExposed(t *testing.T) {
	txs := []core.Transaction{
		tx("t1", "checking", "", -5000),
		tx("t2", "checking", "unknown-cat", -2500),
		tx("t3", "checking", "groceries", -100),
	}

	res, err := Categorize(txs, testAccounts(), testCategories(), true)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Parents.Len(), "only the resolvable category appears")
	_, ok := res.Parents.Get("")
	assert.False(t, ok)
	_, ok = res.Parents.Get("unknown-cat")
	assert.False(t, ok)
}

func TestCategorizeHonorsOverrideCategory(t *testing.T) {
	override := tx("t1", "checking", "groceries", -5000)
	override.OverrideCategoryID = "car"

	res, err := Categorize([]core.Transaction{override}, testAccounts(), testCategories(), true)
	require.NoError(t, err)

	car, ok := res.Parents.Get("car")
	require.True(t, ok)
	assert.Equal(t, int64(5000), car.Debit.Cents)
	_, ok = res.Parents.Get("food")
	assert.False(t, ok)
}

func TestCategorizeCreditAccountTreatedLikeDebit(t *testing.T) {
	checking := []core.Transaction{tx("t1", "checking", "groceries", -5000)}
	visa := []core.Transaction{tx("t1", "visa", "groceries", -5000)}

	fromChecking, err := Categorize(checking, testAccounts(), testCategories(), false)
	require.NoError(t, err)
	fromVisa, err := Categorize(visa, testAccounts(), testCategories(), false)
	require.NoError(t, err)

	a, _ := fromChecking.Parents.Get("food")
	b, _ := fromVisa.Parents.Get("food")
	assert.Equal(t, *a, *b)
}
