package spending

import "fintrack/internal/core"

// Result groups the per-root ("parent") buckets and, when requested, the
// per-leaf sub-buckets produced by Categorize.
type Result struct {
	Parents *BucketMap
	Subs    *BucketMap
}

// Categorize partitions transactions into spending buckets keyed by their
// root category, optionally tracking per-leaf sub-buckets as well. Every
// ancestor level between leaf and root receives the transaction's amount, so
// a root's totals equal the sum of its descendants'.
//
// A transaction whose account is missing from accountsByID is a fatal
// data-integrity error. A transaction with a missing or unknown category
// (including one whose category chain is broken) is accumulated into an
// internal uncategorized bucket that is not exposed in the result.
func Categorize(
	txs []core.Transaction,
	accountsByID map[string]core.Account,
	categoriesByID map[string]core.Category,
	includeSubcategories bool,
) (*Result, error) {
	res := &Result{Parents: NewBucketMap()}
	if includeSubcategories {
		res.Subs = NewBucketMap()
	}
	uncategorized := &Bucket{}

	for _, tx := range txs {
		account, ok := accountsByID[tx.AccountID]
		if !ok {
			return nil, core.NewError(core.CodeAccountNotFound,
				"transaction %s references unknown account %q", tx.ID, tx.AccountID)
		}

		categoryID := tx.EffectiveCategoryID()
		rootID, ok := RootOf(categoryID, categoriesByID)
		if !ok {
			uncategorized.Add(account.Type, tx.Origin.Amount)
			uncategorized.RefreshSaldo()
			continue
		}

		res.Parents.Ensure(rootID)
		if includeSubcategories && categoryID != rootID {
			sub := res.Subs.Ensure(categoryID)
			sub.ParentID = categoriesByID[categoryID].ParentID
		}

		ascend(res, categoryID, categoriesByID, account.Type, tx.Origin.Amount)
	}

	return res, nil
}

// ascend walks from the given category toward the root, accumulating the
// amount into every bucket encountered. Category ids without a bucket
// (intermediate or deleted nodes) are skipped without accumulating.
func ascend(
	res *Result,
	categoryID string,
	categoriesByID map[string]core.Category,
	accountType core.AccountType,
	amount core.Money,
) {
	current := categoryID
	for i := 0; i < maxTreeDepth; i++ {
		var updated *Bucket
		if res.Subs != nil {
			if b, ok := res.Subs.Get(current); ok {
				updated = b
			}
		}
		if updated == nil {
			if b, ok := res.Parents.Get(current); ok {
				updated = b
			}
		}

		if updated == nil {
			category, known := categoriesByID[current]
			if !known {
				return
			}
			// Intermediate node without a bucket: move up without touching
			// any totals.
			current = category.ParentID
			continue
		}

		updated.Add(accountType, amount)
		updated.RefreshSaldo()

		parentID := categoriesByID[current].ParentID
		if parentID == "" {
			return
		}
		current = parentID
	}
}
