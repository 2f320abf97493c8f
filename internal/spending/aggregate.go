package spending

import (
	"time"

	"fintrack/internal/core"
)

// MonthBucket is a spending bucket tagged with the calendar month
// (YYYY-MM) it belongs to.
type MonthBucket struct {
	Month string `json:"month"`
	Bucket
}

// DayPoint is one day of the spending progression: the day's debit/credit
// totals plus the cumulative saldo since the window start.
type DayPoint struct {
	Day        core.Date  `json:"day"`
	Debit      core.Money `json:"debit"`
	Credit     core.Money `json:"credit"`
	Cumulative core.Money `json:"cumulative"`
}

// MonthlyCategorySpending walks each calendar month between the earliest and
// latest transaction dates and rolls transactions with a resolvable category
// up into per-(month, root) buckets, plus per-(month, leaf) sub-buckets for
// non-root categories. Months without qualifying transactions are skipped
// entirely rather than emitted as zero rows.
func MonthlyCategorySpending(
	txs []core.Transaction,
	accountsByID map[string]core.Account,
	categoriesByID map[string]core.Category,
) (parents []MonthBucket, subs []MonthBucket, err error) {
	posted := postedOnly(txs)
	if len(posted) == 0 {
		return nil, nil, nil
	}

	first, last := dateBounds(posted)
	firstMonth := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonth := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC)

	for month := firstMonth; !month.After(lastMonth); month = month.AddDate(0, 1, 0) {
		monthKey := month.Format("2006-01")
		parentBuckets := NewBucketMap()
		subBuckets := NewBucketMap()

		for _, tx := range posted {
			if tx.EffectiveDate().MonthKey() != monthKey {
				continue
			}
			account, ok := accountsByID[tx.AccountID]
			if !ok {
				return nil, nil, core.NewError(core.CodeAccountNotFound,
					"transaction %s references unknown account %q", tx.ID, tx.AccountID)
			}
			categoryID := tx.EffectiveCategoryID()
			rootID, ok := RootOf(categoryID, categoriesByID)
			if !ok {
				continue
			}

			parent := parentBuckets.Ensure(rootID)
			parent.Add(account.Type, tx.Origin.Amount)
			parent.RefreshSaldo()

			if categoryID != rootID {
				sub := subBuckets.Ensure(categoryID)
				sub.ParentID = categoriesByID[categoryID].ParentID
				sub.Add(account.Type, tx.Origin.Amount)
				sub.RefreshSaldo()
			}
		}

		for _, b := range parentBuckets.Buckets() {
			parents = append(parents, MonthBucket{Month: monthKey, Bucket: *b})
		}
		for _, b := range subBuckets.Buckets() {
			subs = append(subs, MonthBucket{Month: monthKey, Bucket: *b})
		}
	}

	return parents, subs, nil
}

// MonthlyAccountBalances sums debit and credit per calendar month for the
// trailing 12 months from now. Unlike MonthlyCategorySpending, empty months
// are emitted so the balance series always has 12 points, oldest first.
func MonthlyAccountBalances(
	txs []core.Transaction,
	accountsByID map[string]core.Account,
	now time.Time,
) ([]MonthBucket, error) {
	posted := postedOnly(txs)

	out := make([]MonthBucket, 0, 12)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	for i := 0; i < 12; i++ {
		month := start.AddDate(0, i, 0)
		monthKey := month.Format("2006-01")
		bucket := Bucket{}

		for _, tx := range posted {
			if tx.EffectiveDate().MonthKey() != monthKey {
				continue
			}
			account, ok := accountsByID[tx.AccountID]
			if !ok {
				return nil, core.NewError(core.CodeAccountNotFound,
					"transaction %s references unknown account %q", tx.ID, tx.AccountID)
			}
			bucket.Add(account.Type, tx.Origin.Amount)
		}

		bucket.RefreshSaldo()
		out = append(out, MonthBucket{Month: monthKey, Bucket: bucket})
	}

	return out, nil
}

// Progression produces a day-by-day spending series covering the month
// ending at the latest transaction date: each day's debit/credit totals and
// the running cumulative saldo since the window start.
func Progression(
	txs []core.Transaction,
	accountsByID map[string]core.Account,
) ([]DayPoint, error) {
	posted := postedOnly(txs)
	if len(posted) == 0 {
		return nil, nil
	}

	_, last := dateBounds(posted)
	windowStart := core.Date{Time: last.AddDate(0, -1, 0)}

	byDay := make(map[string]*Bucket)
	for _, tx := range posted {
		day := tx.EffectiveDate()
		if day.Before(windowStart.Time) {
			continue
		}
		account, ok := accountsByID[tx.AccountID]
		if !ok {
			return nil, core.NewError(core.CodeAccountNotFound,
				"transaction %s references unknown account %q", tx.ID, tx.AccountID)
		}
		b, ok := byDay[day.DayKey()]
		if !ok {
			b = &Bucket{}
			byDay[day.DayKey()] = b
		}
		b.Add(account.Type, tx.Origin.Amount)
	}

	var out []DayPoint
	var cumulative core.Money
	for day := windowStart; !day.After(last.Time); day = day.AddDays(1) {
		point := DayPoint{Day: day}
		if b, ok := byDay[day.DayKey()]; ok {
			point.Debit = b.Debit
			point.Credit = b.Credit
		}
		cumulative = cumulative.Add(point.Credit.Sub(point.Debit))
		point.Cumulative = cumulative
		out = append(out, point)
	}

	return out, nil
}

func postedOnly(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Posted() {
			out = append(out, tx)
		}
	}
	return out
}

func dateBounds(txs []core.Transaction) (first, last core.Date) {
	for _, tx := range txs {
		d := tx.EffectiveDate()
		if first.IsEmpty() || d.Before(first.Time) {
			first = d
		}
		if last.IsEmpty() || d.After(last.Time) {
			last = d
		}
	}
	return first, last
}
