// Package importer merges freshly parsed transaction batches against the
// recently persisted ledger to keep bank re-posts from being inserted twice.
package importer

import (
	"context"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"
)

const (
	// comparisonDepth is how many recent persisted transactions are fetched
	// for duplicate comparison.
	comparisonDepth = 30
	// padDays widens the comparison window to absorb bank posting latency.
	padDays = 5
)

// TransactionSource provides the persisted side of the merge.
type TransactionSource interface {
	// RecentPosted returns up to limit posted transactions for the account,
	// ordered by posting date descending.
	RecentPosted(ctx context.Context, accountID string, limit int) ([]core.Transaction, error)
}

// MergeResult summarizes one merge pass.
type MergeResult struct {
	// New holds the pending transactions that are not already persisted,
	// in discovery order.
	New []core.Transaction
	// Parsed is the total size of the input batch.
	Parsed int
	// Unposted counts input transactions without a posting date. They are
	// never compared or imported.
	Unposted int
	// Duplicates is computed as parsed minus new. Unposted transactions are
	// therefore counted as duplicates as well; see the contract tests.
	Duplicates int
}

// Importer deduplicates pending batches per account. Concurrent imports
// into the same account are serialized so two uploads of the same statement
// cannot both pass the duplicate check before either inserts.
type Importer struct {
	source TransactionSource
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds an Importer over the given source.
func New(source TransactionSource) *Importer {
	return &Importer{
		source: source,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (i *Importer) accountLock(accountID string) *sync.Mutex {
	i.mu.Lock()
	defer i.mu.Unlock()
	l, ok := i.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		i.locks[accountID] = l
	}
	return l
}

// MergeWithExisting filters the pending batch down to transactions not
// already persisted for the account.
//
// Posted pending transactions are compared day by day against the most
// recent persisted transactions inside a window running from
// min(earliest pending date, latest persisted date) minus padDays through
// today. A pending transaction is new iff no persisted transaction on the
// same calendar day is origin-equal to it. Pending transactions whose date
// falls outside the window are not imported.
func (i *Importer) MergeWithExisting(ctx context.Context, accountID string, pending []core.Transaction) (*MergeResult, error) {
	lock := i.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	res := &MergeResult{Parsed: len(pending)}

	posted := make([]core.Transaction, 0, len(pending))
	for _, tx := range pending {
		if tx.Posted() {
			posted = append(posted, tx)
		} else {
			res.Unposted++
		}
	}
	if len(posted) == 0 {
		res.Duplicates = res.Parsed - len(res.New)
		return res, nil
	}

	persisted, err := i.source.RecentPosted(ctx, accountID, comparisonDepth)
	if err != nil {
		return nil, core.WrapError(core.CodeDatabaseFailure, err,
			"loading recent transactions for account %q", accountID)
	}

	if len(persisted) == 0 {
		res.New = posted
		res.Duplicates = res.Parsed - len(res.New)
		return res, nil
	}

	sort.SliceStable(posted, func(a, b int) bool {
		return posted[a].Origin.PostingDate.Before(posted[b].Origin.PostingDate.Time)
	})

	earliestPending := posted[0].Origin.PostingDate
	latestPersisted := latestPostingDate(persisted)

	windowStart := earliestPending
	if latestPersisted.Before(earliestPending.Time) {
		windowStart = latestPersisted
	}
	windowStart = windowStart.AddDays(-padDays)

	now := i.now().UTC()
	today := core.NewDate(now.Year(), now.Month(), now.Day())

	persistedByDay := groupByDay(persisted)
	pendingByDay := groupByDay(posted)

	for day := windowStart; !day.After(today.Time); day = day.AddDays(1) {
		sameDay := persistedByDay[day.DayKey()]
		for _, tx := range pendingByDay[day.DayKey()] {
			if !isDuplicate(tx, sameDay) {
				res.New = append(res.New, tx)
			}
		}
	}

	res.Duplicates = res.Parsed - len(res.New)
	return res, nil
}

func latestPostingDate(txs []core.Transaction) core.Date {
	var latest core.Date
	for _, tx := range txs {
		d := tx.Origin.PostingDate
		if latest.IsEmpty() || d.After(latest.Time) {
			latest = d
		}
	}
	return latest
}

func groupByDay(txs []core.Transaction) map[string][]core.Transaction {
	out := make(map[string][]core.Transaction)
	for _, tx := range txs {
		key := tx.Origin.PostingDate.DayKey()
		out[key] = append(out[key], tx)
	}
	return out
}

func isDuplicate(tx core.Transaction, sameDay []core.Transaction) bool {
	for _, existing := range sameDay {
		if tx.Origin.OriginEquals(existing.Origin) {
			return true
		}
	}
	return false
}
