package spending

import "fintrack/internal/core"

// Bucket accumulates debit and credit totals for one category. Saldo is not
// maintained by Add; callers refresh it explicitly after accumulating.
type Bucket struct {
	CategoryID string     `json:"categoryId,omitempty"`
	ParentID   string     `json:"parentCategoryId,omitempty"`
	Debit      core.Money `json:"debit"`
	Credit     core.Money `json:"credit"`
	Saldo      core.Money `json:"saldo"`
}

// Add applies a bank-signed amount to the bucket: positive amounts increment
// credit by their absolute value, non-positive amounts increment debit.
// Debit-type and credit-type accounts receive identical treatment because
// the bank-supplied sign already encodes direction; the accountType
// parameter is kept so a future differentiation has a seam.
func (b *Bucket) Add(accountType core.AccountType, amount core.Money) {
	_ = accountType
	if amount.IsPositive() {
		b.Credit = b.Credit.Add(amount.Abs())
	} else {
		b.Debit = b.Debit.Add(amount.Abs())
	}
}

// RefreshSaldo recomputes saldo as credit minus debit.
func (b *Bucket) RefreshSaldo() {
	b.Saldo = b.Credit.Sub(b.Debit)
}

// BucketMap is an insertion-ordered mapping from category id to bucket.
// Ordering does not affect correctness, only the iteration order of the
// emitted result lists.
type BucketMap struct {
	keys    []string
	buckets map[string]*Bucket
}

// NewBucketMap returns an empty ordered bucket map.
func NewBucketMap() *BucketMap {
	return &BucketMap{buckets: make(map[string]*Bucket)}
}

// Get returns the bucket for id, if present.
func (m *BucketMap) Get(id string) (*Bucket, bool) {
	b, ok := m.buckets[id]
	return b, ok
}

// Ensure returns the bucket for id, creating an empty one on first touch.
func (m *BucketMap) Ensure(id string) *Bucket {
	if b, ok := m.buckets[id]; ok {
		return b
	}
	b := &Bucket{CategoryID: id}
	m.buckets[id] = b
	m.keys = append(m.keys, id)
	return b
}

// Len returns the number of buckets.
func (m *BucketMap) Len() int {
	return len(m.keys)
}

// Buckets returns the buckets in insertion order.
func (m *BucketMap) Buckets() []*Bucket {
	out := make([]*Bucket, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.buckets[k])
	}
	return out
}
