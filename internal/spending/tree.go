// Package spending implements categorization and aggregation of transactions
// into debit/credit spending buckets.
package spending

import "fintrack/internal/core"

// maxTreeDepth bounds the upward walk so a manually corrupted cyclic chain
// cannot hang the resolver.
const maxTreeDepth = 1000

// RootOf walks parent links upward from categoryID and returns the id of the
// root ancestor. It returns ok=false when the id is empty, unknown, or the
// chain is broken (a parent id that is not present in the map). A broken
// chain is a tolerated data state, not an error: the caller must treat the
// transaction as unassignable to any root.
func RootOf(categoryID string, categories map[string]core.Category) (string, bool) {
	if categoryID == "" || categories == nil {
		return "", false
	}
	current, ok := categories[categoryID]
	if !ok {
		return "", false
	}
	for i := 0; i < maxTreeDepth; i++ {
		if current.IsRoot() {
			return current.ID, true
		}
		parent, ok := categories[current.ParentID]
		if !ok {
			return "", false
		}
		current = parent
	}
	// Depth guard tripped: the chain is cyclic or absurdly deep. Treat it
	// like a broken chain.
	return "", false
}
