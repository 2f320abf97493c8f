// Package match resolves transactions to known businesses by testing their
// descriptions against each business's regular expressions.
package match

import (
	"regexp"

	"fintrack/internal/core"
)

// Classification is the outcome of matching one transaction against the
// business catalog.
type Classification struct {
	// BusinessID is set only when exactly one business matched.
	BusinessID string
	// Status holds the processing flag to record on the transaction.
	Status core.ProcessingStatus
}

// Classify tests the transaction's effective description against every
// business's patterns. Exactly one matching business recognizes the
// transaction; zero matches mark it unrecognized; two or more mark it as
// matched by multiple businesses without picking one.
//
// Patterns are compiled fresh on every call so that catalog edits take
// effect immediately. Patterns that fail to compile are skipped.
func Classify(tx core.Transaction, businesses []core.Business) Classification {
	description := tx.EffectiveDescription()

	var matched []string
	for _, business := range businesses {
		if matchesAny(description, business.Regexps) {
			matched = append(matched, business.ID)
		}
	}

	switch len(matched) {
	case 0:
		return Classification{Status: core.ProcessingMerchantUnrecognized}
	case 1:
		return Classification{BusinessID: matched[0], Status: core.ProcessingMerchantRecognized}
	default:
		return Classification{Status: core.ProcessingMultipleBusinesses}
	}
}

// Recognize finds the first business whose patterns match the description.
// It is the bulk re-processing variant of Classify: when several businesses
// match, the first in catalog order wins instead of flagging ambiguity.
func Recognize(description string, businesses []core.Business) (core.Business, bool) {
	for _, business := range businesses {
		if matchesAny(description, business.Regexps) {
			return business, true
		}
	}
	return core.Business{}, false
}

// Apply classifies the transaction and writes the outcome back onto it:
// business id, default category, and processing flags. Transactions whose
// business was manually overridden are left untouched.
func Apply(tx *core.Transaction, businesses []core.Business) {
	if tx.ProcessingStatus.Overridden() {
		return
	}

	c := Classify(*tx, businesses)
	tx.ProcessingStatus = core.ProcessingUnprocessed.With(c.Status)
	tx.BusinessID = c.BusinessID

	if c.Status.Recognized() {
		for _, business := range businesses {
			if business.ID == c.BusinessID {
				if tx.CategoryID == "" {
					tx.CategoryID = business.DefaultCategoryID
				}
				break
			}
		}
	}
}

func matchesAny(description string, patterns []string) bool {
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		if re.MatchString(description) {
			return true
		}
	}
	return false
}
