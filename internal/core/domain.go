package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	// OriginDebit and friends are the bank-supplied record kinds found in
	// checking-account statement exports.
	OriginDebit       OriginType = "DEBIT"
	OriginCredit      OriginType = "CREDIT"
	OriginCheck       OriginType = "CHECK"
	OriginDepositSlip OriginType = "DSLIP"

	// AccountTypeDebit covers checking/debit accounts, AccountTypeCredit
	// covers credit cards. Both interpret the bank-supplied amount sign the
	// same way (positive = money in).
	AccountTypeDebit  AccountType = "debit"
	AccountTypeCredit AccountType = "credit"

	CategoryTypeDefault CategoryType = "default"
	CategoryTypeUser    CategoryType = "user"
)

type (
	OriginType   string
	AccountType  string
	CategoryType string

	// Date is a calendar date. The zero value means "no date": a transaction
	// whose origin carries a zero posting date is unposted and must never be
	// persisted or aggregated.
	Date struct {
		time.Time
	}

	// OriginTransaction holds the bank-supplied fields of a statement row,
	// kept verbatim so re-imports can be compared field by field.
	OriginTransaction struct {
		Type            OriginType `json:"type"`
		PostingDate     Date       `json:"postingDate"`
		Description     string     `json:"description"`
		Amount          Money      `json:"amount"`
		BankType        string     `json:"bankType,omitempty"` // bank-specific transaction-type code
		Balance         Money      `json:"balance"`            // running balance after the transaction
		CheckOrSlip     string     `json:"checkOrSlip,omitempty"`
		Classification1 string     `json:"classification1,omitempty"`
		Classification2 string     `json:"classification2,omitempty"`
	}

	// Transaction is a ledger entry: the immutable origin payload plus the
	// user-assigned and derived fields.
	Transaction struct {
		ID         string            `json:"id"`
		AccountID  string            `json:"accountId"`
		Origin     OriginTransaction `json:"origin"`
		CategoryID string            `json:"categoryId,omitempty"`
		BusinessID string            `json:"businessId,omitempty"`

		UserComment         string            `json:"userComment,omitempty"`
		OverrideDescription string            `json:"overrideDescription,omitempty"`
		OverridePostingDate Date              `json:"overridePostingDate,omitempty"`
		OverrideCategoryID  string            `json:"overrideCategoryId,omitempty"`
		TransactionStatus   TransactionStatus `json:"transactionStatus"`
		ProcessingStatus    ProcessingStatus  `json:"processingStatus"`
	}

	// Category is a spending bucket. A category without a parent is a root.
	Category struct {
		ID       string       `json:"id"`
		UserID   string       `json:"userId,omitempty"` // empty for shared default categories
		ParentID string       `json:"parentId,omitempty"`
		Caption  string       `json:"caption"`
		Type     CategoryType `json:"type"`
	}

	// Business is a merchant with the regex rules used to recognize it in
	// transaction descriptions.
	Business struct {
		ID                string   `json:"id"`
		Name              string   `json:"name"`
		DefaultCategoryID string   `json:"defaultCategoryId,omitempty"`
		Regexps           []string `json:"regexps"`
	}

	Account struct {
		ID     string      `json:"id"`
		UserID string      `json:"userId"`
		Name   string      `json:"name"`
		Type   AccountType `json:"type"`
	}
)

var (
	ErrEmptyName          = errors.New("name cannot be empty")
	ErrEmptyAccountID     = errors.New("account id cannot be empty")
	ErrEmptyBusinessID    = errors.New("business id cannot be empty")
	ErrSelfParent         = errors.New("category cannot be its own parent")
	ErrEmptyPattern       = errors.New("rule pattern cannot be empty")
	ErrDefaultCategory    = errors.New("default categories cannot be deleted")
	ErrUnpostedPersist    = errors.New("unposted transactions cannot be persisted")
	ErrUnknownAccountType = errors.New("unknown account type")
)

// NewDate builds a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty reports whether the date is unset.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// SameDay reports whether both dates fall on the same calendar day.
func (d Date) SameDay(o Date) bool {
	if d.IsEmpty() || o.IsEmpty() {
		return false
	}
	y1, m1, day1 := d.Date()
	y2, m2, day2 := o.Date()
	return y1 == y2 && m1 == m2 && day1 == day2
}

// DayKey returns the date formatted as YYYY-MM-DD, usable as a map key.
func (d Date) DayKey() string {
	return d.Format("2006-01-02")
}

// MonthKey returns the date formatted as YYYY-MM.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// Posted reports whether the transaction carries a bank posting date.
func (t Transaction) Posted() bool {
	return !t.Origin.PostingDate.IsEmpty()
}

// EffectiveDate returns the override date when the user set one, otherwise
// the bank posting date.
func (t Transaction) EffectiveDate() Date {
	if !t.OverridePostingDate.IsEmpty() {
		return t.OverridePostingDate
	}
	return t.Origin.PostingDate
}

// EffectiveDescription returns the override description when set.
func (t Transaction) EffectiveDescription() string {
	if t.OverrideDescription != "" {
		return t.OverrideDescription
	}
	return t.Origin.Description
}

// EffectiveCategoryID returns the override category when set.
func (t Transaction) EffectiveCategoryID() string {
	if t.OverrideCategoryID != "" {
		return t.OverrideCategoryID
	}
	return t.CategoryID
}

// OriginEquals compares the bank-supplied payloads of two transactions field
// by field. Two rows are the same bank event only when every field matches;
// the posting date is compared as a calendar instant, not by exact
// nanosecond identity of the parsed value.
func (o OriginTransaction) OriginEquals(other OriginTransaction) bool {
	if !o.PostingDate.Equal(other.PostingDate.Time) {
		return false
	}
	return o.Amount == other.Amount &&
		o.Balance == other.Balance &&
		o.CheckOrSlip == other.CheckOrSlip &&
		o.Description == other.Description &&
		o.Type == other.Type &&
		o.BankType == other.BankType &&
		o.Classification1 == other.Classification1 &&
		o.Classification2 == other.Classification2
}

// Validate checks a category for structural problems before persistence.
func (c Category) Validate() error {
	if strings.TrimSpace(c.Caption) == "" {
		return ErrEmptyName
	}
	if c.ParentID != "" && c.ParentID == c.ID {
		return ErrSelfParent
	}
	return nil
}

// IsRoot reports whether the category has no parent.
func (c Category) IsRoot() bool {
	return c.ParentID == ""
}

// Validate checks the business name and every rule pattern. Patterns must
// compile so malformed rules fail at creation time instead of at match time.
func (b Business) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	for _, p := range b.Regexps {
		if strings.TrimSpace(p) == "" {
			return ErrEmptyPattern
		}
		if _, err := regexp.Compile(p); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeRules removes empty patterns and duplicates while preserving the
// original rule order.
func NormalizeRules(patterns []string) []string {
	seen := make(map[string]struct{}, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Validate checks an account before persistence.
func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	switch a.Type {
	case AccountTypeDebit, AccountTypeCredit:
		return nil
	default:
		return ErrUnknownAccountType
	}
}
