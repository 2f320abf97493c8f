// Package storage persists fintrack's domain records in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

const dayLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- transactions ---

// TransactionFilter narrows ListTransactions. Zero values mean "no
// constraint".
type TransactionFilter struct {
	AccountID    string
	From, To     core.Date
	Unrecognized bool
	Limit        int
	Offset       int
}

// InsertTransactions persists a batch atomically. Unposted transactions are
// rejected before anything is written.
func (r *SQLiteRepository) InsertTransactions(ctx context.Context, txs []core.Transaction) error {
	for _, t := range txs {
		if !t.Posted() {
			return fmt.Errorf("transaction %s: %w", t.ID, core.ErrUnpostedPersist)
		}
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert batch: %w", err)
	}
	defer dbTx.Rollback()

	const q = `INSERT INTO transactions (
		id, account_id, origin_type, posting_date, description, amount_cents,
		bank_type, balance_cents, check_or_slip, classification_1, classification_2,
		category_id, business_id, user_comment, override_description,
		override_posting_date, override_category_id, transaction_status, processing_status
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, t := range txs {
		_, err := dbTx.ExecContext(ctx, q,
			t.ID, t.AccountID, string(t.Origin.Type), t.Origin.PostingDate.DayKey(),
			t.Origin.Description, t.Origin.Amount.Cents, t.Origin.BankType,
			t.Origin.Balance.Cents, t.Origin.CheckOrSlip,
			t.Origin.Classification1, t.Origin.Classification2,
			t.CategoryID, t.BusinessID, t.UserComment, t.OverrideDescription,
			dayOrEmpty(t.OverridePostingDate), t.OverrideCategoryID,
			int(t.TransactionStatus), int(t.ProcessingStatus),
		)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit insert batch: %w", err)
	}

	slog.InfoContext(ctx, "Transactions inserted", "count", len(txs))
	return nil
}

// RecentPosted returns up to limit transactions for the account, newest
// posting date first.
func (r *SQLiteRepository) RecentPosted(ctx context.Context, accountID string, limit int) ([]core.Transaction, error) {
	const q = transactionColumns + ` FROM transactions
		WHERE account_id = ?
		ORDER BY posting_date DESC, created_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, q, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListTransactions returns transactions matching the filter, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]core.Transaction, error) {
	var (
		conds []string
		args  []any
	)
	if filter.AccountID != "" {
		conds = append(conds, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if !filter.From.IsEmpty() {
		conds = append(conds, "posting_date >= ?")
		args = append(args, filter.From.DayKey())
	}
	if !filter.To.IsEmpty() {
		conds = append(conds, "posting_date <= ?")
		args = append(args, filter.To.DayKey())
	}
	if filter.Unrecognized {
		conds = append(conds, "processing_status & ? != 0 AND business_id = ''")
		args = append(args, int(core.ProcessingMerchantUnrecognized))
	}

	q := transactionColumns + " FROM transactions"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY posting_date DESC, created_at DESC"
	if filter.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			q += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetTransaction fetches one transaction by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	const q = transactionColumns + " FROM transactions WHERE id = ?"

	row := r.db.QueryRowContext(ctx, q, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NewError(core.CodeTransactionNotFound, "transaction %q", id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return t, nil
}

// TransactionUpdate carries the mutable, user-editable fields. Nil pointers
// leave the column untouched.
type TransactionUpdate struct {
	CategoryID          *string
	BusinessID          *string
	UserComment         *string
	OverrideDescription *string
	OverridePostingDate *core.Date
	OverrideCategoryID  *string
	TransactionStatus   *core.TransactionStatus
	ProcessingStatus    *core.ProcessingStatus
}

// UpdateTransaction applies the non-nil fields of the update.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id string, update TransactionUpdate) error {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if update.CategoryID != nil {
		set("category_id", *update.CategoryID)
	}
	if update.BusinessID != nil {
		set("business_id", *update.BusinessID)
	}
	if update.UserComment != nil {
		set("user_comment", *update.UserComment)
	}
	if update.OverrideDescription != nil {
		set("override_description", *update.OverrideDescription)
	}
	if update.OverridePostingDate != nil {
		set("override_posting_date", dayOrEmpty(*update.OverridePostingDate))
	}
	if update.OverrideCategoryID != nil {
		set("override_category_id", *update.OverrideCategoryID)
	}
	if update.TransactionStatus != nil {
		set("transaction_status", int(*update.TransactionStatus))
	}
	if update.ProcessingStatus != nil {
		set("processing_status", int(*update.ProcessingStatus))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewError(core.CodeTransactionNotFound, "transaction %q", id)
	}
	return nil
}

// DeleteTransactionsByAccount removes all transactions for an account.
func (r *SQLiteRepository) DeleteTransactionsByAccount(ctx context.Context, accountID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE account_id = ?", accountID)
	if err != nil {
		return fmt.Errorf("delete transactions for account %s: %w", accountID, err)
	}
	n, _ := res.RowsAffected()
	slog.InfoContext(ctx, "Transactions deleted", "account_id", accountID, "count", n)
	return nil
}

const transactionColumns = `SELECT
	id, account_id, origin_type, posting_date, description, amount_cents,
	bank_type, balance_cents, check_or_slip, classification_1, classification_2,
	category_id, business_id, user_comment, override_description,
	override_posting_date, override_category_id, transaction_status, processing_status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                     core.Transaction
		originType            string
		postingDate           string
		overridePostingDate   string
		txStatus, procsStatus int
	)
	err := row.Scan(
		&t.ID, &t.AccountID, &originType, &postingDate, &t.Origin.Description,
		&t.Origin.Amount.Cents, &t.Origin.BankType, &t.Origin.Balance.Cents,
		&t.Origin.CheckOrSlip, &t.Origin.Classification1, &t.Origin.Classification2,
		&t.CategoryID, &t.BusinessID, &t.UserComment, &t.OverrideDescription,
		&overridePostingDate, &t.OverrideCategoryID, &txStatus, &procsStatus,
	)
	if err != nil {
		return t, err
	}

	t.Origin.Type = core.OriginType(originType)
	t.Origin.PostingDate, err = parseDay(postingDate)
	if err != nil {
		return t, fmt.Errorf("transaction %s posting date: %w", t.ID, err)
	}
	t.OverridePostingDate, err = parseDay(overridePostingDate)
	if err != nil {
		return t, fmt.Errorf("transaction %s override date: %w", t.ID, err)
	}
	t.TransactionStatus = core.TransactionStatus(txStatus)
	t.ProcessingStatus = core.ProcessingStatus(procsStatus)
	return t, nil
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- categories ---

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return core.WrapError(core.CodeValidationFailed, err, "category %q", c.Caption)
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (id, user_id, parent_id, caption, type) VALUES (?, ?, ?, ?, ?)",
		c.ID, c.UserID, c.ParentID, c.Caption, string(c.Type))
	if err != nil {
		if isUniqueViolation(err) {
			return core.WrapError(core.CodeDuplicateName, err, "category %q", c.Caption)
		}
		return fmt.Errorf("create category: %w", err)
	}
	slog.InfoContext(ctx, "Category created", "id", c.ID, "caption", c.Caption)
	return nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return core.WrapError(core.CodeValidationFailed, err, "category %q", c.Caption)
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE categories SET parent_id = ?, caption = ?, type = ? WHERE id = ?",
		c.ParentID, c.Caption, string(c.Type), c.ID)
	if err != nil {
		return fmt.Errorf("update category %s: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewError(core.CodeCategoryNotFound, "category %q", c.ID)
	}
	return nil
}

// DeleteCategory removes a user category. Default categories are shared and
// cannot be deleted.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	c, err := r.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if c.Type == core.CategoryTypeDefault {
		return core.WrapError(core.CodeValidationFailed, core.ErrDefaultCategory, "category %q", id)
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	slog.InfoContext(ctx, "Category deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	var c core.Category
	var cType string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, parent_id, caption, type FROM categories WHERE id = ?", id).
		Scan(&c.ID, &c.UserID, &c.ParentID, &c.Caption, &cType)
	if errors.Is(err, sql.ErrNoRows) {
		return c, core.NewError(core.CodeCategoryNotFound, "category %q", id)
	}
	if err != nil {
		return c, fmt.Errorf("get category %s: %w", id, err)
	}
	c.Type = core.CategoryType(cType)
	return c, nil
}

// ListCategories returns the user's categories plus the shared defaults.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, parent_id, caption, type FROM categories WHERE user_id = ? OR user_id = '' ORDER BY caption",
		userID)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var cType string
		if err := rows.Scan(&c.ID, &c.UserID, &c.ParentID, &c.Caption, &cType); err != nil {
			return nil, err
		}
		c.Type = core.CategoryType(cType)
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- businesses ---

func (r *SQLiteRepository) CreateBusiness(ctx context.Context, b core.Business) error {
	b.Regexps = core.NormalizeRules(b.Regexps)
	if err := b.Validate(); err != nil {
		return core.WrapError(core.CodeInvalidPattern, err, "business %q", b.Name)
	}
	patterns, err := json.Marshal(b.Regexps)
	if err != nil {
		return fmt.Errorf("encode business rules: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO businesses (id, name, default_category_id, regexps) VALUES (?, ?, ?, ?)",
		b.ID, b.Name, b.DefaultCategoryID, string(patterns))
	if err != nil {
		if isUniqueViolation(err) {
			return core.WrapError(core.CodeDuplicateName, err, "business %q", b.Name)
		}
		return fmt.Errorf("create business: %w", err)
	}
	slog.InfoContext(ctx, "Business created", "id", b.ID, "name", b.Name)
	return nil
}

func (r *SQLiteRepository) GetBusiness(ctx context.Context, id string) (core.Business, error) {
	var b core.Business
	var patterns string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, default_category_id, regexps FROM businesses WHERE id = ?", id).
		Scan(&b.ID, &b.Name, &b.DefaultCategoryID, &patterns)
	if errors.Is(err, sql.ErrNoRows) {
		return b, core.NewError(core.CodeBusinessNotFound, "business %q", id)
	}
	if err != nil {
		return b, fmt.Errorf("get business %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(patterns), &b.Regexps); err != nil {
		return b, fmt.Errorf("decode business %s rules: %w", id, err)
	}
	return b, nil
}

// UpdateBusinessRules replaces the business's rule set.
func (r *SQLiteRepository) UpdateBusinessRules(ctx context.Context, id string, regexps []string) error {
	patterns, err := json.Marshal(core.NormalizeRules(regexps))
	if err != nil {
		return fmt.Errorf("encode business rules: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE businesses SET regexps = ? WHERE id = ?", string(patterns), id)
	if err != nil {
		return fmt.Errorf("update business %s rules: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewError(core.CodeBusinessNotFound, "business %q", id)
	}
	return nil
}

// ListBusinesses returns the catalog ordered by name.
func (r *SQLiteRepository) ListBusinesses(ctx context.Context) ([]core.Business, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, default_category_id, regexps FROM businesses ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query businesses: %w", err)
	}
	defer rows.Close()

	var out []core.Business
	for rows.Next() {
		var b core.Business
		var patterns string
		if err := rows.Scan(&b.ID, &b.Name, &b.DefaultCategoryID, &patterns); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(patterns), &b.Regexps); err != nil {
			return nil, fmt.Errorf("decode business %s rules: %w", b.ID, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SeedBusinesses inserts catalog entries that do not exist yet. Existing
// rows are left alone so user edits survive restarts.
func (r *SQLiteRepository) SeedBusinesses(ctx context.Context, businesses []core.Business) error {
	for _, b := range businesses {
		patterns, err := json.Marshal(b.Regexps)
		if err != nil {
			return fmt.Errorf("encode seed rules: %w", err)
		}
		_, err = r.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO businesses (id, name, default_category_id, regexps) VALUES (?, ?, ?, ?)",
			b.ID, b.Name, b.DefaultCategoryID, string(patterns))
		if err != nil {
			return fmt.Errorf("seed business %s: %w", b.ID, err)
		}
	}
	return nil
}

// --- accounts ---

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return core.WrapError(core.CodeValidationFailed, err, "account %q", a.Name)
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO accounts (id, user_id, name, type) VALUES (?, ?, ?, ?)",
		a.ID, a.UserID, a.Name, string(a.Type))
	if err != nil {
		if isUniqueViolation(err) {
			return core.WrapError(core.CodeDuplicateName, err, "account %q", a.Name)
		}
		return fmt.Errorf("create account: %w", err)
	}
	slog.InfoContext(ctx, "Account created", "id", a.ID, "name", a.Name)
	return nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	var a core.Account
	var aType string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, name, type FROM accounts WHERE id = ?", id).
		Scan(&a.ID, &a.UserID, &a.Name, &aType)
	if errors.Is(err, sql.ErrNoRows) {
		return a, core.NewError(core.CodeAccountNotFound, "account %q", id)
	}
	if err != nil {
		return a, fmt.Errorf("get account %s: %w", id, err)
	}
	a.Type = core.AccountType(aType)
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, name, type FROM accounts WHERE user_id = ? ORDER BY name", userID)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		var aType string
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &aType); err != nil {
			return nil, err
		}
		a.Type = core.AccountType(aType)
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- helpers ---

func dayOrEmpty(d core.Date) string {
	if d.IsEmpty() {
		return ""
	}
	return d.DayKey()
}

func parseDay(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: t.UTC()}, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
