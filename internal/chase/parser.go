// Package chase parses Chase bank statement CSV exports into origin
// transactions.
package chase

import (
	"encoding/csv"
	"io"
	"strings"
	"time"

	"fintrack/internal/core"
)

// Statement is the outcome of parsing one CSV export.
type Statement struct {
	Transactions []core.OriginTransaction
	// Skipped counts rows dropped because a required field failed to parse.
	Skipped int
}

const dateLayout = "01/02/2006"

// column indexes resolved from the header row; -1 means absent.
type layout struct {
	details     int
	postingDate int
	description int
	amount      int
	bankType    int
	balance     int
	checkOrSlip int
	class1      int
	class2      int
}

// Parse reads a Chase CSV export. The header row is matched by column name
// so exports with or without the trailing classification columns both work.
// Rows whose posting date or amount cannot be parsed are skipped and
// counted; a header missing a required column is a malformed statement.
func Parse(r io.Reader) (*Statement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, core.WrapError(core.CodeMalformedStatement, err, "reading statement header")
	}
	lay, err := resolveLayout(header)
	if err != nil {
		return nil, err
	}

	st := &Statement{}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Quoting or encoding damage on a single row; the rest of the
			// statement is still usable.
			st.Skipped++
			continue
		}

		tx, ok := parseRow(record, lay)
		if !ok {
			st.Skipped++
			continue
		}
		st.Transactions = append(st.Transactions, tx)
	}

	return st, nil
}

func resolveLayout(header []string) (layout, error) {
	lay := layout{
		details: -1, postingDate: -1, description: -1, amount: -1,
		bankType: -1, balance: -1, checkOrSlip: -1, class1: -1, class2: -1,
	}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "details":
			lay.details = i
		case "posting date":
			lay.postingDate = i
		case "description":
			lay.description = i
		case "amount":
			lay.amount = i
		case "type":
			lay.bankType = i
		case "balance":
			lay.balance = i
		case "check or slip #":
			lay.checkOrSlip = i
		case "classification 1":
			lay.class1 = i
		case "classification 2":
			lay.class2 = i
		}
	}

	if lay.postingDate < 0 || lay.description < 0 || lay.amount < 0 {
		return lay, core.NewError(core.CodeMalformedStatement,
			"statement header missing required columns: %q", header)
	}
	return lay, nil
}

func parseRow(record []string, lay layout) (core.OriginTransaction, bool) {
	field := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var tx core.OriginTransaction

	day, err := time.Parse(dateLayout, field(lay.postingDate))
	if err != nil {
		return tx, false
	}
	cents, err := core.ParseSignedCents(field(lay.amount))
	if err != nil {
		return tx, false
	}

	tx.PostingDate = core.Date{Time: day.UTC()}
	tx.Description = field(lay.description)
	tx.Amount = core.Money{Cents: cents}
	tx.Type = core.OriginType(strings.ToUpper(field(lay.details)))
	tx.BankType = field(lay.bankType)
	tx.CheckOrSlip = field(lay.checkOrSlip)
	tx.Classification1 = field(lay.class1)
	tx.Classification2 = field(lay.class2)

	// The balance column is informational and sometimes blank on pending
	// rows; a blank balance is not a reason to drop the row.
	if raw := field(lay.balance); raw != "" {
		if balCents, err := core.ParseSignedCents(raw); err == nil {
			tx.Balance = core.Money{Cents: balCents}
		}
	}

	return tx, true
}
