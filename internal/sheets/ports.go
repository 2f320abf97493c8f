// Package sheets defines the ports for exporting spending summaries to
// spreadsheet backends.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// SummaryRow is one exported line: a month's totals for one root category.
type SummaryRow struct {
	Month   string
	Caption string
	Debit   core.Money
	Credit  core.Money
	Saldo   core.Money
}

// SummaryWriter appends monthly spending summary rows to a sheet.
type SummaryWriter interface {
	WriteMonthlySummary(ctx context.Context, rows []SummaryRow) error
}
