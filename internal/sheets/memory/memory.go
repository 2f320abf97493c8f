// Package memory is an in-process summary sink used in tests and when no
// spreadsheet backend is configured.
package memory

import (
	"context"
	"sync"

	"fintrack/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []sheets.SummaryRow
}

func New() *Store {
	return &Store{}
}

// WriteMonthlySummary appends the rows to the in-memory sink.
func (s *Store) WriteMonthlySummary(_ context.Context, rows []sheets.SummaryRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return nil
}

// Rows returns a copy of everything written so far.
func (s *Store) Rows() []sheets.SummaryRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.SummaryRow(nil), s.rows...)
}
