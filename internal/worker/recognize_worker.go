// Package worker runs fintrack's background processing: merchant
// recognition for freshly imported transactions and the periodic summary
// export.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// Recognizer runs the bulk merchant pass over unrecognized transactions.
type Recognizer interface {
	Recognize(ctx context.Context) ([]core.Transaction, error)
}

// SummarySource produces the rows for the spreadsheet export.
type SummarySource interface {
	MonthlySummaryRows(ctx context.Context, userID string) ([]sheets.SummaryRow, error)
}

// Config holds the worker's tunables.
type Config struct {
	// PollInterval is how often the recognize pass runs when no import
	// events arrive.
	PollInterval time.Duration

	// ExportInterval is how often the summary export runs. Zero disables
	// the periodic export.
	ExportInterval time.Duration

	// ExportUserID selects whose spending is exported.
	ExportUserID string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:   5 * time.Minute,
		ExportInterval: 24 * time.Hour,
	}
}

// RecognizeWorker consumes import events and periodically re-runs the
// merchant pass so transactions imported while the broker was down are
// still picked up.
type RecognizeWorker struct {
	recognizer Recognizer
	summaries  SummarySource
	exporter   sheets.SummaryWriter
	config     Config

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New builds a worker. summaries and exporter may both be nil to disable
// the export.
func New(recognizer Recognizer, summaries SummarySource, exporter sheets.SummaryWriter, config Config) *RecognizeWorker {
	return &RecognizeWorker{
		recognizer: recognizer,
		summaries:  summaries,
		exporter:   exporter,
		config:     config,
	}
}

// HandleImportEvent reacts to one import-completed message.
func (w *RecognizeWorker) HandleImportEvent(ctx context.Context, msg *amqp.ImportCompletedMessage) error {
	slog.InfoContext(ctx, "Processing import event",
		"account_id", msg.AccountID,
		"new_transactions", msg.NewTransactions)
	return w.runRecognizePass(ctx)
}

// Start begins the periodic loop. Returns an error if already running.
func (w *RecognizeWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("recognize worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Recognize worker started",
		"poll_interval", w.config.PollInterval,
		"export_interval", w.config.ExportInterval)
	return nil
}

// Stop gracefully stops the loop and waits for completion.
func (w *RecognizeWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		slog.InfoContext(ctx, "Recognize worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Recognize worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

// IsRunning reports whether the loop is active.
func (w *RecognizeWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *RecognizeWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	pollTicker := time.NewTicker(w.config.PollInterval)
	defer pollTicker.Stop()

	var exportCh <-chan time.Time
	if w.config.ExportInterval > 0 && w.exporter != nil && w.summaries != nil {
		exportTicker := time.NewTicker(w.config.ExportInterval)
		defer exportTicker.Stop()
		exportCh = exportTicker.C
	}

	// Catch up immediately on startup.
	if err := w.runRecognizePass(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup recognize pass failed", "error", err)
	}

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			if err := w.runRecognizePass(ctx); err != nil {
				slog.ErrorContext(ctx, "Recognize pass failed", "error", err)
			}
		case <-exportCh:
			if err := w.runExport(ctx); err != nil {
				slog.ErrorContext(ctx, "Summary export failed", "error", err)
			}
		}
	}
}

func (w *RecognizeWorker) runRecognizePass(ctx context.Context) error {
	updated, err := w.recognizer.Recognize(ctx)
	if err != nil {
		return fmt.Errorf("recognize pass: %w", err)
	}
	if len(updated) > 0 {
		slog.InfoContext(ctx, "Recognize pass claimed transactions", "count", len(updated))
	}
	return nil
}

func (w *RecognizeWorker) runExport(ctx context.Context) error {
	rows, err := w.summaries.MonthlySummaryRows(ctx, w.config.ExportUserID)
	if err != nil {
		return fmt.Errorf("build summary rows: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := w.exporter.WriteMonthlySummary(ctx, rows); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	slog.InfoContext(ctx, "Summary exported", "rows", len(rows))
	return nil
}
