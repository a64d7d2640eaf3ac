// Package worker contains the export worker that mirrors transaction events
// into the ledger journal.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/ledger"
)

// ExportWorker appends one journal row per transaction event. Events carry
// the full transaction snapshot, so the worker never reads the database;
// deleted transactions export just as well as live ones.
type ExportWorker struct {
	journal ledger.Appender
}

func NewExportWorker(journal ledger.Appender) *ExportWorker {
	return &ExportWorker{journal: journal}
}

// HandleEvent processes a single transaction event. A returned error makes
// the consumer requeue the delivery.
func (w *ExportWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEvent) error {
	if w.journal == nil {
		return fmt.Errorf("no ledger appender configured")
	}

	slog.InfoContext(ctx, "Processing transaction event",
		"event", msg.Event,
		"transaction_id", msg.TransactionID)

	entry := ledger.Entry{
		Event:         string(msg.Event),
		TransactionID: msg.TransactionID,
		UserID:        msg.UserID,
		Date:          msg.Date,
		Amount:        core.Money{Cents: msg.AmountCents},
		CategoryName:  msg.CategoryName,
		CategoryType:  msg.CategoryType,
		Note:          msg.Note,
		OccurredAt:    msg.OccurredAt,
	}

	rowRef, err := w.journal.Append(ctx, entry)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}

	slog.InfoContext(ctx, "Exported transaction event",
		"event", msg.Event,
		"transaction_id", msg.TransactionID,
		"row_ref", rowRef)

	return nil
}
