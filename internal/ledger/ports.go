package ledger

import (
	"context"
	"time"

	"tally/internal/core"
)

// Entry is one journal row: a transaction event flattened for export. The
// snapshot travels in the event itself, so writing an entry never needs the
// database.
type Entry struct {
	Event         string
	TransactionID int64
	UserID        int64
	Date          string
	Amount        core.Money
	CategoryName  string
	CategoryType  string
	Note          string
	OccurredAt    time.Time
}

// Ports for outbound adapters.
type (
	Appender interface {
		Append(ctx context.Context, e Entry) (rowRef string, err error)
	}
)
