package services

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/core"
	"tally/internal/storage"
)

// RecurringProcessor creates transactions from recurring rules. It runs the
// same Add path direct requests use, so category validation and event
// publishing behave identically for generated transactions.
type RecurringProcessor struct {
	store     *storage.Store
	mutations *MutationService
}

func NewRecurringProcessor(store *storage.Store, mutations *MutationService) *RecurringProcessor {
	return &RecurringProcessor{
		store:     store,
		mutations: mutations,
	}
}

// ProcessDueRules walks every active rule that has started and not ended as
// of day, creates a transaction for each rule whose frequency says it is
// due, and advances the rule's last-run marker. A failure on one rule never
// aborts the sweep.
func (p *RecurringProcessor) ProcessDueRules(ctx context.Context, day core.Date) (int, error) {
	if p.store == nil || p.mutations == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	rules, err := p.store.ListDueCandidates(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("list due candidates: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring rules",
		"candidates", len(rules),
		"processing_date", day.String())

	processed := 0

	for _, rule := range rules {
		checker, err := GetDuenessChecker(rule.Frequency)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping rule with unknown frequency",
				"rule_id", rule.ID,
				"frequency", rule.Frequency,
				"error", err)
			continue
		}

		if !checker.IsDue(rule.LastRunDate.Time, day.Time, rule.StartDate) {
			continue
		}

		_, err = p.mutations.Add(ctx, rule.UserID, AddParams{
			CategoryID: rule.CategoryID,
			Amount:     rule.Amount,
			Note:       rule.Note,
			Date:       day,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create transaction from rule",
				"rule_id", rule.ID,
				"error", err)
			continue
		}

		// The marker is what keeps a rerun on the same day from producing
		// a second transaction.
		if err := p.store.SetRecurringLastRun(ctx, rule.ID, day); err != nil {
			slog.ErrorContext(ctx, "Failed to advance last run date",
				"rule_id", rule.ID,
				"error", err)
			// Continue anyway - the transaction was created
		}

		processed++
		slog.InfoContext(ctx, "Created transaction from recurring rule",
			"rule_id", rule.ID,
			"user_id", rule.UserID,
			"amount_cents", rule.Amount.Cents,
			"frequency", rule.Frequency)
	}

	slog.InfoContext(ctx, "Recurring rule processing complete",
		"processed", processed,
		"candidates", len(rules))

	return processed, nil
}
