package services

import (
	"context"
	"testing"

	"tally/internal/core"
	"tally/internal/storage"
)

func (e *testEnv) seedRule(t *testing.T, userID, categoryID, cents int64, note string, freq core.Frequency, start core.Date) core.RecurringRule {
	t.Helper()
	r, err := e.store.CreateRecurringRule(context.Background(), storage.CreateRecurringRuleParams{
		UserID:      userID,
		CategoryID:  categoryID,
		AmountCents: cents,
		Note:        note,
		Frequency:   freq,
		StartDate:   start,
	})
	if err != nil {
		t.Fatalf("CreateRecurringRule: %v", err)
	}
	return r
}

func TestRecurringProcessor_ProcessDueRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "alice")
	cat := env.seedCategory(t, nil, "Subscriptions", core.Expense)
	processor := NewRecurringProcessor(env.store, env.mutations)
	day := core.NewDate(2025, 6, 17)

	// never run, so due regardless of frequency
	dueRule := env.seedRule(t, user.ID, cat.ID, 999, "streaming", core.Monthly, core.NewDate(2025, 1, 15))

	// weekly rule that already fired two days ago
	recent := env.seedRule(t, user.ID, cat.ID, 450, "coffee club", core.Weekly, core.NewDate(2025, 6, 2))
	if err := env.store.SetRecurringLastRun(ctx, recent.ID, core.NewDate(2025, 6, 15)); err != nil {
		t.Fatalf("SetRecurringLastRun: %v", err)
	}

	processed, err := processor.ProcessDueRules(ctx, day)
	if err != nil {
		t.Fatalf("ProcessDueRules: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected 1 processed, got %d", processed)
	}

	page, err := env.query.List(ctx, user.ID, core.TransactionFilter{}, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected 1 transaction, got %d", page.Total)
	}
	got := page.Items[0]
	if got.Amount.Cents != 999 || got.Note != "streaming" || got.Date.String() != "2025-06-17" {
		t.Fatalf("created transaction does not match rule: %+v", got)
	}

	// marker advanced, so a second sweep on the same day is a no-op
	rules, err := env.store.ListDueCandidates(ctx, day)
	if err != nil {
		t.Fatalf("ListDueCandidates: %v", err)
	}
	for _, r := range rules {
		if r.ID == dueRule.ID && r.LastRunDate.String() != day.String() {
			t.Fatalf("expected last run %s, got %s", day, r.LastRunDate)
		}
	}

	processed, err = processor.ProcessDueRules(ctx, day)
	if err != nil {
		t.Fatalf("ProcessDueRules rerun: %v", err)
	}
	if processed != 0 {
		t.Fatalf("rerun on the same day must not fire, got %d", processed)
	}
}

func TestRecurringProcessor_ContinuesAfterRuleFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	private := env.seedCategory(t, &bob.ID, "Bob Private", core.Expense)
	shared := env.seedCategory(t, nil, "Rent", core.Expense)
	processor := NewRecurringProcessor(env.store, env.mutations)
	day := core.NewDate(2025, 6, 1)

	// first rule points at a category alice cannot use; the sweep must
	// still reach the second rule
	env.seedRule(t, alice.ID, private.ID, 100, "broken", core.Monthly, core.NewDate(2025, 1, 1))
	env.seedRule(t, alice.ID, shared.ID, 85000, "rent", core.Monthly, core.NewDate(2025, 1, 1))

	processed, err := processor.ProcessDueRules(ctx, day)
	if err != nil {
		t.Fatalf("ProcessDueRules: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected 1 processed, got %d", processed)
	}

	page, err := env.query.List(ctx, alice.ID, core.TransactionFilter{}, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 1 || page.Items[0].Amount.Cents != 85000 {
		t.Fatalf("expected only the rent transaction, got %+v", page)
	}
}

func TestRecurringProcessor_NotInitialized(t *testing.T) {
	var processor RecurringProcessor
	if _, err := processor.ProcessDueRules(context.Background(), core.NewDate(2025, 6, 1)); err == nil {
		t.Fatalf("expected error from zero-value processor")
	}
}
