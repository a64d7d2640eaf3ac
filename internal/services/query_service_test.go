package services

import (
	"context"
	"errors"
	"testing"

	"tally/internal/core"
)

func TestQueryService_ListRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "alice")

	start := core.NewDate(2025, 6, 1)
	end := core.NewDate(2025, 5, 1)

	tests := []struct {
		name    string
		filter  core.TransactionFilter
		limit   int64
		offset  int64
		wantErr error
	}{
		{"negative limit", core.TransactionFilter{}, -1, 0, core.ErrInvalidPage},
		{"negative offset", core.TransactionFilter{}, 10, -1, core.ErrInvalidPage},
		{"inverted date range", core.TransactionFilter{StartDate: &start, EndDate: &end}, 10, 0, core.ErrInvalidDateRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.query.List(ctx, user.ID, tt.filter, tt.limit, tt.offset)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestQueryService_ListZeroLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "alice")
	cat := env.seedCategory(t, nil, "Food", core.Expense)

	for day := 1; day <= 2; day++ {
		if _, err := env.mutations.Add(ctx, user.ID, AddParams{
			CategoryID: cat.ID,
			Amount:     core.Money{Cents: int64(day) * 100},
			Date:       core.NewDate(2025, 7, day),
		}); err != nil {
			t.Fatalf("Add day %d: %v", day, err)
		}
	}

	// limit 0 is a count-only probe: empty page, real total
	page, err := env.query.List(ctx, user.ID, core.TransactionFilter{}, 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("expected empty page, got %d items", len(page.Items))
	}
	if page.Total != 2 {
		t.Fatalf("expected total 2, got %d", page.Total)
	}
	if !page.HasMore() {
		t.Fatalf("expected HasMore with rows beyond an empty page")
	}
}
