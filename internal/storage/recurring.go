package storage

import (
	"context"
	"database/sql"
	"fmt"

	"tally/internal/core"
)

// ListDueCandidates returns the active rules that have started and not
// ended as of the given day, across all users. Whether a candidate is
// actually due is decided by the frequency checkers, not here.
func (q *Queries) ListDueCandidates(ctx context.Context, day core.Date) ([]core.RecurringRule, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT id, user_id, category_id, amount_cents, note, frequency,
       start_date, end_date, last_run_date, is_active
FROM recurring_rules
WHERE is_active = 1
  AND start_date <= ?
  AND (end_date IS NULL OR end_date >= ?)
ORDER BY id`, day.String(), day.String())
	if err != nil {
		return nil, fmt.Errorf("list due candidates: %w", err)
	}
	defer rows.Close()

	var rules []core.RecurringRule
	for rows.Next() {
		r, err := scanRecurringRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurring rules: %w", err)
	}
	return rules, nil
}

// SetRecurringLastRun advances the idempotency marker after a rule has
// produced its transaction for the period.
func (q *Queries) SetRecurringLastRun(ctx context.Context, id int64, day core.Date) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE recurring_rules SET last_run_date = ? WHERE id = ?", day.String(), id)
	if err != nil {
		return fmt.Errorf("set recurring last run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set recurring last run rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("recurring rule %d: %w", id, core.ErrNotFound)
	}
	return nil
}

type CreateRecurringRuleParams struct {
	UserID      int64
	CategoryID  int64
	AmountCents int64
	Note        string
	Frequency   core.Frequency
	StartDate   core.Date
	EndDate     core.Date // zero for open-ended
}

func (q *Queries) CreateRecurringRule(ctx context.Context, arg CreateRecurringRuleParams) (core.RecurringRule, error) {
	r := core.RecurringRule{
		UserID:     arg.UserID,
		CategoryID: arg.CategoryID,
		Amount:     core.Money{Cents: arg.AmountCents},
		Note:       arg.Note,
		Frequency:  arg.Frequency,
		StartDate:  arg.StartDate,
		EndDate:    arg.EndDate,
		IsActive:   true,
	}

	var endDate any
	if !arg.EndDate.IsZero() {
		endDate = arg.EndDate.String()
	}
	err := q.db.QueryRowContext(ctx, `
INSERT INTO recurring_rules (user_id, category_id, amount_cents, note, frequency, start_date, end_date)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`,
		arg.UserID, arg.CategoryID, arg.AmountCents, arg.Note, string(arg.Frequency),
		arg.StartDate.String(), endDate,
	).Scan(&r.ID)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("insert recurring rule: %w", err)
	}
	return r, nil
}

func scanRecurringRule(row scanner) (core.RecurringRule, error) {
	var (
		r         core.RecurringRule
		startDate string
		endDate   sql.NullString
		lastRun   sql.NullString
	)
	err := row.Scan(&r.ID, &r.UserID, &r.CategoryID, &r.Amount.Cents, &r.Note,
		&r.Frequency, &startDate, &endDate, &lastRun, &r.IsActive)
	if err != nil {
		return core.RecurringRule{}, err
	}

	if r.StartDate, err = core.ParseDate(startDate); err != nil {
		return core.RecurringRule{}, fmt.Errorf("parse start date %q: %w", startDate, err)
	}
	if endDate.Valid {
		if r.EndDate, err = core.ParseDate(endDate.String); err != nil {
			return core.RecurringRule{}, fmt.Errorf("parse end date %q: %w", endDate.String, err)
		}
	}
	if lastRun.Valid {
		if r.LastRunDate, err = core.ParseDate(lastRun.String); err != nil {
			return core.RecurringRule{}, fmt.Errorf("parse last run date %q: %w", lastRun.String, err)
		}
	}
	return r, nil
}
