package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tally/internal/core"
)

// transactionJoin is the shape shared by the listing and count queries: the
// category is mandatory, attachments are optional.
const transactionJoin = `
FROM transactions t
JOIN categories c ON c.id = t.category_id
LEFT JOIN attachments a ON a.transaction_id = t.id`

type scanner interface {
	Scan(dest ...any) error
}

// jsonAttachment mirrors the json_object assembled by the listing query.
type jsonAttachment struct {
	ID       int64  `json:"id"`
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
}

type ListTransactionsParams struct {
	UserID int64
	Filter core.TransactionFilter
	Limit  int64
	Offset int64
}

// ListTransactions returns one page of transactions with category and
// attachments resolved in a single query. Attachments are collapsed per
// transaction with json_group_array, so a row count is never inflated by
// the join.
func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]core.TransactionDetails, error) {
	cf, err := compileFilter(arg.UserID, arg.Filter)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT t.id, t.user_id, t.category_id, t.amount_cents, t.note, t.txn_date,
       t.created_at, t.updated_at, c.name, c.type,
       json_group_array(json_object(
           'id', a.id,
           'fileName', a.file_name,
           'filePath', a.file_path,
           'fileType', a.file_type,
           'fileSize', a.file_size
       )) FILTER (WHERE a.id IS NOT NULL) AS attachments
%s
WHERE %s
GROUP BY t.id
ORDER BY %s
LIMIT ? OFFSET ?`, transactionJoin, cf.whereSQL(), cf.orderBy)

	args := append(cf.args, arg.Limit, arg.Offset)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	items := []core.TransactionDetails{}
	for rows.Next() {
		var (
			item     core.TransactionDetails
			date     string
			attached string
		)
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.CategoryID, &item.Amount.Cents,
			&item.Note, &date, &item.CreatedAt, &item.UpdatedAt,
			&item.CategoryName, &item.CategoryType, &attached,
		); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		if item.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", date, err)
		}

		var parsed []jsonAttachment
		if err := json.Unmarshal([]byte(attached), &parsed); err != nil {
			return nil, fmt.Errorf("decode attachments for transaction %d: %w", item.ID, err)
		}
		item.Attachments = make([]core.Attachment, len(parsed))
		for i, a := range parsed {
			item.Attachments[i] = core.Attachment{
				ID:            a.ID,
				TransactionID: item.ID,
				FileName:      a.FileName,
				FilePath:      a.FilePath,
				FileType:      a.FileType,
				FileSize:      a.FileSize,
			}
		}

		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return items, nil
}

// CountTransactions returns the unpaginated total for the same filter and
// join shape as ListTransactions.
func (q *Queries) CountTransactions(ctx context.Context, userID int64, filter core.TransactionFilter) (int64, error) {
	cf, err := compileFilter(userID, filter)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("SELECT COUNT(DISTINCT t.id) %s WHERE %s", transactionJoin, cf.whereSQL())

	var total int64
	if err := q.db.QueryRowContext(ctx, query, cf.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return total, nil
}

type CreateTransactionParams struct {
	UserID      int64
	CategoryID  int64
	AmountCents int64
	Note        string
	Date        core.Date
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (core.Transaction, error) {
	t := core.Transaction{
		UserID:     arg.UserID,
		CategoryID: arg.CategoryID,
		Amount:     core.Money{Cents: arg.AmountCents},
		Note:       arg.Note,
		Date:       arg.Date,
	}

	err := q.db.QueryRowContext(ctx, `
INSERT INTO transactions (user_id, category_id, amount_cents, note, txn_date)
VALUES (?, ?, ?, ?, ?)
RETURNING id, created_at, updated_at`,
		arg.UserID, arg.CategoryID, arg.AmountCents, arg.Note, arg.Date.String(),
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	return t, nil
}

// GetTransaction loads a single transaction scoped by both id and owner, so
// another user's row is indistinguishable from a missing one.
func (q *Queries) GetTransaction(ctx context.Context, id, userID int64) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx, `
SELECT id, user_id, category_id, amount_cents, note, txn_date, created_at, updated_at
FROM transactions
WHERE id = ? AND user_id = ?`, id, userID)

	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

type UpdateTransactionParams struct {
	ID          int64
	UserID      int64
	CategoryID  *int64
	AmountCents *int64
	Note        *string
	Date        *core.Date
}

// UpdateTransaction changes only the supplied columns. Callers must pass at
// least one change.
func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) error {
	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []any{}

	if arg.CategoryID != nil {
		sets = append(sets, "category_id = ?")
		args = append(args, *arg.CategoryID)
	}
	if arg.AmountCents != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, *arg.AmountCents)
	}
	if arg.Note != nil {
		sets = append(sets, "note = ?")
		args = append(args, *arg.Note)
	}
	if arg.Date != nil {
		sets = append(sets, "txn_date = ?")
		args = append(args, arg.Date.String())
	}

	query := fmt.Sprintf("UPDATE transactions SET %s WHERE id = ? AND user_id = ?", strings.Join(sets, ", "))
	args = append(args, arg.ID, arg.UserID)

	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %d: %w", arg.ID, core.ErrNotFound)
	}
	return nil
}

// DeleteTransaction removes the row; attachment rows go with it via the
// foreign key cascade.
func (q *Queries) DeleteTransaction(ctx context.Context, id, userID int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		t    core.Transaction
		date string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.CategoryID, &t.Amount.Cents, &t.Note, &date, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	return t, nil
}
