package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tally/internal/core"
)

type CreateAttachmentParams struct {
	TransactionID int64
	FileName      string
	FilePath      string
	FileType      string
	FileSize      int64
	FileHash      string
}

func (q *Queries) CreateAttachment(ctx context.Context, arg CreateAttachmentParams) (core.Attachment, error) {
	a := core.Attachment{
		TransactionID: arg.TransactionID,
		FileName:      arg.FileName,
		FilePath:      arg.FilePath,
		FileType:      arg.FileType,
		FileSize:      arg.FileSize,
		FileHash:      arg.FileHash,
	}

	err := q.db.QueryRowContext(ctx, `
INSERT INTO attachments (transaction_id, file_name, file_path, file_type, file_size, file_hash)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, created_at`,
		arg.TransactionID, arg.FileName, arg.FilePath, arg.FileType, arg.FileSize, arg.FileHash,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return core.Attachment{}, fmt.Errorf("insert attachment: %w", err)
	}

	return a, nil
}

// AttachmentExists reports whether the transaction already holds a file with
// this content hash.
func (q *Queries) AttachmentExists(ctx context.Context, transactionID int64, fileHash string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM attachments WHERE transaction_id = ? AND file_hash = ?)",
		transactionID, fileHash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attachment hash: %w", err)
	}
	return exists, nil
}

// GetAttachment loads an attachment scoped to its transaction, so an id
// belonging to another transaction reads as missing.
func (q *Queries) GetAttachment(ctx context.Context, id, transactionID int64) (core.Attachment, error) {
	var a core.Attachment
	err := q.db.QueryRowContext(ctx, `
SELECT id, transaction_id, file_name, file_path, file_type, file_size, file_hash, created_at
FROM attachments
WHERE id = ? AND transaction_id = ?`, id, transactionID,
	).Scan(&a.ID, &a.TransactionID, &a.FileName, &a.FilePath, &a.FileType, &a.FileSize, &a.FileHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Attachment{}, fmt.Errorf("attachment %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Attachment{}, fmt.Errorf("get attachment: %w", err)
	}
	return a, nil
}

func (q *Queries) ListAttachmentsByTransaction(ctx context.Context, transactionID int64) ([]core.Attachment, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT id, transaction_id, file_name, file_path, file_type, file_size, file_hash, created_at
FROM attachments
WHERE transaction_id = ?
ORDER BY id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []core.Attachment
	for rows.Next() {
		var a core.Attachment
		if err := rows.Scan(&a.ID, &a.TransactionID, &a.FileName, &a.FilePath, &a.FileType, &a.FileSize, &a.FileHash, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attachment row: %w", err)
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return attachments, nil
}

func (q *Queries) DeleteAttachment(ctx context.Context, id, transactionID int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM attachments WHERE id = ? AND transaction_id = ?", id, transactionID)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete attachment rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("attachment %d: %w", id, core.ErrNotFound)
	}
	return nil
}
