package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/amqp"
	"tally/internal/attach"
	"tally/internal/core"
	"tally/internal/storage"
)

// MutationService coordinates create, update and delete of a transaction
// together with its attachments. Row changes run in one database
// transaction; files live outside it, so the service compensates: files
// written during a failed attempt are removed before the error returns, and
// files belonging to deleted rows are unlinked only after the commit.
type MutationService struct {
	store      *storage.Store
	files      *attach.Store
	amqpClient *amqp.Client
}

func NewMutationService(store *storage.Store, files *attach.Store, amqpClient *amqp.Client) *MutationService {
	return &MutationService{
		store:      store,
		files:      files,
		amqpClient: amqpClient,
	}
}

type AddParams struct {
	CategoryID int64
	Amount     core.Money
	Note       string
	Date       core.Date
	Files      []core.FileUpload
}

// AddResult reports the created transaction and what happened to each
// uploaded file. Skipped holds the original names of uploads whose content
// was already attached to this transaction.
type AddResult struct {
	Transaction core.Transaction
	Attachments []core.Attachment
	Skipped     []string
}

type UpdateParams struct {
	CategoryID          *int64
	Amount              *core.Money
	Note                *string
	Date                *core.Date
	DeleteAttachmentIDs []int64
	Files               []core.FileUpload
}

func (p UpdateParams) hasFieldChanges() bool {
	return p.CategoryID != nil || p.Amount != nil || p.Note != nil || p.Date != nil
}

func (p UpdateParams) empty() bool {
	return !p.hasFieldChanges() && len(p.DeleteAttachmentIDs) == 0 && len(p.Files) == 0
}

// UpdateResult reports the transaction as committed plus the attachment
// outcome. Attachments is the full set after the update, Added just the
// ones this request created. CleanupFailed lists stored names whose disk
// unlink failed after the commit; the rows for those files are gone.
type UpdateResult struct {
	Transaction   core.Transaction
	Attachments   []core.Attachment
	Added         []core.Attachment
	Skipped       []string
	CleanupFailed []string
}

type DeleteResult struct {
	CleanupFailed []string
}

// Add creates a transaction and its attachments as one unit. The category
// reference must resolve to an active category that is global or owned by
// the caller.
func (s *MutationService) Add(ctx context.Context, userID int64, p AddParams) (_ AddResult, err error) {
	t := core.Transaction{
		UserID:     userID,
		CategoryID: p.CategoryID,
		Amount:     p.Amount,
		Note:       p.Note,
		Date:       p.Date,
	}
	if err := t.Validate(); err != nil {
		return AddResult{}, err
	}
	for _, f := range p.Files {
		if err := s.files.ValidateUpload(f); err != nil {
			return AddResult{}, err
		}
	}

	// Files written this attempt; removed again if anything below fails,
	// since their rows will never commit.
	var written []string
	defer func() {
		if err != nil {
			s.discard(ctx, written)
		}
	}()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return AddResult{}, err
	}
	defer tx.Rollback()
	q := s.store.WithTx(tx)

	category, err := q.GetCategoryForUser(ctx, p.CategoryID, userID)
	if err != nil {
		return AddResult{}, err
	}

	created, err := q.CreateTransaction(ctx, storage.CreateTransactionParams{
		UserID:      userID,
		CategoryID:  p.CategoryID,
		AmountCents: p.Amount.Cents,
		Note:        p.Note,
		Date:        p.Date,
	})
	if err != nil {
		return AddResult{}, err
	}

	attachments, skipped, err := s.attachFiles(ctx, q, created.ID, p.Files, &written)
	if err != nil {
		return AddResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return AddResult{}, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", created.ID,
		"user_id", userID,
		"amount_cents", p.Amount.Cents,
		"attachments", len(attachments),
		"skipped_duplicates", len(skipped))

	s.publishEvent(ctx, amqp.EventCreated, created, category)

	return AddResult{Transaction: created, Attachments: attachments, Skipped: skipped}, nil
}

// Update applies a sparse patch: any subset of the transaction's fields,
// attachment deletions, and new files. An update that changes nothing at
// all is rejected before the store is touched.
func (s *MutationService) Update(ctx context.Context, userID, id int64, p UpdateParams) (_ UpdateResult, err error) {
	if p.empty() {
		return UpdateResult{}, core.ErrEmptyUpdate
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return UpdateResult{}, err
		}
	}
	if p.Date != nil {
		if err := p.Date.Validate(); err != nil {
			return UpdateResult{}, err
		}
	}
	if p.Note != nil && len(*p.Note) > core.MaxNoteLength {
		return UpdateResult{}, core.ErrNoteTooLong
	}
	for _, f := range p.Files {
		if err := s.files.ValidateUpload(f); err != nil {
			return UpdateResult{}, err
		}
	}

	var written []string
	defer func() {
		if err != nil {
			s.discard(ctx, written)
		}
	}()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return UpdateResult{}, err
	}
	defer tx.Rollback()
	q := s.store.WithTx(tx)

	if p.CategoryID != nil {
		if _, err := q.GetCategoryForUser(ctx, *p.CategoryID, userID); err != nil {
			return UpdateResult{}, err
		}
	}

	if p.hasFieldChanges() {
		var amountCents *int64
		if p.Amount != nil {
			amountCents = &p.Amount.Cents
		}
		err = q.UpdateTransaction(ctx, storage.UpdateTransactionParams{
			ID:          id,
			UserID:      userID,
			CategoryID:  p.CategoryID,
			AmountCents: amountCents,
			Note:        p.Note,
			Date:        p.Date,
		})
	} else {
		// Attachment-only change: the ownership check still has to happen.
		_, err = q.GetTransaction(ctx, id, userID)
	}
	if err != nil {
		return UpdateResult{}, err
	}

	// Rows for removed attachments go now; their files are unlinked only
	// after the commit, so a rollback never loses a file.
	var doomed []string
	for _, attachmentID := range p.DeleteAttachmentIDs {
		a, err := q.GetAttachment(ctx, attachmentID, id)
		if err != nil {
			return UpdateResult{}, err
		}
		if err := q.DeleteAttachment(ctx, attachmentID, id); err != nil {
			return UpdateResult{}, err
		}
		doomed = append(doomed, a.FilePath)
	}

	added, skipped, err := s.attachFiles(ctx, q, id, p.Files, &written)
	if err != nil {
		return UpdateResult{}, err
	}

	updated, err := q.GetTransaction(ctx, id, userID)
	if err != nil {
		return UpdateResult{}, err
	}
	attachments, err := q.ListAttachmentsByTransaction(ctx, id)
	if err != nil {
		return UpdateResult{}, err
	}
	for i := range attachments {
		attachments[i].URL = s.files.URL(attachments[i].FilePath)
	}

	if err := tx.Commit(); err != nil {
		return UpdateResult{}, fmt.Errorf("commit transaction: %w", err)
	}

	cleanupFailed := s.unlink(ctx, doomed)

	slog.InfoContext(ctx, "Transaction updated",
		"id", id,
		"user_id", userID,
		"attachments_added", len(added),
		"attachments_removed", len(doomed),
		"skipped_duplicates", len(skipped))

	s.publishEvent(ctx, amqp.EventUpdated, updated, s.categoryFor(ctx, updated.CategoryID))

	return UpdateResult{
		Transaction:   updated,
		Attachments:   attachments,
		Added:         added,
		Skipped:       skipped,
		CleanupFailed: cleanupFailed,
	}, nil
}

// Delete removes a transaction, its attachment rows (via the foreign key
// cascade) and their files. A transaction the caller does not own reads as
// missing, and nothing is unlinked until the row delete has committed.
func (s *MutationService) Delete(ctx context.Context, userID, id int64) (DeleteResult, error) {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return DeleteResult{}, err
	}
	defer tx.Rollback()
	q := s.store.WithTx(tx)

	t, err := q.GetTransaction(ctx, id, userID)
	if err != nil {
		return DeleteResult{}, err
	}
	category := s.categoryFor(ctx, t.CategoryID)

	attachments, err := q.ListAttachmentsByTransaction(ctx, id)
	if err != nil {
		return DeleteResult{}, err
	}
	doomed := make([]string, 0, len(attachments))
	for _, a := range attachments {
		doomed = append(doomed, a.FilePath)
	}

	if err := q.DeleteTransaction(ctx, id, userID); err != nil {
		return DeleteResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return DeleteResult{}, fmt.Errorf("commit transaction: %w", err)
	}

	cleanupFailed := s.unlink(ctx, doomed)

	slog.InfoContext(ctx, "Transaction deleted",
		"id", id,
		"user_id", userID,
		"attachments_removed", len(doomed))

	s.publishEvent(ctx, amqp.EventDeleted, t, category)

	return DeleteResult{CleanupFailed: cleanupFailed}, nil
}

// attachFiles hashes each upload, skips content already attached to the
// transaction, and persists the rest. The duplicate check reads through q,
// so uncommitted rows from this same request count; writing to disk only
// after the check means the duplicate path leaves nothing to clean up.
func (s *MutationService) attachFiles(ctx context.Context, q *storage.Queries, transactionID int64, files []core.FileUpload, written *[]string) ([]core.Attachment, []string, error) {
	var (
		attachments []core.Attachment
		skipped     []string
	)
	for _, f := range files {
		hash := attach.Digest(f.Data)

		exists, err := q.AttachmentExists(ctx, transactionID, hash)
		if err != nil {
			return nil, nil, err
		}
		if exists {
			slog.InfoContext(ctx, "Skipping duplicate attachment",
				"transaction_id", transactionID,
				"file_name", f.FileName)
			skipped = append(skipped, f.FileName)
			continue
		}

		storedName, err := s.files.Persist(f)
		if err != nil {
			return nil, nil, err
		}
		*written = append(*written, storedName)

		a, err := q.CreateAttachment(ctx, storage.CreateAttachmentParams{
			TransactionID: transactionID,
			FileName:      f.FileName,
			FilePath:      storedName,
			FileType:      f.FileType,
			FileSize:      int64(len(f.Data)),
			FileHash:      hash,
		})
		if err != nil {
			return nil, nil, err
		}
		a.URL = s.files.URL(a.FilePath)
		attachments = append(attachments, a)
	}
	return attachments, skipped, nil
}

// discard removes files written during a failed attempt. Their rows were
// rolled back, so leaving them would orphan disk state.
func (s *MutationService) discard(ctx context.Context, written []string) {
	for _, name := range written {
		if err := s.files.Remove(name); err != nil {
			slog.WarnContext(ctx, "Failed to remove file after rollback",
				"file", name, "error", err)
		}
	}
}

// unlink removes files whose rows are already gone. Failures are reported,
// not fatal: the commit stands either way.
func (s *MutationService) unlink(ctx context.Context, doomed []string) []string {
	var failed []string
	for _, name := range doomed {
		if err := s.files.Remove(name); err != nil {
			slog.WarnContext(ctx, "Failed to remove attachment file",
				"file", name, "error", err)
			failed = append(failed, name)
		}
	}
	return failed
}

// categoryFor resolves a category for event enrichment, best-effort.
func (s *MutationService) categoryFor(ctx context.Context, categoryID int64) core.Category {
	category, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to resolve category for event",
			"category_id", categoryID, "error", err)
		return core.Category{}
	}
	return category
}

func (s *MutationService) publishEvent(ctx context.Context, event amqp.EventType, t core.Transaction, category core.Category) {
	if s.amqpClient == nil {
		return
	}

	msg := &amqp.TransactionEvent{
		Event:         event,
		TransactionID: t.ID,
		UserID:        t.UserID,
		Date:          t.Date.String(),
		AmountCents:   t.Amount.Cents,
		CategoryName:  category.Name,
		CategoryType:  string(category.Type),
		Note:          t.Note,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.amqpClient.PublishTransactionEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"event", event, "transaction_id", t.ID, "error", err)
		// Don't fail the request - the mutation is already committed
	}
}

// Close closes both storage and AMQP connections
func (s *MutationService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close mutation service: %v", errs)
	}

	return nil
}
