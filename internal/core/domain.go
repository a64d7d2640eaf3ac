package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// MaxNoteLength bounds the free-text note on a transaction.
const MaxNoteLength = 500

// MaxSearchLength bounds the substring search term of a filter.
const MaxSearchLength = 100

type (
	TransactionType string

	Frequency string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID       int64
		Name     string
		APIToken string
	}

	// Category is a classification a transaction points at. A nil OwnerID
	// marks a global category visible to every user. Categories are
	// read-only from this service; they are seeded by migration.
	Category struct {
		ID       int64
		OwnerID  *int64
		Name     string
		Type     TransactionType
		IsActive bool
	}

	Transaction struct {
		ID         int64
		UserID     int64
		CategoryID int64
		Amount     Money
		Note       string
		Date       Date
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}

	// Attachment is a file linked to a transaction. FilePath is the stored
	// name on disk, FileName the original upload name, FileHash the SHA-256
	// hex digest of the content. URL is derived on the read path, never
	// stored.
	Attachment struct {
		ID            int64
		TransactionID int64
		FileName      string
		FilePath      string
		FileType      string
		FileSize      int64
		FileHash      string
		URL           string
		CreatedAt     time.Time
	}

	// FileUpload is an incoming attachment before it is persisted.
	FileUpload struct {
		FileName string
		FileType string
		Data     []byte
	}

	RecurringRule struct {
		ID          int64
		UserID      int64
		CategoryID  int64
		Amount      Money
		Note        string
		Frequency   Frequency
		StartDate   Date
		EndDate     Date // zero means open-ended
		LastRunDate Date // zero means never run
		IsActive    bool
	}

	// TransactionFilter narrows a listing. Nil/empty fields place no
	// restriction. All bounds are inclusive.
	TransactionFilter struct {
		StartDate   *Date
		EndDate     *Date
		CategoryIDs []int64
		Type        *TransactionType
		MinCents    *int64
		MaxCents    *int64
		Search      string
		SortBy      string
		SortDir     string
	}
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")

	ErrInvalidAmount      = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidDate        = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidDateRange   = fmt.Errorf("%w: start date after end date", ErrValidation)
	ErrInvalidAmountRange = fmt.Errorf("%w: min amount above max amount", ErrValidation)
	ErrInvalidType        = fmt.Errorf("%w: invalid transaction type", ErrValidation)
	ErrInvalidSort        = fmt.Errorf("%w: unsupported sort column", ErrValidation)
	ErrInvalidPage        = fmt.Errorf("%w: negative limit or offset", ErrValidation)
	ErrNoteTooLong        = fmt.Errorf("%w: note too long", ErrValidation)
	ErrSearchTooLong      = fmt.Errorf("%w: search term too long", ErrValidation)
	ErrEmptyUpdate        = fmt.Errorf("%w: no changes requested", ErrValidation)
	ErrEmptyFile          = fmt.Errorf("%w: empty file", ErrValidation)
	ErrEmptyFileName      = fmt.Errorf("%w: missing file name", ErrValidation)
	ErrFileTooLarge       = fmt.Errorf("%w: file too large", ErrValidation)
	ErrCategoryNotFound   = fmt.Errorf("%w: category not found", ErrValidation)
)

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

func (f Frequency) Validate() error {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	default:
		return fmt.Errorf("%w: invalid frequency", ErrValidation)
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.CategoryID <= 0 {
		return ErrCategoryNotFound
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(t.Note) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

func (u FileUpload) Validate() error {
	if strings.TrimSpace(u.FileName) == "" {
		return ErrEmptyFileName
	}
	if len(u.Data) == 0 {
		return ErrEmptyFile
	}
	return nil
}

// Validate checks the filter's range invariants. Sort column and direction
// are validated where they are compiled into SQL.
func (f TransactionFilter) Validate() error {
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(f.EndDate.Time) {
		return ErrInvalidDateRange
	}
	if f.MinCents != nil && f.MaxCents != nil && *f.MinCents > *f.MaxCents {
		return ErrInvalidAmountRange
	}
	if f.Type != nil {
		if err := f.Type.Validate(); err != nil {
			return err
		}
	}
	if len(f.Search) > MaxSearchLength {
		return ErrSearchTooLong
	}
	return nil
}

func (r RecurringRule) Validate() error {
	if r.CategoryID <= 0 {
		return ErrCategoryNotFound
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if err := r.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if !r.EndDate.IsZero() {
		if err := r.EndDate.Validate(); err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
		if r.EndDate.Before(r.StartDate.Time) {
			return fmt.Errorf("%w: end date before start date", ErrValidation)
		}
	}
	if err := r.Frequency.Validate(); err != nil {
		return err
	}
	if len(r.Note) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}
