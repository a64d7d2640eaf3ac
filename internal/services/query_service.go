// Package services holds the orchestration layer: the transaction read
// path, the mutation coordinator that keeps database rows and attachment
// files in step, and the recurring rule processor.
package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"tally/internal/attach"
	"tally/internal/core"
	"tally/internal/storage"
)

// QueryService is the transaction read path. It compiles the caller's
// filter once, runs the page and count queries against the same predicate,
// and materializes attachment URLs on the way out.
type QueryService struct {
	store *storage.Store
	files *attach.Store
}

func NewQueryService(store *storage.Store, files *attach.Store) *QueryService {
	return &QueryService{
		store: store,
		files: files,
	}
}

// List returns one page of the caller's transactions plus the unpaginated
// total for the same filter. A limit of 0 is legal and returns an empty
// page with a correct total.
func (s *QueryService) List(ctx context.Context, userID int64, filter core.TransactionFilter, limit, offset int64) (core.TransactionPage, error) {
	if limit < 0 || offset < 0 {
		return core.TransactionPage{}, core.ErrInvalidPage
	}
	if err := filter.Validate(); err != nil {
		return core.TransactionPage{}, err
	}

	// Page and total come from two queries over the same predicate; run
	// them concurrently, they only read.
	var (
		items []core.TransactionDetails
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.store.ListTransactions(gctx, storage.ListTransactionsParams{
			UserID: userID,
			Filter: filter,
			Limit:  limit,
			Offset: offset,
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.CountTransactions(gctx, userID, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}

	for i := range items {
		for j := range items[i].Attachments {
			items[i].Attachments[j].URL = s.files.URL(items[i].Attachments[j].FilePath)
		}
	}

	return core.TransactionPage{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}
