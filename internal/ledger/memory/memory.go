// Package memory is an in-process Appender for tests and offline runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"tally/internal/ledger"
)

type Journal struct {
	mu      sync.Mutex
	entries []ledger.Entry
	failErr error
}

func New() *Journal {
	return &Journal{}
}

// Append stores the entry and returns a synthetic row reference.
func (j *Journal) Append(_ context.Context, e ledger.Entry) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.failErr != nil {
		return "", j.failErr
	}
	j.entries = append(j.entries, e)
	return fmt.Sprintf("mem:%d", len(j.entries)), nil
}

// Entries returns a copy of everything appended so far.
func (j *Journal) Entries() []ledger.Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]ledger.Entry(nil), j.entries...)
}

// FailWith makes every following Append return err.
func (j *Journal) FailWith(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failErr = err
}
