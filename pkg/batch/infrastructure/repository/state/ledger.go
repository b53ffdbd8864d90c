package state

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/nameforge/pkg/batch/core/domain/repository"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
)

const failuresDir = "failures"

// FailureLedger keeps one document per failed item under failures/.
type FailureLedger struct {
	docs       repository.DocumentStore
	now        func() time.Time
	maxRetries int
	entries    map[string]model.FailureLedgerEntry
}

// NewFailureLedger creates a FailureLedger with the given retry budget.
func NewFailureLedger(docs repository.DocumentStore, maxRetries int, now func() time.Time) *FailureLedger {
	return &FailureLedger{
		docs:       docs,
		now:        now,
		maxRetries: maxRetries,
		entries:    make(map[string]model.FailureLedgerEntry),
	}
}

// Load reads every ledger entry.
func (l *FailureLedger) Load(ctx context.Context) error {
	keys, err := l.docs.List(ctx, failuresDir+"/")
	if err != nil {
		return exception.NewStorageError("ledger", "failed to list failure ledger", err)
	}
	entries := make(map[string]model.FailureLedgerEntry, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		var entry model.FailureLedgerEntry
		found, err := getJSON(ctx, l.docs, key, "ledger", &entry)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if entry.ID == "" {
			name := strings.TrimSuffix(strings.TrimPrefix(key, failuresDir+"/"), ".json")
			if id, err := url.PathUnescape(name); err == nil {
				entry.ID = id
			}
		}
		entries[entry.ID] = entry
	}
	l.entries = entries
	return nil
}

// MaxRetries returns the retry budget.
func (l *FailureLedger) MaxRetries() int {
	return l.maxRetries
}

// RecordFailure inserts id with retries=1, or increments retries and overwrites error and lastAttempt.
func (l *FailureLedger) RecordFailure(ctx context.Context, id, errorMessage string, transient bool) (model.FailureLedgerEntry, error) {
	now := l.now()
	entry, ok := l.entries[id]
	if ok {
		entry.Retries++
	} else {
		entry = model.FailureLedgerEntry{ID: id, Retries: 1, FirstFailure: now}
	}
	entry.Error = errorMessage
	entry.Transient = transient
	entry.LastAttempt = now

	if err := putJSON(ctx, l.docs, idKey(failuresDir, id), "ledger", entry); err != nil {
		return model.FailureLedgerEntry{}, err
	}
	l.entries[id] = entry
	return entry, nil
}

// ClearSuccess removes the entry for id entirely.
func (l *FailureLedger) ClearSuccess(ctx context.Context, id string) error {
	if _, ok := l.entries[id]; !ok {
		return nil
	}
	if err := deleteDoc(ctx, l.docs, idKey(failuresDir, id), "ledger"); err != nil {
		return err
	}
	delete(l.entries, id)
	return nil
}

// IsExhausted reports whether id has used its whole retry budget.
func (l *FailureLedger) IsExhausted(id string) bool {
	entry, ok := l.entries[id]
	return ok && entry.Retries >= l.maxRetries
}

// Get returns the entry for id.
func (l *FailureLedger) Get(id string) (model.FailureLedgerEntry, bool) {
	entry, ok := l.entries[id]
	return entry, ok
}

// Contains reports whether id has an entry.
func (l *FailureLedger) Contains(id string) bool {
	_, ok := l.entries[id]
	return ok
}

// Len returns the number of entries.
func (l *FailureLedger) Len() int {
	return len(l.entries)
}

// Entries returns all entries sorted by id.
func (l *FailureLedger) Entries() []model.FailureLedgerEntry {
	out := make([]model.FailureLedgerEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
