// Package skip decides when a failing item leaves automatic processing.
package skip

import (
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

// SkipPolicy is an interface that defines whether an item with recorded failures may be attempted
// again, and counts the items one run moves to the Skipped set. Exhaustion itself is read from the
// failure ledger.
type SkipPolicy interface {
	// CanAttempt reports whether an item with this entry may be attempted again.
	CanAttempt(entry model.FailureLedgerEntry) bool
	// NewSkippedEntry builds the Skipped set entry for an exhausted item.
	NewSkippedEntry(entry model.FailureLedgerEntry) model.SkippedEntry
	// IncrementSkipCount increments the count of items skipped by this run.
	IncrementSkipCount()
	// GetSkipCount returns the number of items skipped by this run.
	GetSkipCount() int
	// GetSkipLimit returns the retry budget.
	GetSkipLimit() int
}

// DefaultSkipPolicyFactory is a factory for creating SkipPolicy.
type DefaultSkipPolicyFactory struct{}

// NewDefaultSkipPolicyFactory creates a new DefaultSkipPolicyFactory.
func NewDefaultSkipPolicyFactory() *DefaultSkipPolicyFactory {
	return &DefaultSkipPolicyFactory{}
}

// Create creates a SkipPolicy with the given retry budget. A budget below 1 is treated as 1.
func (f *DefaultSkipPolicyFactory) Create(maxRetries int) SkipPolicy {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &exhaustionSkipPolicy{maxRetries: maxRetries}
}

// exhaustionSkipPolicy allows attempts while retries < maxRetries.
type exhaustionSkipPolicy struct {
	maxRetries       int
	currentSkipCount int
}

func (p *exhaustionSkipPolicy) CanAttempt(entry model.FailureLedgerEntry) bool {
	return entry.Retries < p.maxRetries
}

func (p *exhaustionSkipPolicy) NewSkippedEntry(entry model.FailureLedgerEntry) model.SkippedEntry {
	return model.SkippedEntry{
		ID:        entry.ID,
		Error:     entry.Error,
		Retries:   entry.Retries,
		SkippedAt: entry.LastAttempt,
	}
}

func (p *exhaustionSkipPolicy) IncrementSkipCount() {
	p.currentSkipCount++
}

func (p *exhaustionSkipPolicy) GetSkipCount() int {
	return p.currentSkipCount
}

func (p *exhaustionSkipPolicy) GetSkipLimit() int {
	return p.maxRetries
}

// Verify interfaces
var _ SkipPolicy = (*exhaustionSkipPolicy)(nil)
