package skip_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	"github.com/tigerroll/nameforge/pkg/batch/engine/step/skip"
)

func TestExhaustionSkipPolicy(t *testing.T) {
	p := skip.NewDefaultSkipPolicyFactory().Create(2)
	assert.Equal(t, 2, p.GetSkipLimit())

	once := model.FailureLedgerEntry{ID: "bob", Retries: 1}
	twice := model.FailureLedgerEntry{ID: "bob", Retries: 2, Error: "rate limited", LastAttempt: time.Unix(100, 0)}

	assert.True(t, p.CanAttempt(once))
	assert.False(t, p.CanAttempt(twice))

	entry := p.NewSkippedEntry(twice)
	assert.Equal(t, "bob", entry.ID)
	assert.Equal(t, 2, entry.Retries)
	assert.Equal(t, "rate limited", entry.Error)
	assert.Equal(t, time.Unix(100, 0), entry.SkippedAt)

	assert.Zero(t, p.GetSkipCount())
	p.IncrementSkipCount()
	p.IncrementSkipCount()
	assert.Equal(t, 2, p.GetSkipCount())
}

func TestSkipPolicyMinimumBudget(t *testing.T) {
	p := skip.NewDefaultSkipPolicyFactory().Create(0)
	assert.Equal(t, 1, p.GetSkipLimit())
	assert.True(t, p.CanAttempt(model.FailureLedgerEntry{}))
	assert.False(t, p.CanAttempt(model.FailureLedgerEntry{Retries: 1}))
}
