package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

func TestCheckpointState_AdvanceIsMonotonic(t *testing.T) {
	cp := model.NewCheckpointState(time.Now())
	assert.Equal(t, -1, cp.LastProcessedIndex)

	cp.Advance(4, "eve")
	cp.Advance(2, "carol")
	assert.Equal(t, 4, cp.LastProcessedIndex)
	assert.Equal(t, "eve", cp.LastProcessedID)

	cp.Advance(5, "frank")
	assert.Equal(t, 5, cp.LastProcessedIndex)
}

func TestManifest_JSONIsSortedAndCounted(t *testing.T) {
	m := model.NewManifest()
	m.Version = "v13"
	m.IDs.Add("carol")
	m.IDs.Add("alice")

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ids":["alice","carol"]`)
	assert.Contains(t, string(data), `"totalEnriched":2`)

	var back model.Manifest
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.IDs.Contains("alice"))
	assert.Equal(t, 2, back.TotalEnriched)
	assert.Equal(t, "v13", back.Version)
}

func TestEnrichedRecord_SerializesFieldsOnly(t *testing.T) {
	rec := model.NewEnrichedRecord("alice")
	rec.Fields["name"] = "Alice"

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Alice"}`, string(data))
}

func TestItemState_IsTerminal(t *testing.T) {
	assert.True(t, model.ItemSucceeded.IsTerminal())
	assert.True(t, model.ItemSkipped.IsTerminal())
	assert.False(t, model.ItemFailed.IsTerminal())
	assert.False(t, model.ItemInProgress.IsTerminal())
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "mary-jane", model.NormalizeID("  Mary-Jane "))
}
