package enrich_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/nameforge/pkg/batch/component/enrich"
	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

func fixedNow() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

func record(id string, fields map[string]interface{}) *model.EnrichedRecord {
	return &model.EnrichedRecord{ID: id, Fields: fields}
}

func TestMergeOverlaysLaterStages(t *testing.T) {
	m := enrich.NewMerger("v13", nil, fixedNow)
	merged := m.Merge("ada", []enrich.StageOutput{
		{Stage: "base", Record: record("ada", map[string]interface{}{"name": "Ada", "meaning": "old"})},
		{Stage: "extra", Record: record("ada", map[string]interface{}{"meaning": "noble", "songs": []interface{}{}})},
	})

	assert.Equal(t, "ada", merged.ID)
	assert.Equal(t, "Ada", merged.Fields["name"])
	assert.Equal(t, "noble", merged.Fields["meaning"])
	assert.Equal(t, "v13", merged.Fields[enrich.FieldEnrichmentVersion])
	assert.Equal(t, "2026-01-02T03:04:05Z", merged.Fields[enrich.FieldEnrichedAt])
	assert.Equal(t, []interface{}{"base", "extra"}, merged.Fields[enrich.FieldVersionsIncluded])
}

func TestMergeDeduplicatesConfiguredLists(t *testing.T) {
	m := enrich.NewMerger("", config.DefaultDedupRules(), fixedNow)
	merged := m.Merge("ada", []enrich.StageOutput{
		{Stage: "base", Record: record("ada", map[string]interface{}{
			"songs": []interface{}{
				map[string]interface{}{"title": "Ada", "artist": "The National"},
				map[string]interface{}{"title": " ada ", "artist": "the national", "year": 2010.0},
				map[string]interface{}{"title": "Ada", "artist": "Someone Else"},
			},
			"famousPeople": []interface{}{
				map[string]interface{}{"name": "Ada Lovelace"},
				map[string]interface{}{"name": "ADA LOVELACE"},
			},
			"untouched": []interface{}{"a", "a"},
		})},
	})

	songs := merged.Fields["songs"].([]interface{})
	assert.Len(t, songs, 2)
	assert.NotContains(t, songs[0].(map[string]interface{}), "year", "first occurrence wins")
	assert.Len(t, merged.Fields["famousPeople"], 1)
	assert.Len(t, merged.Fields["untouched"], 2)
	_, hasVersion := merged.Fields[enrich.FieldEnrichmentVersion]
	assert.False(t, hasVersion)
}

func TestDedupListScalars(t *testing.T) {
	out := enrich.DedupList([]interface{}{"Music", "music ", "Art"}, nil)
	assert.Equal(t, []interface{}{"Music", "Art"}, out)
}
