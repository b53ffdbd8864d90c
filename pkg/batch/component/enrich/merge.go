package enrich

import (
	"fmt"
	"strings"
	"time"

	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

// Keys added to every merged record.
const (
	FieldEnrichmentVersion = "enrichmentVersion"
	FieldEnrichedAt        = "enrichedAt"
	FieldVersionsIncluded  = "versionsIncluded"
)

// StageOutput is the record produced by one named stage.
type StageOutput struct {
	Stage  string
	Record *model.EnrichedRecord
}

// Merger overlays stage outputs and deduplicates configured list fields.
type Merger struct {
	version string
	dedup   map[string][]string
	now     func() time.Time
}

// NewMerger creates a Merger. dedup maps a list field to the object keys that identify an element.
func NewMerger(version string, dedup map[string][]string, now func() time.Time) *Merger {
	if now == nil {
		now = time.Now
	}
	return &Merger{version: version, dedup: dedup, now: now}
}

// Merge overlays outputs in order, later keys replacing earlier ones, and stamps the version fields.
func (m *Merger) Merge(id string, outputs []StageOutput) *model.EnrichedRecord {
	merged := model.NewEnrichedRecord(id)
	included := make([]interface{}, 0, len(outputs))
	for _, out := range outputs {
		if out.Record == nil {
			continue
		}
		for k, v := range out.Record.Fields {
			merged.Fields[k] = v
		}
		included = append(included, out.Stage)
	}

	for field, keys := range m.dedup {
		if list, ok := merged.Fields[field].([]interface{}); ok {
			merged.Fields[field] = DedupList(list, keys)
		}
	}

	if m.version != "" {
		merged.Fields[FieldEnrichmentVersion] = m.version
	}
	merged.Fields[FieldEnrichedAt] = m.now().UTC().Format(time.RFC3339)
	merged.Fields[FieldVersionsIncluded] = included
	return merged
}

// DedupList drops elements whose normalized key tuple was already seen; the first occurrence wins.
// Elements that are not objects are compared by their normalized value.
func DedupList(list []interface{}, keys []string) []interface{} {
	seen := make(map[string]struct{}, len(list))
	out := make([]interface{}, 0, len(list))
	for _, el := range list {
		k := dedupKey(el, keys)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, el)
	}
	return out
}

func dedupKey(el interface{}, keys []string) string {
	obj, ok := el.(map[string]interface{})
	if !ok || len(keys) == 0 {
		return normalizeValue(el)
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = normalizeValue(obj[k])
	}
	return strings.Join(parts, "\x00")
}

func normalizeValue(v interface{}) string {
	if v == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
}
