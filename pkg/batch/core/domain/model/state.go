package model

import (
	"encoding/json"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// ItemState is the per-item state of the Batch Driver's state machine.
type ItemState string

const (
	ItemPending    ItemState = "PENDING"
	ItemInProgress ItemState = "IN_PROGRESS"
	ItemSucceeded  ItemState = "SUCCEEDED"
	ItemFailed     ItemState = "FAILED"
	ItemSkipped    ItemState = "SKIPPED"
)

// String returns the state name.
func (s ItemState) String() string {
	return string(s)
}

// IsTerminal reports whether no further automatic processing happens in this state.
func (s ItemState) IsTerminal() bool {
	return s == ItemSucceeded || s == ItemSkipped
}

// CheckpointState is the durable progress cursor. It is a resume hint and a reporting source,
// never the source of truth for completeness (that is the Manifest).
type CheckpointState struct {
	// LastProcessedIndex is the highest source index resolved so far; -1 before any item.
	LastProcessedIndex int    `json:"lastProcessedIndex"`
	LastProcessedID    string `json:"lastProcessedId,omitempty"`
	TotalProcessed     int    `json:"totalProcessed"`
	TotalErrors        int    `json:"totalErrors"`
	// InProgress holds the id whose enrichment call has started but not resolved.
	InProgress  string    `json:"inProgress,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	LastUpdated time.Time `json:"lastUpdated"`
	RunID       string    `json:"runId,omitempty"`
	Runs        int       `json:"runs"`
}

// NewCheckpointState returns a fresh state for a new run lineage.
func NewCheckpointState(now time.Time) CheckpointState {
	return CheckpointState{
		LastProcessedIndex: -1,
		StartedAt:          now,
		LastUpdated:        now,
	}
}

// Advance moves the cursor to index if it is beyond the current one.
// The cursor never moves backwards.
func (c *CheckpointState) Advance(index int, id string) {
	if index > c.LastProcessedIndex {
		c.LastProcessedIndex = index
		c.LastProcessedID = id
	}
}

// Manifest is the durable set of item ids with a confirmed, durably stored EnrichedRecord.
type Manifest struct {
	Version       string
	LastUpdated   time.Time
	TotalEnriched int
	IDs           mapset.Set[string]
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{IDs: mapset.NewThreadUnsafeSet[string]()}
}

type manifestJSON struct {
	Version       string    `json:"version,omitempty"`
	LastUpdated   time.Time `json:"lastUpdated"`
	TotalEnriched int       `json:"totalEnriched"`
	IDs           []string  `json:"ids"`
}

// SortedIDs returns the manifest ids in lexical order.
func (m *Manifest) SortedIDs() []string {
	ids := m.IDs.ToSlice()
	sort.Strings(ids)
	return ids
}

// MarshalJSON writes ids sorted so the document is stable and diffable.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	return json.Marshal(manifestJSON{
		Version:       m.Version,
		LastUpdated:   m.LastUpdated,
		TotalEnriched: m.IDs.Cardinality(),
		IDs:           m.SortedIDs(),
	})
}

// UnmarshalJSON implements json.Unmarshaler. TotalEnriched is recomputed from ids.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var raw manifestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Version = raw.Version
	m.LastUpdated = raw.LastUpdated
	m.IDs = mapset.NewThreadUnsafeSet[string](raw.IDs...)
	m.TotalEnriched = m.IDs.Cardinality()
	return nil
}

// ManifestSummary is the lightweight side-file for external progress consumers.
type ManifestSummary struct {
	TotalEnriched int       `json:"totalEnriched"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// FailureLedgerEntry tracks the failures of one item.
type FailureLedgerEntry struct {
	ID           string    `json:"id"`
	Error        string    `json:"error"`
	Retries      int       `json:"retries"`
	Transient    bool      `json:"transient"`
	FirstFailure time.Time `json:"firstFailure"`
	LastAttempt  time.Time `json:"lastAttempt"`
}

// SkippedEntry records why an item left automatic processing.
type SkippedEntry struct {
	ID        string    `json:"id"`
	Error     string    `json:"error,omitempty"`
	Retries   int       `json:"retries"`
	SkippedAt time.Time `json:"skippedAt"`
}

// SkippedSet is the durable set of items excluded from automatic processing until manually cleared.
type SkippedSet struct {
	Entries     map[string]SkippedEntry `json:"entries"`
	LastUpdated time.Time               `json:"lastUpdated"`
}

// NewSkippedSet returns an empty set.
func NewSkippedSet() *SkippedSet {
	return &SkippedSet{Entries: make(map[string]SkippedEntry)}
}

// Contains reports whether id is skipped.
func (s *SkippedSet) Contains(id string) bool {
	_, ok := s.Entries[id]
	return ok
}

// IDs returns the skipped ids as a set.
func (s *SkippedSet) IDs() mapset.Set[string] {
	ids := mapset.NewThreadUnsafeSet[string]()
	for id := range s.Entries {
		ids.Add(id)
	}
	return ids
}

// StageProgress records which named stages of an item have durably completed.
type StageProgress struct {
	ID        string    `json:"id"`
	Completed []string  `json:"completed"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CompletedSet returns Completed as a set.
func (p StageProgress) CompletedSet() mapset.Set[string] {
	return mapset.NewThreadUnsafeSet[string](p.Completed...)
}
