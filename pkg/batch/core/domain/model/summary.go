package model

import "time"

// Totals are cumulative counts across all runs.
type Totals struct {
	TotalEnriched  int `json:"totalEnriched"`
	TotalSkipped   int `json:"totalSkipped"`
	LedgerSize     int `json:"ledgerSize"`
	TotalProcessed int `json:"totalProcessed"`
	TotalErrors    int `json:"totalErrors"`
}

// RunSummary reports what one run did, plus cumulative totals.
type RunSummary struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	// Selected is the number of items taken into this run's batch.
	Selected  int `json:"selected"`
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	// Skipped counts items moved to the Skipped set during this run.
	Skipped            int      `json:"skipped"`
	RetryPassAttempted int      `json:"retryPassAttempted"`
	RetryPassSucceeded int      `json:"retryPassSucceeded"`
	Remaining          int      `json:"remaining"`
	StoppedEarly       bool     `json:"stoppedEarly"`
	StopReason         string   `json:"stopReason,omitempty"`
	FailedIDs          []string `json:"failedIds,omitempty"`
	SkippedIDs         []string `json:"skippedIds,omitempty"`
	Cumulative         Totals   `json:"cumulative"`
}

// Duration returns the wall time of the run.
func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// ItemStatus is the durable state of one work item as seen by the status and export tools.
type ItemStatus struct {
	ID          string    `json:"id"`
	Rank        int       `json:"rank"`
	State       ItemState `json:"state"`
	Retries     int       `json:"retries"`
	LastError   string    `json:"lastError,omitempty"`
	LastAttempt time.Time `json:"lastAttempt,omitempty"`
}

// StatusSnapshot is a read-only view of all durable pipeline state.
type StatusSnapshot struct {
	Checkpoint CheckpointState      `json:"checkpoint"`
	Totals     Totals               `json:"totals"`
	Ledger     []FailureLedgerEntry `json:"ledger"`
	Skipped    []SkippedEntry       `json:"skipped"`
	Items      []ItemStatus         `json:"items"`
	// Orphans are ledger or skipped ids that match no work item.
	Orphans []string `json:"orphans,omitempty"`
}
