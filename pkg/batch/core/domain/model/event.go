package model

import "time"

// Pass identifies which loop of a run processed an item.
type Pass string

const (
	PassPrimary Pass = "primary"
	PassRetry   Pass = "retry"
)

// ItemEvent describes one state transition of one item.
type ItemEvent struct {
	RunID    string
	Item     WorkItem
	Index    int
	Pass     Pass
	State    ItemState
	Retries  int
	Duration time.Duration
	Err      error
}

// Progress is a periodic report of the primary pass.
type Progress struct {
	RunID       string
	Processed   int
	Total       int
	Succeeded   int
	Failed      int
	Elapsed     time.Duration
	EstimatedIn time.Duration
}

// SuccessRate returns Succeeded/Processed as a percentage.
func (p Progress) SuccessRate() float64 {
	if p.Processed == 0 {
		return 0
	}
	return float64(p.Succeeded) * 100 / float64(p.Processed)
}

// Remaining returns the number of items not yet processed in the pass.
func (p Progress) Remaining() int {
	if p.Total < p.Processed {
		return 0
	}
	return p.Total - p.Processed
}
