// Package report renders and exports the durable state of the pipeline.
package report

import (
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

// StatusRow is one exported work item.
type StatusRow struct {
	ID          string `parquet:"name=id,type=BYTE_ARRAY,convertedtype=UTF8"`
	Rank        int64  `parquet:"name=rank,type=INT64"`
	State       string `parquet:"name=state,type=BYTE_ARRAY,convertedtype=UTF8"`
	Retries     int32  `parquet:"name=retries,type=INT32"`
	LastError   string `parquet:"name=last_error,type=BYTE_ARRAY,convertedtype=UTF8"`
	LastAttempt int64  `parquet:"name=last_attempt,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
}

// NewStatusRows converts the snapshot items to rows, keeping source order.
// LastAttempt is 0 for items that never failed.
func NewStatusRows(snapshot *model.StatusSnapshot) []StatusRow {
	rows := make([]StatusRow, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		row := StatusRow{
			ID:        item.ID,
			Rank:      int64(item.Rank),
			State:     item.State.String(),
			Retries:   int32(item.Retries),
			LastError: item.LastError,
		}
		if !item.LastAttempt.IsZero() {
			row.LastAttempt = item.LastAttempt.UnixMilli()
		}
		rows = append(rows, row)
	}
	return rows
}

// CountByState returns how many items are in each state.
func CountByState(snapshot *model.StatusSnapshot) map[model.ItemState]int {
	counts := make(map[model.ItemState]int)
	for _, item := range snapshot.Items {
		counts[item.State]++
	}
	return counts
}
