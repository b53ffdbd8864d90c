package test

import (
	"fmt"

	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

// NewTestWorkItems creates work items with ranks 1..n in the given id order.
func NewTestWorkItems(ids ...string) []model.WorkItem {
	items := make([]model.WorkItem, 0, len(ids))
	for i, id := range ids {
		items = append(items, model.WorkItem{ID: id, Rank: i + 1})
	}
	return items
}

// NewNumberedWorkItems creates n work items named item-001, item-002, ...
func NewNumberedWorkItems(n int) []model.WorkItem {
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, fmt.Sprintf("item-%03d", i))
	}
	return NewTestWorkItems(ids...)
}

// NewTestRecord creates an EnrichedRecord carrying the item's name.
func NewTestRecord(item model.WorkItem) *model.EnrichedRecord {
	record := model.NewEnrichedRecord(item.ID)
	record.Fields["name"] = item.ID
	record.Fields["origin"] = "test"
	record.Fields["meaning"] = "test meaning"
	return record
}
