package usecase

import (
	"context"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	state "github.com/tigerroll/nameforge/pkg/batch/infrastructure/repository/state"
	logger "github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// DefaultBatchOperator implements BatchOperator over the durable stores.
type DefaultBatchOperator struct {
	stores *state.Stores
}

// NewDefaultBatchOperator creates a new DefaultBatchOperator.
func NewDefaultBatchOperator(stores *state.Stores) *DefaultBatchOperator {
	return &DefaultBatchOperator{stores: stores}
}

var _ BatchOperator = (*DefaultBatchOperator)(nil)

// Requeue implements BatchOperator. Ids are normalized the same way the work item source does it.
func (o *DefaultBatchOperator) Requeue(ctx context.Context, ids []string, force bool) ([]string, error) {
	if err := o.stores.LoadAll(ctx); err != nil {
		return nil, err
	}
	normalized := make([]string, 0, len(ids))
	for _, id := range ids {
		if n := model.NormalizeID(id); n != "" {
			normalized = append(normalized, n)
		}
	}

	changed := mapset.NewThreadUnsafeSet[string]()
	released, err := o.stores.Skipped.Remove(ctx, normalized...)
	if err != nil {
		return nil, err
	}
	changed.Append(released...)

	for _, id := range normalized {
		if !o.stores.Ledger.Contains(id) {
			continue
		}
		if err := o.stores.Ledger.ClearSuccess(ctx, id); err != nil {
			return nil, err
		}
		changed.Add(id)
	}

	if force {
		for _, id := range normalized {
			if !o.stores.Manifest.Contains(id) {
				continue
			}
			if _, err := o.stores.Manifest.Remove(ctx, id); err != nil {
				return nil, err
			}
			changed.Add(id)
		}
	}

	out := changed.ToSlice()
	sort.Strings(out)
	logger.Infof("Requeued %d item(s): %v", len(out), out)
	return out, nil
}

// ClearSkipped implements BatchOperator.
func (o *DefaultBatchOperator) ClearSkipped(ctx context.Context) ([]string, error) {
	if err := o.stores.LoadAll(ctx); err != nil {
		return nil, err
	}
	released, err := o.stores.Skipped.Clear(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range released {
		if err := o.stores.Ledger.ClearSuccess(ctx, id); err != nil {
			return nil, err
		}
	}
	logger.Infof("Cleared %d skipped item(s).", len(released))
	return released, nil
}
