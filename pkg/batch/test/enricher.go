package test

import (
	"context"
	"sync"

	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

// ScriptedEnricher returns scripted errors per item id, in call order. Once an id's script
// is used up (or if it has none) the call succeeds with NewTestRecord.
type ScriptedEnricher struct {
	mu      sync.Mutex
	scripts map[string][]error
	calls   []string
	// OnCall, if set, runs at the start of every call.
	OnCall func(ctx context.Context, item model.WorkItem)
}

var _ port.Enricher = (*ScriptedEnricher)(nil)

// NewScriptedEnricher creates an enricher that succeeds for every item.
func NewScriptedEnricher() *ScriptedEnricher {
	return &ScriptedEnricher{scripts: make(map[string][]error)}
}

// FailWith queues errs for id; each call consumes one.
func (e *ScriptedEnricher) FailWith(id string, errs ...error) *ScriptedEnricher {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripts[id] = append(e.scripts[id], errs...)
	return e
}

// Enrich implements port.Enricher.
func (e *ScriptedEnricher) Enrich(ctx context.Context, item model.WorkItem) (*model.EnrichedRecord, error) {
	if e.OnCall != nil {
		e.OnCall(ctx, item)
	}
	e.mu.Lock()
	e.calls = append(e.calls, item.ID)
	script := e.scripts[item.ID]
	var err error
	if len(script) > 0 {
		err = script[0]
		e.scripts[item.ID] = script[1:]
	}
	e.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return NewTestRecord(item), nil
}

// Calls returns the ids in call order.
func (e *ScriptedEnricher) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// CallCount returns how many times id was enriched.
func (e *ScriptedEnricher) CallCount(id string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if c == id {
			n++
		}
	}
	return n
}
