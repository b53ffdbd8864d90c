// Package enrich implements the Enrichment Client: LLM and command backed stage clients, the staged
// enricher that advances an item through named stages, stage output merging and record validation.
package enrich

import (
	"context"
	"encoding/json"

	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
)

// DefaultStageName names the single stage used when no stages are configured.
const DefaultStageName = "default"

// Request is one stage call for one item.
type Request struct {
	Item  model.WorkItem
	Stage string
	// Previous is the merge of the outputs of the stages already completed, or nil.
	Previous *model.EnrichedRecord
}

// Client performs one stage of enrichment for one item.
type Client interface {
	Complete(ctx context.Context, req Request) (*model.EnrichedRecord, error)
}

// requestPayload is the JSON view of a Request handed to prompt templates and external commands.
type requestPayload struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Rank       int                    `json:"rank"`
	Attributes map[string]string      `json:"attributes,omitempty"`
	Stage      string                 `json:"stage"`
	Previous   map[string]interface{} `json:"previous,omitempty"`
}

func newRequestPayload(req Request) requestPayload {
	p := requestPayload{
		ID:         req.Item.ID,
		Name:       req.Item.DisplayName(),
		Rank:       req.Item.Rank,
		Attributes: req.Item.Attributes,
		Stage:      req.Stage,
	}
	if req.Previous != nil {
		p.Previous = req.Previous.Fields
	}
	return p
}

func (p requestPayload) previousJSON() string {
	if len(p.Previous) == 0 {
		return "{}"
	}
	data, err := json.MarshalIndent(p.Previous, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
