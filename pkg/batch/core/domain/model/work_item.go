// Package model defines the data carried through the enrichment pipeline and persisted between runs.
package model

import (
	"encoding/json"
	"strings"
)

// WorkItem is one unit of batch work. It is immutable once loaded; identity is ID.
type WorkItem struct {
	ID         string            `json:"id" yaml:"id"`
	Rank       int               `json:"rank" yaml:"rank"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Attribute returns the named attribute or "".
func (w WorkItem) Attribute(key string) string {
	return w.Attributes[key]
}

// DisplayName returns the "name" attribute when present, otherwise the ID.
func (w WorkItem) DisplayName() string {
	if n := w.Attributes["name"]; n != "" {
		return n
	}
	return w.ID
}

// NormalizeID canonicalizes an identifier (trimmed, lower-cased) so the same name always maps
// to the same durable keys.
func NormalizeID(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// EnrichedRecord is the opaque structured result for one WorkItem.
// Only Fields are serialized; ID is the storage key.
type EnrichedRecord struct {
	ID     string
	Fields map[string]interface{}
}

// NewEnrichedRecord creates a record with an empty field map.
func NewEnrichedRecord(id string) *EnrichedRecord {
	return &EnrichedRecord{ID: id, Fields: make(map[string]interface{})}
}

// MarshalJSON implements json.Marshaler.
func (r EnrichedRecord) MarshalJSON() ([]byte, error) {
	if r.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.Fields)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *EnrichedRecord) UnmarshalJSON(data []byte) error {
	fields := make(map[string]interface{})
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	r.Fields = fields
	return nil
}
