// Package serialization renders configuration and state values for logs with secrets masked.
package serialization

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
)

// MaskedValue replaces the value of every sensitive key.
const MaskedValue = "********"

// DefaultMaskedKeys are the keys masked by MarshalMasked when no keys are given.
var DefaultMaskedKeys = []string{"api_key", "password", "credentials_file", "webhook_url"}

// MarshalMasked serializes v as JSON after masking every map key in keys (case-insensitive) at any depth.
// v is first encoded through its yaml tags, so configuration structs keep their file names.
func MarshalMasked(v interface{}, keys ...string) ([]byte, error) {
	module := "serialization"
	if len(keys) == 0 {
		keys = DefaultMaskedKeys
	}
	masked := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		masked[strings.ToLower(k)] = struct{}{}
	}

	raw, err := yaml.Marshal(v)
	if err != nil {
		return nil, exception.NewBatchError(module, "failed to encode value", err, false, false)
	}
	var tree interface{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, exception.NewBatchError(module, "failed to decode value", err, false, false)
	}

	data, err := json.Marshal(maskTree(tree, masked))
	if err != nil {
		return nil, exception.NewBatchError(module, "failed to serialize masked value", err, false, false)
	}
	return data, nil
}

func maskTree(node interface{}, masked map[string]struct{}) interface{} {
	switch n := node.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(n))
		for k, v := range n {
			if _, ok := masked[strings.ToLower(k)]; ok && v != nil && v != "" {
				out[k] = MaskedValue
				continue
			}
			out[k] = maskTree(v, masked)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(n))
		for i, v := range n {
			out[i] = maskTree(v, masked)
		}
		return out
	default:
		return n
	}
}
