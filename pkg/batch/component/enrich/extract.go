package enrich

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
)

var errNoJSONObject = errors.New("no JSON object found in response")

// ExtractJSON returns the first balanced top-level JSON object in text, decoded. Prose and
// markdown fences around the object are ignored. Failures are permanent enrichment errors.
func ExtractJSON(text string) (map[string]interface{}, error) {
	raw, err := firstObject(text)
	if err != nil {
		return nil, exception.NewPermanentEnrichmentError("unparseable enrichment response", err)
	}
	fields := make(map[string]interface{})
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, exception.NewPermanentEnrichmentError("unparseable enrichment response", err)
	}
	return fields, nil
}

// firstObject scans for the first '{' and returns the text up to its matching '}', honouring
// string literals and escapes.
func firstObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", errNoJSONObject
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", errors.New("unterminated JSON object in response")
}
