package enrich_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nameforge/pkg/batch/component/enrich"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
)

func TestExtractJSON(t *testing.T) {
	tests := map[string]string{
		"bare":     `{"name":"Ada","origin":"Germanic"}`,
		"fenced":   "```json\n{\"name\":\"Ada\",\"origin\":\"Germanic\"}\n```",
		"prose":    "Sure! Here is the data: {\"name\":\"Ada\",\"origin\":\"Germanic\"} Hope this helps {not json}",
		"braces":   `{"name":"Ada","origin":"Germanic","note":"uses } and { inside \"quotes\""}`,
		"trailing": `{"name":"Ada","origin":"Germanic"}{"name":"Other"}`,
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			fields, err := enrich.ExtractJSON(text)
			require.NoError(t, err)
			assert.Equal(t, "Ada", fields["name"])
			assert.Equal(t, "Germanic", fields["origin"])
		})
	}
}

func TestExtractJSONFailuresArePermanent(t *testing.T) {
	for _, text := range []string{"no json here", `{"name": "Ada"`, `{"name": Ada}`} {
		_, err := enrich.ExtractJSON(text)
		require.Error(t, err, text)
		assert.True(t, exception.IsPermanentEnrichmentError(err), text)
	}
}
