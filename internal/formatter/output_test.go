package formatter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	IssueID string `json:"issue_id" yaml:"issue_id"`
	Blocked bool   `json:"blocked" yaml:"blocked"`
}

func TestEncode(t *testing.T) {
	v := sample{IssueID: "task-1", Blocked: true}

	var js bytes.Buffer
	require.NoError(t, Encode(&js, FormatJSON, v))
	assert.Equal(t, "{\n  \"issue_id\": \"task-1\",\n  \"blocked\": true\n}\n", js.String())

	var ym bytes.Buffer
	require.NoError(t, Encode(&ym, FormatYAML, v))
	assert.Contains(t, ym.String(), "issue_id: task-1")
	assert.Contains(t, ym.String(), "blocked: true")
}

func TestEncode_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	for _, f := range []string{FormatTable, "xml"} {
		assert.ErrorIs(t, Encode(&buf, f, sample{}), ErrUnknownFormat, f)
	}
}
