package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, format Format, raw string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Raw(&buf, format, json.RawMessage(raw)))
	return buf.String()
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "json": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestJSONKeepsLargeIDs(t *testing.T) {
	out := render(t, FormatJSON, `{"id":1790000000000000001}`)
	assert.Contains(t, out, "1790000000000000001")
}

func TestYAML(t *testing.T) {
	out := render(t, FormatYAML, `{"username":"ann","id":7,"tags":["a","b"]}`)
	assert.Contains(t, out, "username: ann")
	assert.Contains(t, out, "id: 7")
	assert.Contains(t, out, "- a")
}

func TestYAMLNumbersArePlainScalars(t *testing.T) {
	out := render(t, FormatYAML, `{"records":[{"id":1790000000000000001,"confidence":0.93}],"total":1}`)
	assert.Contains(t, out, "id: 1790000000000000001")
	assert.Contains(t, out, "confidence: 0.93")
	assert.Contains(t, out, "total: 1")
	assert.NotContains(t, out, `"`)
}

func TestTextFields(t *testing.T) {
	out := render(t, FormatText, `{"username":"ann","nickname":null,"admin":false}`)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "admin:"))
	assert.Contains(t, lines[1], "-")
	assert.Contains(t, lines[2], "ann")
}

func TestTextPage(t *testing.T) {
	out := render(t, FormatText, `{"records":[{"id":1,"result":"benign"},{"id":2,"result":"malignant"}],"total":2,"current":1,"pages":1}`)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "RESULT")
	assert.Contains(t, out, "malignant")
	assert.Contains(t, out, "Total: 2  Page: 1/1")
}

func TestTextEmptyPage(t *testing.T) {
	out := render(t, FormatText, `{"records":[],"total":0}`)
	assert.Contains(t, out, "No records found.")
}

func TestTextScalar(t *testing.T) {
	assert.Equal(t, "hello world\n", render(t, FormatText, `"hello\nworld"`))
	assert.Equal(t, "", render(t, FormatText, ``))
}
