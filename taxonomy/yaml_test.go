package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalogYAML = `
version: "1"
vertex_types:
  - name: Ticket
    pattern: '[A-Z]+-[0-9]+'
  - name: Jira Ticket
    super: Ticket
    expr: text.startsWith('JIRA-')
    description: An issue key
transaction_types:
  - name: Blocks
`

func TestParseYAML(t *testing.T) {
	c, err := ParseYAML([]byte(testCatalogYAML))
	require.NoError(t, err)

	assert.Equal(t, 3, c.Len())

	best, ok := c.BestMatch(CategoryVertex, "JIRA-12")
	require.True(t, ok)
	assert.Equal(t, "Jira Ticket", best.Name)
	assert.Equal(t, "An issue key", best.Description)

	best, ok = c.BestMatch(CategoryVertex, "OPS-7")
	require.True(t, ok)
	assert.Equal(t, "Ticket", best.Name)

	_, ok = c.Lookup(CategoryTransaction, "blocks")
	assert.True(t, ok)
}

func TestParseYAML_IncludeDefaults(t *testing.T) {
	c, err := ParseYAML([]byte("include_defaults: true\nvertex_types:\n  - name: Ticket\n"))
	require.NoError(t, err)
	assert.Equal(t, Default().Len()+1, c.Len())
}

func TestParseYAML_Invalid(t *testing.T) {
	_, err := ParseYAML([]byte("vertex_types: ["))
	assert.Error(t, err)

	_, err = ParseYAML([]byte("vertex_types:\n  - name: A\n    super: Missing\n"))
	assert.ErrorIs(t, err, ErrUnknownSuper)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalogYAML), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
