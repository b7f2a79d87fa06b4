package docgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMarkdownAndJSON_TrailingJSON(t *testing.T) {
	response := "# config.go\n\nThis file loads configuration.\n\n{\"description\": \"Loads app configuration from file, env, and defaults.\"}"

	markdown, extracted, err := splitMarkdownAndJSON(response)
	require.NoError(t, err)
	assert.Contains(t, markdown, "# config.go")
	assert.NotContains(t, markdown, "\"description\"")
	assert.Equal(t, "Loads app configuration from file, env, and defaults.", extracted["description"])
}

func TestSplitMarkdownAndJSON_TrailingJSONWithNestedObject(t *testing.T) {
	response := `# config.go

This file loads configuration.

{"tags": ["config"], "meta": {"owner": "platform"}}`

	markdown, extracted, err := splitMarkdownAndJSON(response)
	require.NoError(t, err)
	assert.Contains(t, markdown, "# config.go")
	assert.NotContains(t, markdown, "\"tags\"")
	meta, ok := extracted["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "platform", meta["owner"])
}

func TestSplitMarkdownAndJSON_FallsBackToHeading(t *testing.T) {
	response := "# config.go\n\n## Configuration Loading\n\nThis file loads configuration from multiple sources."

	markdown, extracted, err := splitMarkdownAndJSON(response)
	require.NoError(t, err)
	assert.Equal(t, response, markdown)
	assert.Equal(t, "Configuration Loading", extracted["description"])
}

func TestSplitMarkdownAndJSON_NoHeadingNoJSON(t *testing.T) {
	_, _, err := splitMarkdownAndJSON("just a sentence with no heading")
	require.Error(t, err)
}

func TestFirstNonTopHeading(t *testing.T) {
	text, err := firstNonTopHeading("# Top Title\n\n## Graph Traversal\n\nbody text")
	require.NoError(t, err)
	assert.Equal(t, "Graph Traversal", text)
}

func TestFirstNonTopHeading_OnlyTopLevel(t *testing.T) {
	_, err := firstNonTopHeading("# Only A Top Heading\n\nbody text")
	assert.Error(t, err)
}
