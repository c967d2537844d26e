package spec

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadUISchema(t *testing.T) {
	raw, err := LoadUISchema("oracle")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &schema))
	assert.Contains(t, schema, "ui:grid")
	assert.Contains(t, schema, "ssh_config")

	_, err = LoadUISchema("mongodb")
	require.Error(t, err)
}
