package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonces(t *testing.T) {
	n := NewNonces([]byte("0123456789abcdef0123456789abcdef"), time.Hour)

	token, err := n.Create("export_patterns")
	require.NoError(t, err)
	assert.True(t, n.Verify("export_patterns", token))
	assert.False(t, n.Verify("delete_patterns", token))
	assert.False(t, n.Verify("export_patterns", token+"x"))
	assert.False(t, n.Verify("export_patterns", ""))

	other := NewNonces([]byte("another-secret-another-secret-xx"), time.Hour)
	assert.False(t, other.Verify("export_patterns", token))
}

func TestNoncesRandomKey(t *testing.T) {
	n := NewNonces(nil, 0)
	token, err := n.Create("import_patterns")
	require.NoError(t, err)
	assert.True(t, n.Verify("import_patterns", token))
	assert.False(t, NewNonces(nil, 0).Verify("import_patterns", token))
}
