package toolport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToolCallMessage(t *testing.T) {
	msg, err := newToolCallMessage(int64(7), "github:create_issue", map[string]interface{}{"title": "bug"})
	require.NoError(t, err)

	assert.Equal(t, "2.0", msg.JSONRPC)
	assert.Equal(t, "tools/call", msg.Method)
	assert.Equal(t, int64(7), msg.ID)
	assert.Contains(t, string(msg.Params), "github:create_issue")
}

func TestDecodeResult(t *testing.T) {
	result, err := decodeResult([]byte(`{"ok": true}`))
	require.NoError(t, err)
	assert.Equal(t, true, result["ok"])
}

func TestDecodeResult_Empty(t *testing.T) {
	result, err := decodeResult(nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestMessageID(t *testing.T) {
	id, ok := messageID(float64(42))
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = messageID("not-an-id")
	assert.False(t, ok)
}
