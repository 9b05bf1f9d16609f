package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestRenameTokenLimit(t *testing.T) {
	t.Run("Should move the completion budget to max_tokens", func(t *testing.T) {
		out, err := renameTokenLimit([]byte(`{"model":"m","max_completion_tokens":2500,"temperature":0.7}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"model":"m","max_tokens":2500,"temperature":0.7}`, string(out))
	})

	t.Run("Should leave bodies without a budget untouched", func(t *testing.T) {
		in := []byte(`{"model":"m","messages":[]}`)
		out, err := renameTokenLimit(in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("Should keep message text unescaped", func(t *testing.T) {
		out, err := renameTokenLimit([]byte(`{"max_completion_tokens":10,"messages":[{"content":"R&D <notes>"}]}`))
		require.NoError(t, err)
		assert.Equal(t, "R&D <notes>", gjson.GetBytes(out, "messages.0.content").String())
		assert.NotContains(t, string(out), `\u0026`)
	})

	t.Run("Should reject malformed bodies that carry a budget", func(t *testing.T) {
		_, err := renameTokenLimit([]byte(`{"max_completion_tokens":10,`))
		assert.Error(t, err)
	})
}
