package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrace(t *testing.T) {
	t.Run("nested calls flatten into an arena", func(t *testing.T) {
		raw := `{
			"type": "CALL",
			"from": "0x1111111111111111111111111111111111111111",
			"to":   "0x2222222222222222222222222222222222222222",
			"value": "0xde0b6b3a7640000",
			"gas": "0x5208",
			"gasUsed": "0x5208",
			"input": "0xa9059cbb",
			"output": "0x01",
			"calls": [
				{
					"type": "STATICCALL",
					"from": "0x2222222222222222222222222222222222222222",
					"to":   "0x3333333333333333333333333333333333333333",
					"input": "0x70a08231",
					"calls": [
						{"type": "DELEGATECALL", "input": "0x"}
					]
				},
				{"type": "CREATE", "input": "0x60"}
			]
		}`

		tree, err := ParseTrace(json.RawMessage(raw))
		require.NoError(t, err)
		require.Len(t, tree.Frames, 4)

		root := tree.Root()
		assert.Equal(t, CallTypeCall, root.Type)
		assert.Equal(t, -1, root.Parent)
		assert.Equal(t, 0, root.Depth)
		assert.Equal(t, []int{1, 3}, root.Children)
		assert.Equal(t, uint64(0x5208), root.Gas)
		assert.Equal(t, "1000000000000000000", root.Value.String())

		inner := tree.Frames[1]
		assert.Equal(t, CallTypeStaticCall, inner.Type)
		assert.Equal(t, 0, inner.Parent)
		assert.Equal(t, 1, inner.Depth)
		assert.Equal(t, []int{2}, inner.Children)

		assert.Equal(t, CallTypeDelegateCall, tree.Frames[2].Type)
		assert.Equal(t, 2, tree.Frames[2].Depth)
		assert.Equal(t, CallTypeCreate, tree.Frames[3].Type)
		assert.Equal(t, 2, tree.MaxDepth())
	})

	t.Run("tolerates calldata alias and missing output", func(t *testing.T) {
		raw := `{
			"type": "call",
			"calldata": "0xdeadbeef",
			"gas_used": "0x100"
		}`

		tree, err := ParseTrace(json.RawMessage(raw))
		require.NoError(t, err)

		root := tree.Root()
		assert.Equal(t, CallTypeCall, root.Type, "lowercase type is upcased")
		assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, root.Input)
		assert.Empty(t, root.Output)
		assert.Equal(t, uint64(0x100), root.GasUsed)
	})

	t.Run("prefers gasUsed over the snake alias", func(t *testing.T) {
		raw := `{"type":"CALL","gasUsed":"0x20","gas_used":"0x30"}`

		tree, err := ParseTrace(json.RawMessage(raw))
		require.NoError(t, err)
		assert.Equal(t, uint64(0x20), tree.Root().GasUsed)
	})

	t.Run("error and revert reason surface on the frame", func(t *testing.T) {
		raw := `{
			"type": "CALL",
			"error": "execution reverted",
			"calls": [{"type": "CALL", "revertReason": "Ownable: caller is not the owner"}]
		}`

		tree, err := ParseTrace(json.RawMessage(raw))
		require.NoError(t, err)
		assert.True(t, tree.Root().Failed())
		assert.Equal(t, "execution reverted", tree.Root().Error)
		assert.True(t, tree.Frames[1].Failed())
		assert.Equal(t, "Ownable: caller is not the owner", tree.Frames[1].RevertReason)
	})

	t.Run("rejects non-object results", func(t *testing.T) {
		_, err := ParseTrace(json.RawMessage(`["not","a","frame"]`))
		assert.Error(t, err)
	})
}
