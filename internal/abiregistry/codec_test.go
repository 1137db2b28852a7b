package abiregistry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// transferCalldata is transfer(0xfB69...d359, 1000).
const transferCalldata = "0xa9059cbb" +
	"000000000000000000000000fb6916095ca1df60bb79ce92ce3ea74c37c5d359" +
	"00000000000000000000000000000000000000000000000000000000000003e8"

func erc20Registry(t *testing.T) *Registry {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "out", "Token.json"), erc20ABI)
	return NewScanner(root).Run(context.Background())
}

func TestDecodeCalldata(t *testing.T) {
	registry := erc20Registry(t)

	t.Run("decodes a registered call", func(t *testing.T) {
		raw := hexutil.MustDecode(transferCalldata)

		decoded := registry.DecodeCalldata(raw)
		require.True(t, decoded.Ok)
		assert.Equal(t, "transfer", decoded.Name)
		assert.Equal(t, "transfer(address,uint256)", decoded.Signature)
		require.Len(t, decoded.Args, 2)
		assert.Equal(t, "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", decoded.Args[0])
		assert.Equal(t, "1000", decoded.Args[1])
		assert.Equal(t, "transfer(0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359, 1000)", decoded.String())
	})

	t.Run("unknown selector falls back to raw", func(t *testing.T) {
		raw := hexutil.MustDecode("0xdeadbeef0000")

		decoded := registry.DecodeCalldata(raw)
		assert.False(t, decoded.Ok)
		assert.Equal(t, "0xdeadbeef", decoded.Selector.Hex())
		assert.Equal(t, raw, decoded.Raw)
		assert.Equal(t, hexutil.Encode(raw), decoded.String())
	})

	t.Run("short calldata never panics", func(t *testing.T) {
		decoded := registry.DecodeCalldata([]byte{0xa9})
		assert.False(t, decoded.Ok)
	})

	t.Run("matched selector with truncated args reports the unpack error", func(t *testing.T) {
		raw := hexutil.MustDecode("0xa9059cbb0000")

		decoded := registry.DecodeCalldata(raw)
		assert.False(t, decoded.Ok)
		assert.Equal(t, "transfer(address,uint256)", decoded.Signature)
		assert.NotEmpty(t, decoded.Err)
	})
}

func TestEncodeCall(t *testing.T) {
	t.Run("round-trips through decode", func(t *testing.T) {
		registry := erc20Registry(t)

		calldata, err := EncodeCall("transfer(address,uint256)",
			[]string{"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", "1000"})
		require.NoError(t, err)
		assert.Equal(t, transferCalldata, hexutil.Encode(calldata))

		decoded := registry.DecodeCalldata(calldata)
		require.True(t, decoded.Ok)

		again, err := EncodeCall(decoded.Signature, []string{
			decoded.Args[0],
			decoded.Args[1],
		})
		require.NoError(t, err)
		assert.Equal(t, calldata, again, "encode(decode(calldata)) == calldata")
	})

	t.Run("accepts alias types and names", func(t *testing.T) {
		a, err := EncodeCall("mint(uint)", []string{"7"})
		require.NoError(t, err)
		b, err := EncodeCall("mint(uint256 amount)", []string{"7"})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("encodes dynamic types", func(t *testing.T) {
		calldata, err := EncodeCall("post(string,bytes)", []string{`"hello"`, "0x0102"})
		require.NoError(t, err)
		assert.Len(t, calldata, 4+6*32)
	})

	t.Run("encodes address arrays", func(t *testing.T) {
		_, err := EncodeCall("sweep(address[])",
			[]string{"[0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359,0x0000000000000000000000000000000000000001]"})
		require.NoError(t, err)
	})

	t.Run("rejects argument count mismatch", func(t *testing.T) {
		_, err := EncodeCall("transfer(address,uint256)", []string{"0x00"})
		assert.Error(t, err)
	})

	t.Run("rejects overflowing integers", func(t *testing.T) {
		_, err := EncodeCall("tiny(uint8)", []string{"300"})
		assert.Error(t, err)
	})

	t.Run("rejects malformed addresses", func(t *testing.T) {
		_, err := EncodeCall("transfer(address,uint256)", []string{"nope", "1"})
		assert.Error(t, err)
	})
}
