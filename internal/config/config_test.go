package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "poke.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("missing file applies defaults without warning", func(t *testing.T) {
		t.Setenv("POKE_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

		cfg := Load()
		assert.Empty(t, cfg.Warning)
		assert.Equal(t, "poke.log", cfg.LogFile)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "poke-labels.db", cfg.LabelDB)
	})

	t.Run("valid file loads endpoints, tokens and roots", func(t *testing.T) {
		path := writeConfig(t, `
endpoints:
  - name: local
    url: http://localhost:8545
  - name: mainnet
    url: wss://rpc.example.org
tokens:
  - address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
    symbol: USDC
    decimals: 6
abi_roots:
  - ./contracts
log_level: debug
`)
		t.Setenv("POKE_CONFIG", path)

		cfg := Load()
		assert.Empty(t, cfg.Warning)
		require.Len(t, cfg.Endpoints, 2)
		assert.Equal(t, "debug", cfg.LogLevel)
		require.Len(t, cfg.Tokens, 1)
		assert.Equal(t, uint8(6), cfg.Tokens[0].Decimals)
		assert.Equal(t, []string{"./contracts"}, cfg.ABIRoots)

		url, ok := cfg.EndpointByName("mainnet")
		assert.True(t, ok)
		assert.Equal(t, "wss://rpc.example.org", url)

		_, ok = cfg.EndpointByName("testnet")
		assert.False(t, ok)
	})

	t.Run("malformed file degrades to defaults with a warning", func(t *testing.T) {
		path := writeConfig(t, "endpoints: [unclosed")
		t.Setenv("POKE_CONFIG", path)

		cfg := Load()
		assert.NotEmpty(t, cfg.Warning)
		assert.Equal(t, "poke.log", cfg.LogFile, "defaults survive a broken file")
	})

	t.Run("invalid entries are dropped, not fatal", func(t *testing.T) {
		path := writeConfig(t, `
endpoints:
  - name: broken
    url: "not-an-endpoint"
tokens:
  - address: "0x123"
    symbol: BAD
`)
		t.Setenv("POKE_CONFIG", path)

		cfg := Load()
		assert.NotEmpty(t, cfg.Warning)
		assert.Empty(t, cfg.Endpoints)
		assert.Empty(t, cfg.Tokens)
	})

	t.Run("environment overrides win", func(t *testing.T) {
		t.Setenv("POKE_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
		t.Setenv("POKE_LOG_LEVEL", "debug")
		t.Setenv("POKE_LABEL_DB", "/tmp/labels.db")

		cfg := Load()
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "/tmp/labels.db", cfg.LabelDB)
	})
}
