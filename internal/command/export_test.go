package command

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poke/internal/ingest"
	"poke/internal/state"
)

// seedExportModel fills the projection with one block carrying one tx.
func seedExportModel(model *state.Model) {
	to := common.HexToAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
	model.Apply(ingest.HeadAdvanced{Block: ingest.BlockSummary{
		Number: 100,
		Hash:   common.Hash{0x64},
		Transactions: []ingest.TxSummary{{
			Hash:        common.Hash{0xaa},
			BlockNumber: 100,
			From:        common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"),
			To:          &to,
			Value:       big.NewInt(1),
		}},
	}})
}

// exportedFile asserts exactly one file with the prefix exists in dir.
func exportedFile(t *testing.T, dir, prefix string) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var matches []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), prefix) {
			matches = append(matches, filepath.Join(dir, entry.Name()))
		}
	}
	require.Len(t, matches, 1)
	return matches[0]
}

func TestExportCommand(t *testing.T) {
	t.Run("blocks section writes a csv", func(t *testing.T) {
		e, model, _ := testEngine()
		e.ExportDir = t.TempDir()
		seedExportModel(model)

		msg, level := message(t, e, "export")
		assert.Equal(t, state.SeverityInfo, level)
		assert.Contains(t, msg, "exported ")
		exportedFile(t, e.ExportDir, "blocks-")
	})

	t.Run("transactions section exports the visible subset", func(t *testing.T) {
		e, model, _ := testEngine()
		e.ExportDir = t.TempDir()
		seedExportModel(model)
		model.Section = state.SectionTransactions

		message(t, e, "export")
		exportedFile(t, e.ExportDir, "transactions-")
	})

	t.Run("addresses section exports observed records", func(t *testing.T) {
		e, model, _ := testEngine()
		e.ExportDir = t.TempDir()
		seedExportModel(model)
		model.Section = state.SectionAddresses

		message(t, e, "export")
		exportedFile(t, e.ExportDir, "addresses-")
	})

	t.Run("trace view exports json", func(t *testing.T) {
		e, model, _ := testEngine()
		e.ExportDir = t.TempDir()

		model.Apply(ingest.TraceReady{
			Hash: common.Hash{0xaa},
			Trace: &ingest.TraceTree{Frames: []ingest.Frame{
				{Type: ingest.CallTypeCall, Parent: -1},
			}},
		})
		model.Push(state.ViewTrace)

		message(t, e, "export")
		exportedFile(t, e.ExportDir, "trace-")
	})

	t.Run("empty view is a domain error", func(t *testing.T) {
		e, _, _ := testEngine()
		e.ExportDir = t.TempDir()

		_, level := message(t, e, "export")
		assert.Equal(t, state.SeverityWarn, level)
	})

	t.Run("trace view without a trace is a domain error", func(t *testing.T) {
		e, model, _ := testEngine()
		e.ExportDir = t.TempDir()
		model.Push(state.ViewTrace)

		_, level := message(t, e, "export")
		assert.Equal(t, state.SeverityWarn, level)
	})
}
