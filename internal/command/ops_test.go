package command

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poke/internal/abiregistry"
	"poke/internal/ingest"
	"poke/internal/state"
	"poke/internal/transport"
)

func TestHealthCommand(t *testing.T) {
	e, model, _ := testEngine()

	t.Run("disconnected endpoint", func(t *testing.T) {
		msg, level := message(t, e, "health")
		assert.Equal(t, state.SeverityWarn, level)
		assert.Contains(t, msg, "disconnected")
	})

	t.Run("connected summary", func(t *testing.T) {
		model.Endpoint.Connected = true
		model.Endpoint.NodeKind = transport.NodeGeth
		model.Endpoint.PeerCount = 12
		model.Endpoint.LatencyMillis = 40

		msg, level := message(t, e, "health")
		assert.Equal(t, state.SeverityInfo, level)
		assert.Contains(t, msg, "geth")
		assert.Contains(t, msg, "peers 12")
		assert.Contains(t, msg, "synced")
	})

	t.Run("syncing summary", func(t *testing.T) {
		model.Endpoint.Syncing = true
		model.Endpoint.SyncCurrent = 50
		model.Endpoint.SyncTarget = 100

		msg, _ := message(t, e, "health")
		assert.Contains(t, msg, "syncing 50/100")
	})
}

func TestPeersCommand(t *testing.T) {
	e, model, _ := testEngine()
	model.Endpoint.PeerCount = 7

	msg, _ := message(t, e, "peers")
	assert.Equal(t, "peers: 7", msg)
}

func TestMempoolCommand(t *testing.T) {
	e, _, _ := testEngine()

	queue, ok := e.Execute("mempool").(QueueRpc)
	require.True(t, ok)
	assert.IsType(t, ingest.FetchMempool{}, queue.Command)
}

func TestLogsCommand(t *testing.T) {
	t.Run("tails the session log", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "poke.log")
		content := `{"level":"info","msg":"first"}` + "\n" + `{"level":"warn","msg":"second"}` + "\n"
		require.NoError(t, os.WriteFile(logPath, []byte(content), 0o644))

		model := state.New(abiregistry.NewStore())
		e := New(model, newFakeLabels(), logPath)

		msg, _ := message(t, e, "logs")
		assert.Contains(t, msg, "2 entries")
		assert.Contains(t, msg, "second")
	})

	t.Run("missing log file is a domain error", func(t *testing.T) {
		model := state.New(abiregistry.NewStore())
		e := New(model, newFakeLabels(), filepath.Join(t.TempDir(), "absent.log"))

		_, level := message(t, e, "logs")
		assert.Equal(t, state.SeverityWarn, level)
	})
}

func TestRpcStatsCommand(t *testing.T) {
	e, _, _ := testEngine()

	// Telemetry is uninitialized in unit tests, so the zero report shape is
	// what this exercises.
	msg, level := message(t, e, "rpc-stats")
	assert.Equal(t, state.SeverityInfo, level)
	assert.Contains(t, msg, "rpc-stats")
}
