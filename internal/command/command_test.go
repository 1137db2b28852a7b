package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poke/internal/ingest"
	"poke/internal/state"
	"poke/internal/transport"
)

func TestExecuteRouting(t *testing.T) {
	e, _, _ := testEngine()

	t.Run("aliases resolve to the canonical verb", func(t *testing.T) {
		for _, input := range []string{"blocks", "blk"} {
			action := e.Execute(input)
			nav, ok := action.(Navigate)
			require.True(t, ok, input)
			assert.Equal(t, state.ViewDashboard, nav.Target)
		}
	})

	t.Run("unknown verbs are domain errors", func(t *testing.T) {
		action := e.Execute("frobnicate")
		notify, ok := action.(Notify)
		require.True(t, ok)
		assert.Equal(t, state.SeverityWarn, notify.Level)
		assert.Contains(t, notify.Message, "frobnicate")
	})

	t.Run("empty input is a no-op", func(t *testing.T) {
		assert.IsType(t, None{}, e.Execute("   "))
	})

	t.Run("quit", func(t *testing.T) {
		assert.IsType(t, Quit{}, e.Execute("quit"))
		assert.IsType(t, Quit{}, e.Execute("q"))
	})

	t.Run("case-insensitive verbs", func(t *testing.T) {
		assert.IsType(t, Quit{}, e.Execute("QUIT"))
	})
}

func TestNavigationCommands(t *testing.T) {
	t.Run("address pushes detail and queues a code probe", func(t *testing.T) {
		e, model, _ := testEngine()

		action := e.Execute("address 0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
		queue, ok := action.(QueueRpc)
		require.True(t, ok)
		assert.IsType(t, ingest.FetchCode{}, queue.Command)
		assert.Equal(t, state.ViewAddressDetail, model.CurrentView())
	})

	t.Run("trace validates the hash and marks it pending", func(t *testing.T) {
		e, model, _ := testEngine()

		action := e.Execute("trace 0x0102030405060708010203040506070801020304050607080102030405060708")
		queue, ok := action.(QueueRpc)
		require.True(t, ok)
		assert.IsType(t, ingest.FetchTrace{}, queue.Command)
		assert.NotNil(t, model.PendingTrace)
		assert.Equal(t, state.ViewTrace, model.CurrentView())

		notify, ok := e.Execute("trace 0x123").(Notify)
		require.True(t, ok)
		assert.Equal(t, state.SeverityWarn, notify.Level)
	})

	t.Run("connect parses the endpoint", func(t *testing.T) {
		e, _, _ := testEngine()

		queue, ok := e.Execute("connect ws://localhost:8546").(QueueRpc)
		require.True(t, ok)
		reconnect := queue.Command.(ingest.Reconnect)
		assert.Equal(t, transport.SchemeWebSocket, reconnect.Endpoint.Scheme)

		_, isNotify := e.Execute("connect ftp://nope").(Notify)
		assert.True(t, isNotify)
	})
}

func TestAnvilGating(t *testing.T) {
	e, model, _ := testEngine()

	t.Run("anvil verbs refuse on a non-anvil node", func(t *testing.T) {
		model.Endpoint.NodeKind = transport.NodeGeth
		notify, ok := e.Execute("impersonate 0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359").(Notify)
		require.True(t, ok)
		assert.Contains(t, notify.Message, "not anvil")

		_, ok = e.Execute("mine").(Notify)
		assert.True(t, ok)
	})

	t.Run("anvil verbs queue on anvil", func(t *testing.T) {
		model.Endpoint.NodeKind = transport.NodeAnvil

		queue, ok := e.Execute("impersonate 0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359").(QueueRpc)
		require.True(t, ok)
		assert.Equal(t, "anvil_impersonateAccount", queue.Command.(ingest.NodeAdmin).Method)

		queue, ok = e.Execute("mine 5").(QueueRpc)
		require.True(t, ok)
		admin := queue.Command.(ingest.NodeAdmin)
		assert.Equal(t, "anvil_mine", admin.Method)
		require.Len(t, admin.Params, 1)
	})

	t.Run("snapshot and revert pass through", func(t *testing.T) {
		queue := e.Execute("snapshot").(QueueRpc)
		assert.Equal(t, "evm_snapshot", queue.Command.(ingest.NodeAdmin).Method)

		queue = e.Execute("revert 0x1").(QueueRpc)
		admin := queue.Command.(ingest.NodeAdmin)
		assert.Equal(t, "evm_revert", admin.Method)
		assert.Equal(t, []any{"0x1"}, admin.Params)
	})
}

func TestLabelCommands(t *testing.T) {
	e, model, labels := testEngine()
	const addr = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"

	t.Run("set persists before updating the cache", func(t *testing.T) {
		notify := e.Execute("label set " + addr + " Uniswap Router").(Notify)
		assert.Equal(t, state.SeverityInfo, notify.Level)

		assert.Equal(t, "Uniswap Router", labels.store["0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"])
		assert.Equal(t, "Uniswap Router", model.Labels["0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"])
	})

	t.Run("clear removes both", func(t *testing.T) {
		e.Execute("label clear " + addr)
		assert.Empty(t, labels.store)
		assert.Empty(t, model.Labels)
	})

	t.Run("usage errors", func(t *testing.T) {
		notify := e.Execute("label set").(Notify)
		assert.Equal(t, state.SeverityWarn, notify.Level)

		notify = e.Execute("label set nope text").(Notify)
		assert.Equal(t, state.SeverityWarn, notify.Level)
	})
}

func TestFilterExecution(t *testing.T) {
	e, model, _ := testEngine()

	e.ExecuteFilter("to:0xaaa")
	assert.Equal(t, "0xaaa", model.Filter.To)

	e.ExecuteFilter("clear")
	assert.True(t, model.Filter.IsEmpty())
}

func TestHints(t *testing.T) {
	e, _, _ := testEngine()

	assert.Contains(t, e.Hint("conv"), ":convert")
	assert.Contains(t, e.Hint("create"), ":create")
	assert.Contains(t, e.Hint("blk"), ":blocks")
	assert.Empty(t, e.Hint("zzz"))
	assert.Empty(t, e.Hint(""))
}

func TestReloadABI(t *testing.T) {
	e, _, _ := testEngine()

	notify := e.Execute("reload-abi").(Notify)
	assert.Equal(t, state.SeverityWarn, notify.Level, "unwired scanner is reported")

	called := false
	e.ReloadABI = func() { called = true }
	notify = e.Execute("reload-abi").(Notify)
	assert.Equal(t, state.SeverityInfo, notify.Level)
	assert.True(t, called)
}

func TestDispatch(t *testing.T) {
	e, model, _ := testEngine()

	t.Run("navigate pushes and pops", func(t *testing.T) {
		e.Dispatch(Navigate{Target: state.ViewTrace}, nil)
		assert.Equal(t, state.ViewTrace, model.CurrentView())
		e.Dispatch(Navigate{Back: true}, nil)
		assert.Equal(t, state.ViewDashboard, model.CurrentView())
	})

	t.Run("queue rejection becomes a toast", func(t *testing.T) {
		e.Dispatch(QueueRpc{Command: ingest.Refresh{}}, func(ingest.Command) bool { return false })
		assert.Contains(t, model.Status.Message, "busy")

		e.Dispatch(QueueRpc{Command: ingest.Refresh{}}, func(ingest.Command) bool { return true })
	})

	t.Run("quit stops the loop", func(t *testing.T) {
		assert.False(t, e.Dispatch(Quit{}, nil))
		assert.True(t, e.Dispatch(None{}, nil))
	})
}
