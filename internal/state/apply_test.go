package state

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poke/internal/abiregistry"
	"poke/internal/ingest"
	"poke/internal/transport"
)

func newModel() *Model {
	return New(abiregistry.NewStore())
}

func block(number uint64, hash byte, txHashes ...byte) ingest.BlockSummary {
	b := ingest.BlockSummary{
		Number:     number,
		Hash:       common.Hash{hash},
		ParentHash: common.Hash{hash - 1},
	}
	for i, th := range txHashes {
		to := common.HexToAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
		b.Transactions = append(b.Transactions, ingest.TxSummary{
			Hash:        common.Hash{th},
			BlockNumber: number,
			Index:       uint(i),
			From:        common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"),
			To:          &to,
			Value:       big.NewInt(0),
		})
	}
	return b
}

func TestBlockRing(t *testing.T) {
	t.Run("numbers stay unique and strictly decreasing", func(t *testing.T) {
		m := newModel()
		for n := uint64(1); n <= 60; n++ {
			m.Apply(ingest.HeadAdvanced{Block: block(n, byte(n))})
		}

		require.Len(t, m.Blocks, BlockCapacity)
		for i := 1; i < len(m.Blocks); i++ {
			assert.Less(t, m.Blocks[i].Number, m.Blocks[i-1].Number)
		}
		assert.Equal(t, uint64(60), m.Blocks[0].Number)
		assert.Equal(t, uint64(11), m.Blocks[len(m.Blocks)-1].Number)
	})

	t.Run("transaction eviction is synchronous with block eviction", func(t *testing.T) {
		m := newModel()
		for n := uint64(1); n <= 55; n++ {
			m.Apply(ingest.HeadAdvanced{Block: block(n, byte(n), byte(n))})
		}

		require.Len(t, m.Txs, BlockCapacity)
		for _, tx := range m.Txs {
			assert.GreaterOrEqual(t, tx.BlockNumber, uint64(6), "evicted blocks leave no transactions behind")
		}
	})

	t.Run("same-number block is reconciled by hash", func(t *testing.T) {
		m := newModel()
		m.Apply(ingest.HeadAdvanced{Block: block(100, 0xA0)})
		m.Apply(ingest.BlockFilled{Block: block(100, 0xB0)})

		require.Len(t, m.Blocks, 1)
		assert.Equal(t, common.Hash{0xB0}, m.Blocks[0].Hash)
	})

	t.Run("out-of-order arrival keeps the ring sorted", func(t *testing.T) {
		m := newModel()
		m.Apply(ingest.HeadAdvanced{Block: block(10, 10)})
		m.Apply(ingest.BlockFilled{Block: block(8, 8)})
		m.Apply(ingest.BlockFilled{Block: block(9, 9)})

		numbers := []uint64{m.Blocks[0].Number, m.Blocks[1].Number, m.Blocks[2].Number}
		assert.Equal(t, []uint64{10, 9, 8}, numbers)
	})
}

func TestSelectionBehavior(t *testing.T) {
	t.Run("selection at the head follows new blocks", func(t *testing.T) {
		m := newModel()
		m.Apply(ingest.HeadAdvanced{Block: block(1, 1)})
		m.Apply(ingest.HeadAdvanced{Block: block(2, 2)})

		assert.Zero(t, m.SelectedBlock, "head selection sticks to the newest block")
		assert.Equal(t, uint64(2), m.SelectedBlockSummary().Number)
	})

	t.Run("selection away from the head keeps its block", func(t *testing.T) {
		m := newModel()
		for n := uint64(1); n <= 5; n++ {
			m.Apply(ingest.HeadAdvanced{Block: block(n, byte(n))})
		}
		m.SelectedBlock = 2 // block 3
		selected := m.SelectedBlockSummary().Number

		m.Apply(ingest.HeadAdvanced{Block: block(6, 6)})
		assert.Equal(t, selected, m.SelectedBlockSummary().Number)
	})

	t.Run("selection in a detail view never follows the head", func(t *testing.T) {
		m := newModel()
		m.Apply(ingest.HeadAdvanced{Block: block(1, 1)})
		m.Push(ViewBlockDetail)

		m.Apply(ingest.HeadAdvanced{Block: block(2, 2)})
		assert.Equal(t, uint64(1), m.SelectedBlockSummary().Number)
	})

	t.Run("indices clamp to range after shrinking", func(t *testing.T) {
		m := newModel()
		m.Apply(ingest.HeadAdvanced{Block: block(1, 1, 0x11, 0x12)})
		m.SelectedTx = 1

		m.SetFilter(mustFilter(t, "to:0xcccc"))
		assert.Zero(t, m.SelectedTx, "empty visible set coerces to zero")

		m.SetFilter(Filter{})
		m.SelectedBlock = 99
		m.ClampSelections()
		assert.Zero(t, m.SelectedBlock)
	})
}

func TestApplyEvents(t *testing.T) {
	t.Run("receipt status survives ring rebuilds", func(t *testing.T) {
		m := newModel()
		m.Apply(ingest.HeadAdvanced{Block: block(1, 1, 0x11)})
		m.Apply(ingest.TxStatusUpdated{Hash: common.Hash{0x11}, Status: ingest.StatusReverted})

		m.Apply(ingest.HeadAdvanced{Block: block(2, 2, 0x22)})

		var reverted *ingest.TxSummary
		for _, tx := range m.Txs {
			if tx.Hash == (common.Hash{0x11}) {
				reverted = tx
			}
		}
		require.NotNil(t, reverted)
		assert.Equal(t, ingest.StatusReverted, reverted.Status)
	})

	t.Run("connected and status samples land on the endpoint", func(t *testing.T) {
		m := newModel()
		m.Apply(ingest.Connected{Endpoint: "http://localhost:8545", NodeKind: transport.NodeAnvil, ChainID: 31337})
		m.Apply(ingest.PeerCount{Count: 3})
		m.Apply(ingest.SyncProgress{Syncing: true, Current: 10, Target: 20})

		assert.True(t, m.Endpoint.Connected)
		assert.Equal(t, transport.NodeAnvil, m.Endpoint.NodeKind)
		assert.Equal(t, uint64(3), m.Endpoint.PeerCount)
		assert.True(t, m.Endpoint.Syncing)

		m.Apply(ingest.Disconnected{})
		assert.False(t, m.Endpoint.Connected)
		assert.Equal(t, SeverityWarn, m.Status.Level)
	})

	t.Run("trace ready builds collapse state beyond depth 2", func(t *testing.T) {
		tree := &ingest.TraceTree{Frames: []ingest.Frame{
			{Depth: 0, Children: []int{1}, Parent: -1},
			{Depth: 1, Children: []int{2}, Parent: 0},
			{Depth: 2, Children: []int{3}, Parent: 1},
			{Depth: 3, Parent: 2},
		}}

		m := newModel()
		hash := common.Hash{0xaa}
		m.PendingTrace = &hash
		m.Apply(ingest.TraceReady{Hash: hash, Trace: tree})

		require.NotNil(t, m.Trace)
		assert.Nil(t, m.PendingTrace)
		assert.False(t, m.Trace.Collapsed[0])
		assert.False(t, m.Trace.Collapsed[1])
		assert.True(t, m.Trace.Collapsed[2], "depth 2 with children starts folded")
		assert.False(t, m.Trace.Collapsed[3], "leaves have nothing to fold")

		m.Trace.Toggle(2)
		assert.False(t, m.Trace.Collapsed[2])
	})

	t.Run("trace method-not-found sets the dedicated message", func(t *testing.T) {
		m := newModel()
		m.Apply(ingest.RpcError{Context: "trace", Err: &transport.Error{Kind: transport.KindMethodNotFound, Msg: "nope"}})

		assert.Contains(t, m.TraceError, "debug_traceTransaction")
	})

	t.Run("code probe fills the contract map", func(t *testing.T) {
		m := newModel()
		addr := common.HexToAddress("0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC")
		m.Apply(ingest.CodeReady{Address: addr, HasCode: true, CodeSize: 1200})

		require.Contains(t, m.Contracts, addr)
		assert.True(t, m.Addresses[addr].Contract)
		assert.Equal(t, 1200, m.Addresses[addr].CodeSize)
	})

	t.Run("balances land on the address record", func(t *testing.T) {
		m := newModel()
		addr := common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
		m.Apply(ingest.BalancesReady{
			Address: addr,
			Native:  big.NewInt(1_500_000_000_000_000_000),
			Nonce:   7,
			Tokens: []ingest.TokenBalance{
				{Symbol: "TST", Decimals: 6, Value: big.NewInt(1_000_000)},
			},
		})

		rec := m.Addresses[addr]
		require.NotNil(t, rec)
		require.NotNil(t, rec.Balance)
		assert.Equal(t, uint64(7), rec.Nonce)
		assert.Equal(t, "1.5", rec.Balance.Native.Value)
		require.Len(t, rec.Balance.Tokens, 1)
		assert.Equal(t, "1", rec.Balance.Tokens[0].Value)
	})
}

func TestDrain(t *testing.T) {
	t.Run("applies buffered events up to the limit", func(t *testing.T) {
		m := newModel()
		events := make(chan ingest.Event, 8)
		events <- ingest.PeerCount{Count: 1}
		events <- ingest.PeerCount{Count: 2}

		assert.Equal(t, 2, m.Drain(events))
		assert.Equal(t, uint64(2), m.Endpoint.PeerCount)
	})

	t.Run("pause freezes application while events buffer", func(t *testing.T) {
		m := newModel()
		events := make(chan ingest.Event, 8)
		events <- ingest.PeerCount{Count: 9}

		m.Paused = true
		assert.Zero(t, m.Drain(events))
		assert.Zero(t, m.Endpoint.PeerCount)
		assert.Len(t, events, 1, "the event stays buffered")

		m.Paused = false
		assert.Equal(t, 1, m.Drain(events))
		assert.Equal(t, uint64(9), m.Endpoint.PeerCount)
	})
}

func TestViewStack(t *testing.T) {
	m := newModel()
	assert.Equal(t, ViewDashboard, m.CurrentView())

	m.Push(ViewBlockDetail)
	m.Push(ViewTxDetail)
	m.Push(ViewTrace)
	assert.Equal(t, ViewTrace, m.CurrentView())

	m.Pop()
	m.Pop()
	m.Pop()
	m.Pop() // extra pop must not empty the stack
	assert.Equal(t, ViewDashboard, m.CurrentView())
	assert.Equal(t, 1, m.StackDepth())
}

func mustFilter(t *testing.T, s string) Filter {
	t.Helper()
	f, err := ParseFilter(s)
	require.NoError(t, err)
	return f
}
