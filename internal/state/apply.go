package state

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"poke/internal/abiregistry"
	"poke/internal/ingest"
	"poke/internal/pkg/x/chflow"
	"poke/internal/transport"
)

// Drain applies up to DrainLimit buffered engine events. While paused,
// nothing is applied and events keep accumulating in the channel. It
// reports how many events were applied.
func (m *Model) Drain(events <-chan ingest.Event) int {
	if m.Paused {
		return 0
	}

	applied := 0
	for applied < DrainLimit {
		ev, ok := chflow.TryReceive(events)
		if !ok {
			break
		}
		m.Apply(ev)
		applied++
	}
	return applied
}

// Apply folds one engine event into the model and restores the selection
// invariant.
func (m *Model) Apply(ev ingest.Event) {
	switch ev := ev.(type) {
	case ingest.Connected:
		m.Endpoint.Connected = true
		m.Endpoint.Endpoint = ev.Endpoint
		m.Endpoint.ClientVersion = ev.ClientVersion
		m.Endpoint.NodeKind = ev.NodeKind
		m.Endpoint.ChainID = ev.ChainID
		m.Endpoint.LatencyMillis = ev.Latency
		m.Notify(fmt.Sprintf("connected to %s (%s)", ev.Endpoint, ev.NodeKind), SeverityInfo)

	case ingest.Disconnected:
		m.Endpoint.Connected = false
		m.Notify("connection lost, reconnecting", SeverityWarn)

	case ingest.HeadAdvanced:
		m.insertBlock(ev.Block, true)

	case ingest.BlockFilled:
		m.insertBlock(ev.Block, false)

	case ingest.TxStatusUpdated:
		if tx, ok := m.txIndex[ev.Hash]; ok {
			tx.Status = ev.Status
		}

	case ingest.PeerCount:
		m.Endpoint.PeerCount = ev.Count

	case ingest.SyncProgress:
		m.Endpoint.Syncing = ev.Syncing
		m.Endpoint.SyncCurrent = ev.Current
		m.Endpoint.SyncTarget = ev.Target

	case ingest.TraceReady:
		m.Trace = newTraceView(ev.Hash, ev.Trace)
		m.TraceError = ""
		m.SelectedFrame = 0
		m.PendingTrace = nil

	case ingest.BalancesReady:
		m.applyBalances(ev)

	case ingest.StorageReady:
		m.StorageView[ev.Slot] = ev.Word
		m.PendingStorage = nil
		m.Notify(fmt.Sprintf("storage %s = %s", ev.Slot.Hex(), ev.Word.Hex()), SeverityInfo)

	case ingest.CodeReady:
		rec := m.TouchAddress(ev.Address)
		rec.Contract = ev.HasCode
		rec.CodeSize = ev.CodeSize
		if ev.HasCode {
			m.Contracts[ev.Address] = rec
		}

	case ingest.MempoolStatus:
		m.MempoolPending = ev.Pending
		m.MempoolQueued = ev.Queued
		m.Notify(fmt.Sprintf("mempool: %d pending, %d queued", ev.Pending, ev.Queued), SeverityInfo)

	case ingest.AdminResult:
		m.Notify(fmt.Sprintf("%s → %s", ev.Method, ev.Result), SeverityInfo)

	case ingest.RpcError:
		m.applyRpcError(ev)
	}

	m.ClampSelections()
}

// applyRpcError routes a non-fatal engine failure to the right surface.
func (m *Model) applyRpcError(ev ingest.RpcError) {
	if ev.Context == "trace" {
		m.PendingTrace = nil
		if transport.KindOf(ev.Err) == transport.KindMethodNotFound {
			m.TraceError = "node does not expose debug_traceTransaction"
			m.Notify(m.TraceError, SeverityWarn)
			return
		}
	}
	if ev.Context == "balance" {
		m.PendingBalance = nil
	}
	if ev.Context == "storage" {
		m.PendingStorage = nil
	}
	m.Notify(fmt.Sprintf("rpc %s: %v", ev.Context, ev.Err), SeverityWarn)
}

// applyBalances folds a balance fetch into the address record.
func (m *Model) applyBalances(ev ingest.BalancesReady) {
	rec := m.TouchAddress(ev.Address)
	rec.Nonce = ev.Nonce

	snapshot := &BalanceSnapshot{At: time.Now()}
	if ev.Native != nil {
		snapshot.Native = &TokenAmount{Symbol: "ETH", Decimals: 18, Value: formatUnits(ev.Native, 18)}
	}
	for _, tb := range ev.Tokens {
		snapshot.Tokens = append(snapshot.Tokens, TokenAmount{
			Symbol:   tb.Symbol,
			Decimals: tb.Decimals,
			Value:    formatUnits(tb.Value, tb.Decimals),
		})
	}
	rec.Balance = snapshot
	m.PendingBalance = nil
}

// insertBlock reconciles a fetched block into the ring: same-number blocks
// are replaced by hash (reorg), otherwise the block is inserted keeping the
// ring strictly decreasing by number, and the tail evicted past capacity.
// atHead controls whether a selection resting on index 0 follows the new
// head.
func (m *Model) insertBlock(block ingest.BlockSummary, atHead bool) {
	followHead := atHead && m.SelectedBlock == 0 && !m.InDetailView()

	if idx := m.blockIndex(block.Number); idx >= 0 {
		m.Blocks[idx] = block
	} else {
		pos := 0
		for pos < len(m.Blocks) && m.Blocks[pos].Number > block.Number {
			pos++
		}
		m.Blocks = append(m.Blocks, ingest.BlockSummary{})
		copy(m.Blocks[pos+1:], m.Blocks[pos:])
		m.Blocks[pos] = block

		if !followHead && pos <= m.SelectedBlock && len(m.Blocks) > 1 {
			m.SelectedBlock++
		}
	}

	if len(m.Blocks) > BlockCapacity {
		m.Blocks = m.Blocks[:BlockCapacity]
	}

	for i := range block.Transactions {
		tx := &block.Transactions[i]
		m.TouchAddress(tx.From)
		if tx.To != nil {
			m.TouchAddress(*tx.To)
		}
	}

	m.rebuildTxs()

	if followHead {
		m.SelectedBlock = 0
	}
}

// blockIndex finds a block by number, or -1.
func (m *Model) blockIndex(number uint64) int {
	for i := range m.Blocks {
		if m.Blocks[i].Number == number {
			return i
		}
	}
	return -1
}

// rebuildTxs rederives the transaction ring and visible subset from the
// block ring. Eviction is therefore always synchronous with block eviction.
// Receipt statuses already resolved survive through the hash index.
func (m *Model) rebuildTxs() {
	statuses := make(map[common.Hash]ingest.TxStatus, len(m.txIndex))
	for hash, tx := range m.txIndex {
		if tx.Status != ingest.StatusUnknown {
			statuses[hash] = tx.Status
		}
	}

	m.Txs = m.Txs[:0]
	m.txIndex = make(map[common.Hash]*ingest.TxSummary, cap(m.Txs))

	registry := m.Registry()
	for bi := range m.Blocks {
		block := &m.Blocks[bi]
		for ti := range block.Transactions {
			tx := &block.Transactions[ti]
			if tx.Status == ingest.StatusUnknown {
				if st, ok := statuses[tx.Hash]; ok {
					tx.Status = st
				}
			}
			if tx.Method == "" && len(tx.Input) >= 4 {
				if entry, ok := registry.Function(abiregistry.SelectorFromBytes(tx.Input)); ok {
					tx.Method = entry.Name
				}
			}
			m.Txs = append(m.Txs, tx)
			m.txIndex[tx.Hash] = tx
		}
	}

	m.applyFilter()
}
