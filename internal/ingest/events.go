package ingest

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"poke/internal/transport"
)

// BlockSummary is the engine's view of one mined block, carried by
// HeadAdvanced and BlockFilled events.
type BlockSummary struct {
	Number       uint64
	Hash         common.Hash
	ParentHash   common.Hash
	Timestamp    uint64 // seconds
	GasUsed      uint64
	GasLimit     uint64
	BaseFee      *big.Int // nil before EIP-1559
	Transactions []TxSummary
}

// TxHashes returns the block's transaction hashes in mined order.
func (b BlockSummary) TxHashes() []common.Hash {
	hashes := make([]common.Hash, len(b.Transactions))
	for i, tx := range b.Transactions {
		hashes[i] = tx.Hash
	}
	return hashes
}

// TxStatus is the receipt-resolved outcome of a transaction.
type TxStatus int

const (
	StatusUnknown TxStatus = iota // no receipt fetched yet, or still pending
	StatusSuccess
	StatusReverted
)

// String returns the short label the UI renders.
func (s TxStatus) String() string {
	switch s {
	case StatusSuccess:
		return "ok"
	case StatusReverted:
		return "revert"
	default:
		return "?"
	}
}

// TxSummary is the engine's view of one transaction inside a block.
type TxSummary struct {
	Hash        common.Hash
	BlockNumber uint64
	Index       uint
	From        common.Address
	To          *common.Address // nil for contract creation
	Value       *big.Int
	GasLimit    uint64
	GasPrice    *big.Int // effective gas price
	Input       []byte
	Status      TxStatus

	// Filled in by the projection once the ABI registry resolves the selector.
	Method string
	Args   []string
}

// TokenBalance is one entry of a BalancesReady event.
type TokenBalance struct {
	Token    common.Address
	Symbol   string
	Decimals uint8
	Value    *big.Int
}

// TokenConfig identifies an ERC-20 token the balance fetch should query.
type TokenConfig struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// Event is the sealed set of notifications the engine emits. The state
// projection applies them in arrival order.
type Event interface{ isEvent() }

// Connected reports a (re)established endpoint, its negotiated node kind and
// chain id.
type Connected struct {
	Endpoint      string
	ClientVersion string
	NodeKind      transport.NodeKind
	ChainID       uint64
	Latency       int64 // milliseconds, from the health probe
}

// Disconnected reports three consecutive head-poll failures or a requested
// Reconnect; a reconnect attempt follows.
type Disconnected struct{}

// HeadAdvanced carries a newly fetched block at the chain head.
type HeadAdvanced struct{ Block BlockSummary }

// BlockFilled carries a block refetched during reorg reconciliation rather
// than at the head. Gap-fill blocks arrive as HeadAdvanced.
type BlockFilled struct{ Block BlockSummary }

// TxStatusUpdated carries a lazily resolved receipt outcome.
type TxStatusUpdated struct {
	Hash    common.Hash
	Status  TxStatus
	GasUsed uint64
}

// PeerCount carries the latest net_peerCount sample. Superseded by newer
// samples; droppable under channel pressure.
type PeerCount struct{ Count uint64 }

// SyncProgress carries the latest eth_syncing sample. Droppable under
// channel pressure.
type SyncProgress struct {
	Syncing bool
	Current uint64
	Target  uint64
}

// TraceReady carries a parsed call-frame tree. Never dropped.
type TraceReady struct {
	Hash  common.Hash
	Trace *TraceTree
}

// BalancesReady carries the native balance plus any requested token
// balances for one address.
type BalancesReady struct {
	Address  common.Address
	Native   *big.Int
	Tokens   []TokenBalance
	Nonce    uint64
}

// StorageReady carries one storage word read.
type StorageReady struct {
	Address common.Address
	Slot    common.Hash
	Word    common.Hash
}

// CodeReady carries the result of a code-presence probe.
type CodeReady struct {
	Address  common.Address
	HasCode  bool
	CodeSize int
}

// MempoolStatus carries a txpool_status sample.
type MempoolStatus struct {
	Pending uint64
	Queued  uint64
}

// AdminResult carries the raw result of a node-management call
// (anvil_*, evm_*).
type AdminResult struct {
	Method string
	Result string
}

// RpcError reports a non-fatal failure; Context names the operation
// ("head", "trace", "balance", ...).
type RpcError struct {
	Context string
	Err     error
}

func (Connected) isEvent()       {}
func (Disconnected) isEvent()    {}
func (HeadAdvanced) isEvent()    {}
func (BlockFilled) isEvent()     {}
func (TxStatusUpdated) isEvent() {}
func (PeerCount) isEvent()       {}
func (SyncProgress) isEvent()    {}
func (TraceReady) isEvent()      {}
func (BalancesReady) isEvent()   {}
func (StorageReady) isEvent()    {}
func (CodeReady) isEvent()       {}
func (MempoolStatus) isEvent()   {}
func (AdminResult) isEvent()     {}
func (RpcError) isEvent()        {}

// critical reports whether ev may never be dropped under channel pressure.
func critical(ev Event) bool {
	switch ev.(type) {
	case HeadAdvanced, BlockFilled, TraceReady, Connected, Disconnected:
		return true
	default:
		return false
	}
}

// Command is the sealed set of requests the UI posts to the engine.
type Command interface{ isCommand() }

// FetchTrace requests a callTracer tree for the transaction.
type FetchTrace struct{ Hash common.Hash }

// FetchBalances requests the native balance, nonce, and the given token
// balances for an address.
type FetchBalances struct {
	Address common.Address
	Tokens  []TokenConfig
}

// FetchStorage requests one storage word.
type FetchStorage struct {
	Address common.Address
	Slot    common.Hash
}

// FetchReceipt requests lazy status resolution for a transaction.
type FetchReceipt struct{ Hash common.Hash }

// FetchCode requests a code-presence probe for an address.
type FetchCode struct{ Address common.Address }

// FetchMempool requests a txpool_status sample.
type FetchMempool struct{}

// Refresh re-snapshots the most recent blocks unconditionally.
type Refresh struct{}

// Reconnect tears the connection down and dials the given endpoint.
type Reconnect struct{ Endpoint transport.Endpoint }

// NodeAdmin issues a node-management method (anvil_*, evm_*) verbatim.
type NodeAdmin struct {
	Method string
	Params []any
}

func (FetchTrace) isCommand()    {}
func (FetchBalances) isCommand() {}
func (FetchStorage) isCommand()  {}
func (FetchReceipt) isCommand()  {}
func (FetchCode) isCommand()     {}
func (FetchMempool) isCommand()  {}
func (Refresh) isCommand()       {}
func (Reconnect) isCommand()     {}
func (NodeAdmin) isCommand()     {}
