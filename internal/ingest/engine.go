// Package ingest runs the background worker that owns the transport, keeps
// the chain head current, fills block gaps, tracks peer and sync state, and
// serves on-demand fetches. It communicates with the UI exclusively through
// two bounded channels: commands in, events out.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"poke/internal/pkg/logger"
	"poke/internal/pkg/resilience/retry"
	"poke/internal/pkg/types"
	"poke/internal/pkg/x/chflow"
	"poke/internal/transport"
)

var ErrEngineAlreadyStarted = errors.New("engine already started")

const (
	headPollInterval   = 500 * time.Millisecond
	statusPollInterval = 2 * time.Second
	gapFillBatchLimit  = 16
	snapshotDepth      = 10
	teardownDeadline   = 500 * time.Millisecond

	// emitGrace is how long a critical emit may wait on a full event channel
	// before the head loop yields a tick.
	emitGrace = 50 * time.Millisecond

	commandChannelCapacity = 64
	eventChannelCapacity   = 4096

	// hashWindow bounds the number→hash history kept for reorg detection.
	hashWindow = 64

	// disconnectThreshold is the number of consecutive head-poll failures
	// that trigger a reconnect.
	disconnectThreshold = 3
)

// balanceOfSelector is the 4-byte selector of ERC-20 balanceOf(address).
var balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

// Engine is the ingestion worker. All fields past construction are owned by
// the run goroutine; the UI interacts through Submit and the event channel.
type Engine struct {
	mu        sync.Mutex
	isStarted bool
	cancel    context.CancelFunc

	endpoint transport.Endpoint
	dial     func(transport.Endpoint) transport.Transport

	commands chan Command
	events   chan Event

	retry retry.Retry

	// run-goroutine state
	tr           transport.Transport
	nodeKind     transport.NodeKind
	head         uint64
	hashes       map[uint64]common.Hash
	headFailures int
	unsupported  map[string]bool
	skipHeadTick bool
}

// Option configures the engine.
type Option func(*Engine)

// WithDialer overrides how endpoints are dialed. Tests inject fake
// transports here.
func WithDialer(dial func(transport.Endpoint) transport.Transport) Option {
	return func(e *Engine) {
		e.dial = dial
	}
}

// WithRetry overrides the transient-failure retry policy.
func WithRetry(r retry.Retry) Option {
	return func(e *Engine) {
		e.retry = r
	}
}

// New builds an engine for the given endpoint. Nothing is dialed until Start.
func New(endpoint transport.Endpoint, opts ...Option) *Engine {
	e := &Engine{
		endpoint:    endpoint,
		dial:        transport.Dial,
		commands:    make(chan Command, commandChannelCapacity),
		events:      make(chan Event, eventChannelCapacity),
		retry:       retry.New(retry.WithRetryIf(transientOnly)),
		hashes:      make(map[uint64]common.Hash, hashWindow),
		unsupported: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// transientOnly restricts engine retries to timeout and network failures.
func transientOnly(err error) bool {
	var te *transport.Error
	return errors.As(err, &te) && te.Retryable()
}

// Start dials the endpoint, performs the initial handshake, and launches the
// run loop. The caller bounds the initial connection with ctx (the CLI uses
// a 5-second deadline). The returned channel is closed when the engine exits.
func (e *Engine) Start(ctx context.Context) (<-chan Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isStarted {
		return nil, ErrEngineAlreadyStarted
	}

	e.tr = e.dial(e.endpoint)
	if err := e.handshake(ctx); err != nil {
		_ = e.tr.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.isStarted = true

	go e.run(runCtx)

	return e.events, nil
}

// Submit posts a command without blocking. It reports false when the request
// channel is full; the UI surfaces that as a toast.
func (e *Engine) Submit(cmd Command) bool {
	return chflow.TrySend(e.commands, cmd)
}

// Close stops the engine. The run goroutine observes the closed command
// channel at its next wakeup and tears the connection down within the
// teardown deadline.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isStarted {
		return
	}
	e.isStarted = false
	close(e.commands)
	e.cancel()
}

// handshake probes the endpoint, detects the node kind, and announces the
// connection.
func (e *Engine) handshake(ctx context.Context) error {
	health, err := e.tr.Health(ctx)
	if err != nil {
		return fmt.Errorf("initial health probe: %w", err)
	}
	e.nodeKind = health.NodeKind

	chainID, err := e.fetchChainID(ctx)
	if err != nil {
		logger.Warn(ctx, "chain id probe failed", "error", err)
	}

	e.emit(ctx, Connected{
		Endpoint:      e.tr.Endpoint(),
		ClientVersion: health.ClientVersion,
		NodeKind:      health.NodeKind,
		ChainID:       chainID,
		Latency:       health.Latency.Milliseconds(),
	})

	logger.Info(ctx, "connected",
		"endpoint", e.tr.Endpoint(),
		"node.kind", health.NodeKind,
		"chain.id", chainID,
	)

	return nil
}

// run is the engine's single loop: it multiplexes the two periodic tickers
// and the command channel until shutdown.
func (e *Engine) run(ctx context.Context) {
	defer close(e.events)

	headTicker := time.NewTicker(headPollInterval)
	defer headTicker.Stop()
	statusTicker := time.NewTicker(statusPollInterval)
	defer statusTicker.Stop()

	e.snapshot(ctx)

	for {
		select {
		case <-ctx.Done():
			e.teardown()
			return

		case cmd, ok := <-e.commands:
			if !ok {
				e.teardown()
				return
			}
			e.handleCommand(ctx, cmd)

		case <-headTicker.C:
			e.headTick(ctx)

		case <-statusTicker.C:
			e.statusTick(ctx)
		}
	}
}

// teardown closes the transport with a best-effort deadline.
func (e *Engine) teardown() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.tr.Close()
	}()

	select {
	case <-done:
	case <-time.After(teardownDeadline):
	}
}

// emit delivers an event honoring the pressure policy: critical events wait
// out the grace period and then force delivery while the head loop yields a
// tick; everything else is dropped when the channel is full.
func (e *Engine) emit(ctx context.Context, ev Event) {
	if !critical(ev) {
		chflow.TrySend(e.events, ev)
		return
	}

	if chflow.SendWithin(ctx, e.events, ev, emitGrace) {
		return
	}

	e.skipHeadTick = true
	chflow.Send(ctx, e.events, ev)
}

// emitRpcError reports a non-fatal failure.
func (e *Engine) emitRpcError(ctx context.Context, context_ string, err error) {
	logger.Warn(ctx, "rpc failure", "op", context_, "error", err)
	e.emit(ctx, RpcError{Context: context_, Err: err})
}

// ---- periodic loops ----

// call issues one RPC under the engine's failure model: transient failures
// (timeout, network) are retried within the backoff budget, everything else
// returns immediately. Every transport call the engine makes goes through
// here, except the trace fetch, which is never retried.
func (e *Engine) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	var result json.RawMessage
	err := e.retry.Execute(ctx, func() error {
		raw, err := e.tr.Call(ctx, method, params...)
		if err != nil {
			return err
		}
		result = raw
		return nil
	})
	return result, err
}

// callUint64 issues a call whose result is a single hex quantity.
func (e *Engine) callUint64(ctx context.Context, method string, params ...any) (uint64, error) {
	raw, err := e.call(ctx, method, params...)
	if err != nil {
		return 0, err
	}
	var h types.Hex
	if err := json.Unmarshal(raw, &h); err != nil {
		return 0, &transport.Error{Kind: transport.KindDecode, Msg: err.Error()}
	}
	return h.Uint64(), nil
}

// headTick polls eth_blockNumber and fills any gap up to the batch limit.
func (e *Engine) headTick(ctx context.Context) {
	if e.skipHeadTick {
		e.skipHeadTick = false
		return
	}

	head, err := e.callUint64(ctx, "eth_blockNumber")
	if err != nil {
		e.headFailures++
		e.emitRpcError(ctx, "head", err)
		if e.headFailures >= disconnectThreshold {
			e.reconnect(ctx, e.endpoint)
		}
		return
	}
	e.headFailures = 0

	if e.head == 0 {
		// First sighting: the snapshot already backfilled recent blocks.
		e.head = head
		return
	}

	limit := e.head + gapFillBatchLimit
	for n := e.head + 1; n <= head && n <= limit; n++ {
		block, err := e.fetchBlock(ctx, n)
		if err != nil {
			e.emitRpcError(ctx, "gap-fill", err)
			return
		}

		if prev, ok := e.hashes[n-1]; ok && block.ParentHash != prev {
			e.reconcileReorg(ctx, n, block.ParentHash)
		}

		e.recordBlock(block)
		e.emit(ctx, HeadAdvanced{Block: block})
		e.head = n
	}
}

// statusTick samples sync state and peer count.
func (e *Engine) statusTick(ctx context.Context) {
	if raw, err := e.call(ctx, "eth_syncing"); err != nil {
		e.emitRpcError(ctx, "sync", err)
	} else {
		e.emit(ctx, parseSyncStatus(raw))
	}

	if count, err := e.callUint64(ctx, "net_peerCount"); err != nil {
		e.emitRpcError(ctx, "peers", err)
	} else {
		e.emit(ctx, PeerCount{Count: count})
	}
}

// parseSyncStatus handles the two shapes of eth_syncing: literal false, or a
// progress object.
func parseSyncStatus(raw json.RawMessage) SyncProgress {
	var notSyncing bool
	if err := json.Unmarshal(raw, &notSyncing); err == nil {
		return SyncProgress{Syncing: false}
	}

	var progress struct {
		CurrentBlock types.Hex `json:"currentBlock"`
		HighestBlock types.Hex `json:"highestBlock"`
	}
	if err := json.Unmarshal(raw, &progress); err != nil {
		return SyncProgress{Syncing: false}
	}

	return SyncProgress{
		Syncing: true,
		Current: progress.CurrentBlock.Uint64(),
		Target:  progress.HighestBlock.Uint64(),
	}
}

// snapshot backfills the most recent blocks after a connect or refresh.
func (e *Engine) snapshot(ctx context.Context) {
	head, err := e.callUint64(ctx, "eth_blockNumber")
	if err != nil {
		e.emitRpcError(ctx, "snapshot", err)
		return
	}

	start := uint64(0)
	if head > snapshotDepth {
		start = head - snapshotDepth
	}
	for n := start; n <= head; n++ {
		block, err := e.fetchBlock(ctx, n)
		if err != nil {
			e.emitRpcError(ctx, "snapshot", err)
			continue
		}
		e.recordBlock(block)
		e.emit(ctx, HeadAdvanced{Block: block})
	}
	e.head = head
}

// reconcileReorg walks backwards from the mismatch until the parent chain
// reattaches, re-fetching and re-emitting the orphaned range in ascending
// order.
func (e *Engine) reconcileReorg(ctx context.Context, mismatchAt uint64, want common.Hash) {
	logger.Warn(ctx, "reorg detected", "block", mismatchAt)

	var refetched []BlockSummary
	expect := want
	for n := mismatchAt - 1; ; n-- {
		known, ok := e.hashes[n]
		if !ok {
			break // out of window; accept the new chain as-is
		}
		if known == expect {
			break // reattached
		}

		delete(e.hashes, n)
		block, err := e.fetchBlock(ctx, n)
		if err != nil {
			e.emitRpcError(ctx, "reorg", err)
			return
		}
		refetched = append(refetched, block)
		expect = block.ParentHash

		if n == 0 {
			break
		}
	}

	for i := len(refetched) - 1; i >= 0; i-- {
		e.recordBlock(refetched[i])
		e.emit(ctx, BlockFilled{Block: refetched[i]})
	}
}

// recordBlock remembers the block hash for reorg detection, pruning the
// window.
func (e *Engine) recordBlock(b BlockSummary) {
	e.hashes[b.Number] = b.Hash
	if del := b.Number; del >= hashWindow {
		delete(e.hashes, del-hashWindow)
	}
}

// ---- command handling ----

func (e *Engine) handleCommand(ctx context.Context, cmd Command) {
	switch cmd := cmd.(type) {
	case FetchTrace:
		e.fetchTrace(ctx, cmd.Hash)
	case FetchBalances:
		e.fetchBalances(ctx, cmd.Address, cmd.Tokens)
	case FetchStorage:
		e.fetchStorage(ctx, cmd.Address, cmd.Slot)
	case FetchReceipt:
		e.fetchReceipt(ctx, cmd.Hash)
	case FetchCode:
		e.fetchCode(ctx, cmd.Address)
	case FetchMempool:
		e.fetchMempool(ctx)
	case Refresh:
		e.snapshot(ctx)
	case Reconnect:
		e.reconnect(ctx, cmd.Endpoint)
	case NodeAdmin:
		e.nodeAdmin(ctx, cmd)
	}
}

// checkSupported consults the per-method unsupported cache that
// markUnsupported fills.
// It reports false when the method is already known to be absent.
func (e *Engine) checkSupported(method string) bool {
	return !e.unsupported[method]
}

// markUnsupported caches a method-not-found verdict so the method is not
// re-probed against the same node.
func (e *Engine) markUnsupported(ctx context.Context, method string, err error) bool {
	if transport.KindOf(err) != transport.KindMethodNotFound {
		return false
	}
	e.unsupported[method] = true
	logger.Info(ctx, "method unsupported", "method", method, "node.kind", e.nodeKind)
	return true
}

func (e *Engine) fetchTrace(ctx context.Context, hash common.Hash) {
	const method = "debug_traceTransaction"
	if !e.checkSupported(method) {
		e.emitRpcError(ctx, "trace", &transport.Error{Kind: transport.KindMethodNotFound, Msg: method + " disabled on this node"})
		return
	}

	// The trace fetch is the one call exempt from the retry budget: it is
	// expensive on the node and never retried automatically.
	raw, err := e.tr.Call(ctx, method, hash, map[string]string{"tracer": "callTracer"})
	if err != nil {
		e.markUnsupported(ctx, method, err)
		e.emitRpcError(ctx, "trace", err)
		return
	}

	tree, err := ParseTrace(raw)
	if err != nil {
		e.emitRpcError(ctx, "trace", &transport.Error{Kind: transport.KindDecode, Msg: err.Error()})
		return
	}

	e.emit(ctx, TraceReady{Hash: hash, Trace: tree})
}

func (e *Engine) fetchBalances(ctx context.Context, addr common.Address, tokens []TokenConfig) {
	native, err := e.callBig(ctx, "eth_getBalance", addr, "latest")
	if err != nil {
		e.emitRpcError(ctx, "balance", err)
		return
	}

	nonce, err := e.callBig(ctx, "eth_getTransactionCount", addr, "latest")
	if err != nil {
		e.emitRpcError(ctx, "balance", err)
		return
	}

	out := BalancesReady{Address: addr, Native: native, Nonce: nonce.Uint64()}

	for _, token := range tokens {
		value, err := e.callBalanceOf(ctx, token.Address, addr)
		if err != nil {
			e.emitRpcError(ctx, "balance", err)
			continue
		}
		out.Tokens = append(out.Tokens, TokenBalance{
			Token:    token.Address,
			Symbol:   token.Symbol,
			Decimals: token.Decimals,
			Value:    value,
		})
	}

	e.emit(ctx, out)
}

// callBalanceOf issues an eth_call of balanceOf(owner) against the token.
func (e *Engine) callBalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	calldata := make([]byte, 0, 36)
	calldata = append(calldata, balanceOfSelector...)
	calldata = append(calldata, common.LeftPadBytes(owner.Bytes(), 32)...)

	raw, err := e.call(ctx, "eth_call", map[string]any{
		"to":   token,
		"data": hexutil.Bytes(calldata),
	}, "latest")
	if err != nil {
		return nil, err
	}

	var word hexutil.Bytes
	if err := json.Unmarshal(raw, &word); err != nil {
		return nil, &transport.Error{Kind: transport.KindDecode, Msg: err.Error()}
	}
	if len(word) < 32 {
		return nil, &transport.Error{Kind: transport.KindDecode, Msg: "balanceOf returned short word"}
	}

	return common.BytesToHash(word[:32]).Big(), nil
}

func (e *Engine) fetchStorage(ctx context.Context, addr common.Address, slot common.Hash) {
	raw, err := e.call(ctx, "eth_getStorageAt", addr, slot, "latest")
	if err != nil {
		e.emitRpcError(ctx, "storage", err)
		return
	}

	var word common.Hash
	if err := json.Unmarshal(raw, &word); err != nil {
		e.emitRpcError(ctx, "storage", &transport.Error{Kind: transport.KindDecode, Msg: err.Error()})
		return
	}

	e.emit(ctx, StorageReady{Address: addr, Slot: slot, Word: word})
}

func (e *Engine) fetchReceipt(ctx context.Context, hash common.Hash) {
	raw, err := e.call(ctx, "eth_getTransactionReceipt", hash)
	if err != nil {
		e.emitRpcError(ctx, "receipt", err)
		return
	}
	if string(raw) == "null" {
		e.emit(ctx, TxStatusUpdated{Hash: hash, Status: StatusUnknown})
		return
	}

	var receipt struct {
		Status  types.Hex `json:"status"`
		GasUsed types.Hex `json:"gasUsed"`
	}
	if err := json.Unmarshal(raw, &receipt); err != nil {
		e.emitRpcError(ctx, "receipt", &transport.Error{Kind: transport.KindDecode, Msg: err.Error()})
		return
	}

	status := StatusReverted
	if receipt.Status.Uint64() == 1 {
		status = StatusSuccess
	}

	e.emit(ctx, TxStatusUpdated{Hash: hash, Status: status, GasUsed: receipt.GasUsed.Uint64()})
}

func (e *Engine) fetchCode(ctx context.Context, addr common.Address) {
	raw, err := e.call(ctx, "eth_getCode", addr, "latest")
	if err != nil {
		e.emitRpcError(ctx, "code", err)
		return
	}

	var code hexutil.Bytes
	if err := json.Unmarshal(raw, &code); err != nil {
		e.emitRpcError(ctx, "code", &transport.Error{Kind: transport.KindDecode, Msg: err.Error()})
		return
	}

	e.emit(ctx, CodeReady{Address: addr, HasCode: len(code) > 0, CodeSize: len(code)})
}

func (e *Engine) fetchMempool(ctx context.Context) {
	const method = "txpool_status"
	if !e.checkSupported(method) {
		e.emitRpcError(ctx, "mempool", &transport.Error{Kind: transport.KindMethodNotFound, Msg: method + " disabled on this node"})
		return
	}

	raw, err := e.call(ctx, method)
	if err != nil {
		e.markUnsupported(ctx, method, err)
		e.emitRpcError(ctx, "mempool", err)
		return
	}

	var status struct {
		Pending types.Hex `json:"pending"`
		Queued  types.Hex `json:"queued"`
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		e.emitRpcError(ctx, "mempool", &transport.Error{Kind: transport.KindDecode, Msg: err.Error()})
		return
	}

	e.emit(ctx, MempoolStatus{Pending: status.Pending.Uint64(), Queued: status.Queued.Uint64()})
}

// nodeAdmin passes an anvil_*/evm_* method through verbatim. It checks only
// the unsupported cache; the node-kind gate for anvil methods is applied by
// the command layer before the request is queued.
func (e *Engine) nodeAdmin(ctx context.Context, cmd NodeAdmin) {
	if !e.checkSupported(cmd.Method) {
		e.emitRpcError(ctx, "admin", &transport.Error{Kind: transport.KindMethodNotFound, Msg: cmd.Method + " disabled on this node"})
		return
	}

	raw, err := e.call(ctx, cmd.Method, cmd.Params...)
	if err != nil {
		e.markUnsupported(ctx, cmd.Method, err)
		e.emitRpcError(ctx, "admin", err)
		return
	}

	e.emit(ctx, AdminResult{Method: cmd.Method, Result: string(raw)})
}

// reconnect tears the connection down, dials again, and resumes from the
// last known head.
func (e *Engine) reconnect(ctx context.Context, endpoint transport.Endpoint) {
	e.emit(ctx, Disconnected{})
	_ = e.tr.Close()

	e.endpoint = endpoint
	e.tr = e.dial(endpoint)
	e.headFailures = 0
	e.unsupported = make(map[string]bool)

	if err := e.handshake(ctx); err != nil {
		e.emitRpcError(ctx, "reconnect", err)
		return
	}
	// Head resumes from e.head on the next tick; no snapshot replay.
}

// ---- wire decoding ----

// callBig issues a call whose result is a wide hex quantity.
func (e *Engine) callBig(ctx context.Context, method string, params ...any) (*big.Int, error) {
	raw, err := e.call(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	var v hexutil.Big
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &transport.Error{Kind: transport.KindDecode, Msg: err.Error()}
	}
	return v.ToInt(), nil
}

// fetchChainID issues eth_chainId.
func (e *Engine) fetchChainID(ctx context.Context) (uint64, error) {
	raw, err := e.call(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}
	var id types.Hex
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, &transport.Error{Kind: transport.KindDecode, Msg: err.Error()}
	}
	return id.Uint64(), nil
}

// rpcTransaction mirrors the transaction object of eth_getBlockByNumber with
// full bodies.
type rpcTransaction struct {
	Hash             common.Hash     `json:"hash"`
	From             common.Address  `json:"from"`
	To               *common.Address `json:"to"`
	Value            *hexutil.Big    `json:"value"`
	Gas              hexutil.Uint64  `json:"gas"`
	GasPrice         *hexutil.Big    `json:"gasPrice"`
	Input            hexutil.Bytes   `json:"input"`
	TransactionIndex hexutil.Uint64  `json:"transactionIndex"`
}

// rpcBlock mirrors the block object of eth_getBlockByNumber.
type rpcBlock struct {
	Number        hexutil.Uint64   `json:"number"`
	Hash          common.Hash      `json:"hash"`
	ParentHash    common.Hash      `json:"parentHash"`
	Timestamp     hexutil.Uint64   `json:"timestamp"`
	GasUsed       hexutil.Uint64   `json:"gasUsed"`
	GasLimit      hexutil.Uint64   `json:"gasLimit"`
	BaseFeePerGas *hexutil.Big     `json:"baseFeePerGas"`
	Transactions  []rpcTransaction `json:"transactions"`
}

// fetchBlock retrieves one block with full transaction bodies, retrying
// transient failures within the engine budget.
func (e *Engine) fetchBlock(ctx context.Context, number uint64) (BlockSummary, error) {
	raw, err := e.call(ctx, "eth_getBlockByNumber", types.HexFromUint64(number), true)
	if err != nil {
		return BlockSummary{}, err
	}
	if string(raw) == "null" {
		return BlockSummary{}, &transport.Error{Kind: transport.KindRPC, Msg: fmt.Sprintf("block %d not found", number)}
	}

	var block rpcBlock
	if err := json.Unmarshal(raw, &block); err != nil {
		return BlockSummary{}, &transport.Error{Kind: transport.KindDecode, Msg: err.Error()}
	}

	summary := BlockSummary{
		Number:     uint64(block.Number),
		Hash:       block.Hash,
		ParentHash: block.ParentHash,
		Timestamp:  uint64(block.Timestamp),
		GasUsed:    uint64(block.GasUsed),
		GasLimit:   uint64(block.GasLimit),
	}
	if block.BaseFeePerGas != nil {
		summary.BaseFee = block.BaseFeePerGas.ToInt()
	}

	summary.Transactions = make([]TxSummary, len(block.Transactions))
	for i, tx := range block.Transactions {
		summary.Transactions[i] = TxSummary{
			Hash:        tx.Hash,
			BlockNumber: uint64(block.Number),
			Index:       uint(tx.TransactionIndex),
			From:        tx.From,
			To:          tx.To,
			GasLimit:    uint64(tx.Gas),
			Input:       tx.Input,
			Status:      StatusUnknown,
		}
		if tx.Value != nil {
			summary.Transactions[i].Value = tx.Value.ToInt()
		}
		if tx.GasPrice != nil {
			summary.Transactions[i].GasPrice = tx.GasPrice.ToInt()
		}
	}

	return summary, nil
}
