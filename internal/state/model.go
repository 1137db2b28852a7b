// Package state holds the single model the UI renders from. Every mutation
// happens on the UI goroutine during tick processing: the engine's events
// are drained and applied first, then at most one input event, then the
// frame is drawn. Nothing here takes a lock in steady state.
package state

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"poke/internal/abiregistry"
	"poke/internal/ingest"
	"poke/internal/transport"
)

// BlockCapacity bounds the block ring. Transactions are bounded indirectly
// through block membership.
const BlockCapacity = 50

// DrainLimit bounds how many engine events one tick may apply.
const DrainLimit = 1024

// CollapseDepth is the trace depth beyond which frames start collapsed.
const CollapseDepth = 2

// View is a navigation token on the view stack.
type View int

const (
	ViewDashboard View = iota
	ViewBlockDetail
	ViewTxDetail
	ViewTrace
	ViewAddressDetail
	ViewHelp
)

// InputMode selects how key events are interpreted.
type InputMode int

const (
	ModeNormal InputMode = iota
	ModeCommand
	ModeSearch
	ModePrompt
)

// PromptKind selects what a ModePrompt input line is for.
type PromptKind int

const (
	PromptNone PromptKind = iota
	PromptLabel
	PromptSlot
)

// Section is the dashboard panel focus; digits 1–5 jump straight to one.
type Section int

const (
	SectionBlocks Section = iota + 1
	SectionTransactions
	SectionAddresses
	SectionContracts
	SectionOps
)

// Next cycles forward with wraparound.
func (s Section) Next() Section {
	if s >= SectionOps {
		return SectionBlocks
	}
	return s + 1
}

// Prev cycles backward with wraparound.
func (s Section) Prev() Section {
	if s <= SectionBlocks {
		return SectionOps
	}
	return s - 1
}

// Severity grades a status-line message.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

// StatusLine is the one-line message surface at the bottom of the screen.
type StatusLine struct {
	Message string
	Level   Severity
	At      time.Time
}

// EndpointStatus aggregates what is known about the connected endpoint.
type EndpointStatus struct {
	Endpoint      string
	ClientVersion string
	NodeKind      transport.NodeKind
	ChainID       uint64
	Connected     bool
	LatencyMillis int64
	Head          uint64
	PeerCount     uint64
	Syncing       bool
	SyncCurrent   uint64
	SyncTarget    uint64
}

// AddressRecord tracks what has been observed about one address.
type AddressRecord struct {
	Address  common.Address
	Label    string
	Nonce    uint64
	Balance  *BalanceSnapshot
	Contract bool // set by a code-presence probe
	CodeSize int
	Watched  bool
}

// BalanceSnapshot is a lazily fetched balance view.
type BalanceSnapshot struct {
	Native *TokenAmount
	Tokens []TokenAmount
	At     time.Time
}

// TokenAmount pairs a token with a raw balance value.
type TokenAmount struct {
	Symbol   string
	Decimals uint8
	Value    string // decimal-rendered
}

// TraceView pairs a fetched trace with its per-frame collapse state.
type TraceView struct {
	Hash      common.Hash
	Tree      *ingest.TraceTree
	Collapsed map[int]bool // keyed by frame index
}

// Toggle flips the collapse state of one frame.
func (t *TraceView) Toggle(frame int) {
	if t == nil || t.Tree == nil || frame < 0 || frame >= len(t.Tree.Frames) {
		return
	}
	t.Collapsed[frame] = !t.Collapsed[frame]
}

// newTraceView initializes collapse state: everything beyond CollapseDepth
// starts folded.
func newTraceView(hash common.Hash, tree *ingest.TraceTree) *TraceView {
	view := &TraceView{Hash: hash, Tree: tree, Collapsed: make(map[int]bool)}
	for i, frame := range tree.Frames {
		if frame.Depth >= CollapseDepth && len(frame.Children) > 0 {
			view.Collapsed[i] = true
		}
	}
	return view
}

// Model is the whole projection.
type Model struct {
	Endpoint EndpointStatus

	Blocks []ingest.BlockSummary // newest first, bounded by BlockCapacity
	Txs    []*ingest.TxSummary   // newest first, derived from Blocks

	Addresses map[common.Address]*AddressRecord
	Contracts map[common.Address]*AddressRecord // subset with code

	Filter     Filter
	VisibleTxs []*ingest.TxSummary

	SelectedBlock   int
	SelectedTx      int
	SelectedFrame   int
	SelectedAddress int

	viewStack []View
	Mode      InputMode
	Prompt    PromptKind
	Section   Section
	Paused    bool

	// Input line content while in Command/Search/Prompt mode.
	InputBuffer string

	// Tokens configured for balance fetches, from the config file.
	Tokens []ingest.TokenConfig

	Trace       *TraceView
	TraceError  string // set when the node does not expose the tracer
	StorageView map[common.Hash]common.Hash

	// Pending markers the UI renders spinners from while the engine works.
	PendingTrace   *common.Hash
	PendingBalance *common.Address
	PendingStorage *common.Address

	Status StatusLine

	Labels map[string]string // lowercased address → label

	// Mempool sample from the last :mempool request.
	MempoolPending uint64
	MempoolQueued  uint64

	registry *abiregistry.Store

	txIndex     map[common.Hash]*ingest.TxSummary
	addressList []common.Address // stable iteration order for selection
}

// New builds an empty model backed by the given registry store.
func New(registry *abiregistry.Store) *Model {
	return &Model{
		Addresses:   make(map[common.Address]*AddressRecord),
		Contracts:   make(map[common.Address]*AddressRecord),
		StorageView: make(map[common.Hash]common.Hash),
		Labels:      make(map[string]string),
		viewStack:   []View{ViewDashboard},
		Section:     SectionBlocks,
		registry:    registry,
		txIndex:     make(map[common.Hash]*ingest.TxSummary),
	}
}

// Registry returns the current ABI snapshot.
func (m *Model) Registry() *abiregistry.Registry {
	return m.registry.Load()
}

// ---- view stack ----

// CurrentView returns the top of the stack; the stack is never empty.
func (m *Model) CurrentView() View {
	return m.viewStack[len(m.viewStack)-1]
}

// Push descends into a view.
func (m *Model) Push(v View) {
	m.viewStack = append(m.viewStack, v)
}

// Pop returns to the previous view; the dashboard base is never popped.
func (m *Model) Pop() {
	if len(m.viewStack) > 1 {
		m.viewStack = m.viewStack[:len(m.viewStack)-1]
	}
}

// StackDepth returns the navigation depth.
func (m *Model) StackDepth() int {
	return len(m.viewStack)
}

// InDetailView reports whether the user descended past the dashboard.
func (m *Model) InDetailView() bool {
	return len(m.viewStack) > 1
}

// ---- status ----

// Notify sets the status line.
func (m *Model) Notify(msg string, level Severity) {
	m.Status = StatusLine{Message: msg, Level: level, At: time.Now()}
}

// ---- selections ----

// ClampSelections coerces every selection index into range, or to zero when
// the backing sequence is empty.
func (m *Model) ClampSelections() {
	m.SelectedBlock = clamp(m.SelectedBlock, len(m.Blocks))
	m.SelectedTx = clamp(m.SelectedTx, len(m.VisibleTxs))
	m.SelectedAddress = clamp(m.SelectedAddress, len(m.addressList))
	if m.Trace != nil {
		m.SelectedFrame = clamp(m.SelectedFrame, len(m.Trace.Tree.Frames))
	} else {
		m.SelectedFrame = 0
	}
}

func clamp(idx, length int) int {
	if length == 0 || idx < 0 {
		return 0
	}
	if idx >= length {
		return length - 1
	}
	return idx
}

// SelectedTxSummary returns the transaction under the cursor, or nil.
func (m *Model) SelectedTxSummary() *ingest.TxSummary {
	if len(m.VisibleTxs) == 0 {
		return nil
	}
	return m.VisibleTxs[clamp(m.SelectedTx, len(m.VisibleTxs))]
}

// SelectedBlockSummary returns the block under the cursor, or nil.
func (m *Model) SelectedBlockSummary() *ingest.BlockSummary {
	if len(m.Blocks) == 0 {
		return nil
	}
	return &m.Blocks[clamp(m.SelectedBlock, len(m.Blocks))]
}

// SelectedAddressRecord returns the address record under the cursor, or nil.
func (m *Model) SelectedAddressRecord() *AddressRecord {
	if len(m.addressList) == 0 {
		return nil
	}
	return m.Addresses[m.addressList[clamp(m.SelectedAddress, len(m.addressList))]]
}

// ---- addresses & labels ----

// TouchAddress returns the record for addr, creating it on first sight.
func (m *Model) TouchAddress(addr common.Address) *AddressRecord {
	if rec, ok := m.Addresses[addr]; ok {
		return rec
	}
	rec := &AddressRecord{Address: addr, Label: m.LabelFor(addr)}
	m.Addresses[addr] = rec
	m.addressList = append(m.addressList, addr)
	return rec
}

// AddressRecords returns every observed address record in first-seen order.
func (m *Model) AddressRecords() []*AddressRecord {
	records := make([]*AddressRecord, len(m.addressList))
	for i, addr := range m.addressList {
		records[i] = m.Addresses[addr]
	}
	return records
}

// LabelFor returns the user label for an address, or "".
func (m *Model) LabelFor(addr common.Address) string {
	return m.Labels[strings.ToLower(addr.Hex())]
}

// SetLabel updates the label cache and any live address record.
func (m *Model) SetLabel(addr common.Address, label string) {
	key := strings.ToLower(addr.Hex())
	if label == "" {
		delete(m.Labels, key)
	} else {
		m.Labels[key] = label
	}
	if rec, ok := m.Addresses[addr]; ok {
		rec.Label = label
	}
}

// ToggleWatch flips the watch flag on an address record.
func (m *Model) ToggleWatch(addr common.Address) bool {
	rec := m.TouchAddress(addr)
	rec.Watched = !rec.Watched
	return rec.Watched
}

// DecodeInput resolves a transaction's calldata against the current
// registry snapshot, memoizing the method name on the summary.
func (m *Model) DecodeInput(tx *ingest.TxSummary) abiregistry.DecodedCall {
	decoded := m.Registry().DecodeCalldata(tx.Input)
	if decoded.Ok {
		tx.Method = decoded.Name
		tx.Args = decoded.Args
	}
	return decoded
}
