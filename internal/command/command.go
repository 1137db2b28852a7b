// Package command maps user text entered after `:` or `/` onto discrete
// actions: synchronous toolkit computations, navigation, and queued RPC
// work the ingestion engine picks up.
package command

import (
	"sort"
	"strings"

	"poke/internal/ingest"
	"poke/internal/state"
)

// Action is the sealed result of executing a command.
type Action interface{ isAction() }

// Navigate pushes a view (or pops, when Back is set).
type Navigate struct {
	Target state.View
	Back   bool
}

// Notify surfaces a status-line message.
type Notify struct {
	Message string
	Level   state.Severity
}

// Copy hands text to the clipboard owner (the rendering layer).
type Copy struct{ Text string }

// OpenCommand re-enters command mode with a prefilled prefix.
type OpenCommand struct{ Prefix string }

// QueueRpc posts asynchronous work to the ingestion engine.
type QueueRpc struct{ Command ingest.Command }

// Quit ends the session.
type Quit struct{}

// None is the empty action.
type None struct{}

func (Navigate) isAction()    {}
func (Notify) isAction()      {}
func (Copy) isAction()        {}
func (OpenCommand) isAction() {}
func (QueueRpc) isAction()    {}
func (Quit) isAction()        {}
func (None) isAction()        {}

// notifyErr is shorthand for a warn-level toast; domain errors leave the
// input mode in place for correction.
func notifyErr(msg string) Action {
	return Notify{Message: msg, Level: state.SeverityWarn}
}

func notifyInfo(msg string) Action {
	return Notify{Message: msg, Level: state.SeverityInfo}
}

// AnvilLauncher starts a local development node and returns its endpoint.
// The launcher is an external collaborator; the core treats whatever it
// starts as just another endpoint.
type AnvilLauncher interface {
	Launch(args []string) (string, error)
}

// LabelStore is the persistence surface label commands write through.
type LabelStore interface {
	Put(address, label string) error
	Delete(address string) error
}

// Engine parses and executes commands against the model.
type Engine struct {
	model   *state.Model
	labels  LabelStore
	logPath string

	// ReloadABI replays the artifact scan; wired by the composition root.
	ReloadABI func()

	// ExportDir overrides where :export writes; empty selects the default.
	ExportDir string

	// Anvil starts a local node; nil when the binary manager is not wired.
	Anvil AnvilLauncher

	verbs []verb
}

// verb is one entry of the command table.
type verb struct {
	name    string
	aliases []string
	usage   string
	help    string
	run     func(e *Engine, args string) Action
}

// New builds a command engine over the model.
func New(model *state.Model, labels LabelStore, logPath string) *Engine {
	e := &Engine{model: model, labels: labels, logPath: logPath}
	e.verbs = verbTable()
	return e
}

// Execute parses one command line (without the leading `:`) and runs it.
func (e *Engine) Execute(input string) Action {
	input = strings.TrimSpace(input)
	if input == "" {
		return None{}
	}

	name, args, _ := strings.Cut(input, " ")
	name = strings.ToLower(name)
	args = strings.TrimSpace(args)

	for i := range e.verbs {
		v := &e.verbs[i]
		if v.name == name || contains(v.aliases, name) {
			return v.run(e, args)
		}
	}

	return notifyErr("unknown command: " + name)
}

// ExecuteFilter applies a `/filter` line.
func (e *Engine) ExecuteFilter(input string) Action {
	filter, err := state.ParseFilter(input)
	if err != nil {
		return notifyErr("filter: " + err.Error())
	}
	e.model.SetFilter(filter)
	if filter.IsEmpty() {
		return notifyInfo("filter cleared")
	}
	return notifyInfo("filter: " + filter.Raw)
}

// Hint returns the best-matching usage line for a partial command, for
// dimmed inline display while the user types.
func (e *Engine) Hint(prefix string) string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return ""
	}
	name, _, _ := strings.Cut(prefix, " ")

	var candidates []string
	for _, v := range e.verbs {
		if strings.HasPrefix(v.name, name) {
			candidates = append(candidates, v.usage+" — "+v.help)
			continue
		}
		for _, alias := range v.aliases {
			if strings.HasPrefix(alias, name) {
				candidates = append(candidates, v.usage+" — "+v.help)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.Strings(candidates)
	return candidates[0]
}

// Dispatch applies an action's model-side effects. QueueRpc submission and
// clipboard handling stay with the caller, which owns those resources.
func (e *Engine) Dispatch(action Action, submit func(ingest.Command) bool) bool {
	switch a := action.(type) {
	case Navigate:
		if a.Back {
			e.model.Pop()
		} else {
			e.model.Push(a.Target)
		}
	case Notify:
		e.model.Notify(a.Message, a.Level)
	case OpenCommand:
		e.model.Mode = state.ModeCommand
		e.model.InputBuffer = a.Prefix
	case QueueRpc:
		if submit == nil || !submit(a.Command) {
			e.model.Notify("engine busy, request dropped", state.SeverityWarn)
		}
	case Quit:
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// verbTable enumerates every recognized verb, its aliases, and inline help.
func verbTable() []verb {
	return []verb{
		// navigation
		{name: "blocks", aliases: []string{"blk"}, usage: ":blocks", help: "jump to the block list",
			run: func(e *Engine, _ string) Action { return Navigate{Target: state.ViewDashboard} }},
		{name: "txs", aliases: []string{"transactions", "tx"}, usage: ":txs", help: "jump to the transaction list",
			run: func(e *Engine, _ string) Action { return Navigate{Target: state.ViewDashboard} }},
		{name: "address", aliases: []string{"addr"}, usage: ":address <addr>", help: "open address detail",
			run: (*Engine).cmdAddress},
		{name: "trace", usage: ":trace <txhash>", help: "fetch and open a call trace",
			run: (*Engine).cmdTrace},

		// toolkit
		{name: "convert", usage: ":convert <value> [unit]", help: "convert between wei, gwei and ether",
			run: (*Engine).cmdConvert},
		{name: "hex", usage: ":hex <value>", help: "convert between hex, decimal and string",
			run: (*Engine).cmdHex},
		{name: "hash", usage: ":hash <value>", help: "keccak256 of the input",
			run: (*Engine).cmdHash},
		{name: "selector", usage: ":selector <signature>", help: "4-byte selector of a function signature",
			run: (*Engine).cmdSelector},
		{name: "4byte", usage: ":4byte <selector>", help: "look a selector up in the ABI registry",
			run: (*Engine).cmdFourByte},
		{name: "checksum", usage: ":checksum <addr>", help: "EIP-55 checksum an address",
			run: (*Engine).cmdChecksum},
		{name: "timestamp", usage: ":timestamp [n|now]", help: "unix timestamp to UTC date",
			run: (*Engine).cmdTimestamp},
		{name: "slot", usage: ":slot mapping|array <slot> <key|index>", help: "compute a storage slot",
			run: (*Engine).cmdSlot},
		{name: "create", usage: ":create <deployer> <nonce>", help: "CREATE deployment address",
			run: (*Engine).cmdCreate},
		{name: "create2", usage: ":create2 <deployer> <salt> <initcode|hash>", help: "CREATE2 deployment address",
			run: (*Engine).cmdCreate2},
		{name: "encode", usage: ":encode <sig> <args…>", help: "ABI-encode a call",
			run: (*Engine).cmdEncode},
		{name: "decode", usage: ":decode <calldata>", help: "decode calldata against the ABI registry",
			run: (*Engine).cmdDecode},
		{name: "gas", usage: ":gas <addr>.<fn>(<args>)", help: "parse a call for gas estimation",
			run: (*Engine).cmdGas},

		// ops
		{name: "health", usage: ":health", help: "endpoint health summary",
			run: (*Engine).cmdHealth},
		{name: "peers", usage: ":peers", help: "current peer count",
			run: (*Engine).cmdPeers},
		{name: "rpc-stats", usage: ":rpc-stats", help: "request counters and latency",
			run: (*Engine).cmdRpcStats},
		{name: "mempool", usage: ":mempool", help: "txpool pending/queued counts",
			run: func(e *Engine, _ string) Action { return QueueRpc{Command: ingest.FetchMempool{}} }},
		{name: "logs", usage: ":logs", help: "tail of the session log",
			run: (*Engine).cmdLogs},
		{name: "export", usage: ":export", help: "write the current view to CSV (lists) or JSON (traces)",
			run: (*Engine).cmdExport},

		// node management
		{name: "connect", usage: ":connect <url>", help: "switch to another endpoint",
			run: (*Engine).cmdConnect},
		{name: "anvil", usage: ":anvil [args]", help: "start a local anvil node and connect",
			run: (*Engine).cmdAnvil},
		{name: "impersonate", usage: ":impersonate <addr>", help: "anvil: impersonate an account",
			run: (*Engine).cmdImpersonate},
		{name: "mine", usage: ":mine [n]", help: "anvil: mine blocks",
			run: (*Engine).cmdMine},
		{name: "snapshot", usage: ":snapshot", help: "evm_snapshot",
			run: func(e *Engine, _ string) Action {
				return QueueRpc{Command: ingest.NodeAdmin{Method: "evm_snapshot"}}
			}},
		{name: "revert", usage: ":revert [id]", help: "evm_revert to a snapshot",
			run: (*Engine).cmdRevert},

		// labels & registry
		{name: "label", usage: ":label set|clear <addr> [text]", help: "manage address labels",
			run: (*Engine).cmdLabel},
		{name: "reload-abi", usage: ":reload-abi", help: "rescan contract artifacts",
			run: (*Engine).cmdReloadABI},

		{name: "quit", aliases: []string{"q"}, usage: ":quit", help: "exit",
			run: func(e *Engine, _ string) Action { return Quit{} }},
	}
}
