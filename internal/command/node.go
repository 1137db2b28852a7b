package command

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"poke/internal/ingest"
	"poke/internal/state"
	"poke/internal/transport"
)

// cmdAddress opens address detail, probing code presence on the way in.
func (e *Engine) cmdAddress(args string) Action {
	if !common.IsHexAddress(args) {
		return notifyErr("address: not an address")
	}
	addr := common.HexToAddress(args)
	e.model.TouchAddress(addr)
	e.model.Push(state.ViewAddressDetail)
	return QueueRpc{Command: ingest.FetchCode{Address: addr}}
}

// cmdTrace fetches and opens a call trace.
func (e *Engine) cmdTrace(args string) Action {
	args = strings.TrimSpace(args)
	if len(args) != 66 || !strings.HasPrefix(args, "0x") {
		return notifyErr("trace: expected a 32-byte transaction hash")
	}
	hash := common.HexToHash(args)
	e.model.PendingTrace = &hash
	e.model.Push(state.ViewTrace)
	return QueueRpc{Command: ingest.FetchTrace{Hash: hash}}
}

// cmdConnect switches the engine to another endpoint.
func (e *Engine) cmdConnect(args string) Action {
	endpoint, err := transport.ParseEndpoint(args)
	if err != nil {
		return notifyErr("connect: " + err.Error())
	}
	return QueueRpc{Command: ingest.Reconnect{Endpoint: endpoint}}
}

// cmdAnvil starts a local development node through the injected launcher
// and connects to it.
func (e *Engine) cmdAnvil(args string) Action {
	if e.Anvil == nil {
		return notifyErr("anvil: no launcher configured; start anvil yourself and :connect")
	}

	endpoint, err := e.Anvil.Launch(strings.Fields(args))
	if err != nil {
		return notifyErr("anvil: " + err.Error())
	}

	parsed, err := transport.ParseEndpoint(endpoint)
	if err != nil {
		return notifyErr("anvil: launcher returned bad endpoint: " + err.Error())
	}
	return QueueRpc{Command: ingest.Reconnect{Endpoint: parsed}}
}

// requireAnvil gates anvil_* methods on the negotiated node kind.
func (e *Engine) requireAnvil() Action {
	if !e.model.Endpoint.NodeKind.SupportsAnvil() {
		return notifyErr("node is not anvil (" + string(e.model.Endpoint.NodeKind) + ")")
	}
	return nil
}

// cmdImpersonate enables account impersonation on anvil.
func (e *Engine) cmdImpersonate(args string) Action {
	if act := e.requireAnvil(); act != nil {
		return act
	}
	if !common.IsHexAddress(args) {
		return notifyErr("impersonate: not an address")
	}
	return QueueRpc{Command: ingest.NodeAdmin{
		Method: "anvil_impersonateAccount",
		Params: []any{common.HexToAddress(args)},
	}}
}

// cmdMine mines one or more blocks on anvil.
func (e *Engine) cmdMine(args string) Action {
	if act := e.requireAnvil(); act != nil {
		return act
	}

	params := []any{}
	if args = strings.TrimSpace(args); args != "" {
		n, err := strconv.ParseUint(args, 10, 64)
		if err != nil {
			return notifyErr("mine: invalid block count")
		}
		params = append(params, n)
	}
	return QueueRpc{Command: ingest.NodeAdmin{Method: "anvil_mine", Params: params}}
}

// cmdRevert rolls the node back to a snapshot.
func (e *Engine) cmdRevert(args string) Action {
	params := []any{}
	if args = strings.TrimSpace(args); args != "" {
		params = append(params, args)
	}
	return QueueRpc{Command: ingest.NodeAdmin{Method: "evm_revert", Params: params}}
}

// cmdLabel sets or clears a persisted address label. Writes go through the
// store synchronously before the cache is updated.
func (e *Engine) cmdLabel(args string) Action {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return notifyErr("usage: :label set|clear <addr> [text]")
	}

	op, addrArg := fields[0], fields[1]
	if !common.IsHexAddress(addrArg) {
		return notifyErr("label: not an address")
	}
	addr := common.HexToAddress(addrArg)

	switch op {
	case "set":
		if len(fields) < 3 {
			return notifyErr("usage: :label set <addr> <text>")
		}
		label := strings.Join(fields[2:], " ")
		if err := e.labels.Put(addr.Hex(), label); err != nil {
			return notifyErr("label: " + err.Error())
		}
		e.model.SetLabel(addr, label)
		return notifyInfo("labeled " + addr.Hex() + " as " + label)

	case "clear":
		if err := e.labels.Delete(addr.Hex()); err != nil {
			return notifyErr("label: " + err.Error())
		}
		e.model.SetLabel(addr, "")
		return notifyInfo("label cleared for " + addr.Hex())

	default:
		return notifyErr("usage: :label set|clear <addr> [text]")
	}
}

// cmdReloadABI replays the artifact scan into a fresh generation.
func (e *Engine) cmdReloadABI(_ string) Action {
	if e.ReloadABI == nil {
		return notifyErr("reload-abi: scanner not wired")
	}
	e.ReloadABI()
	return notifyInfo("abi rescan started")
}
