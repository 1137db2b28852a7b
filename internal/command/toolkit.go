package command

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"poke/internal/abiregistry"
	"poke/internal/state"
)

// cmdConvert reports a value in wei, gwei and ether. Arithmetic is capped at
// 128 bits with explicit overflow reporting.
func (e *Engine) cmdConvert(args string) Action {
	if args == "" {
		return notifyErr("usage: :convert <value> [unit]")
	}

	fields := strings.Fields(args)
	number := fields[0]
	unit := "wei"
	if len(fields) >= 2 {
		unit = fields[1]
	}

	wei, err := state.ParseAmount(number, unit)
	if err != nil {
		return notifyErr("convert: " + err.Error())
	}

	return notifyInfo(fmt.Sprintf("%s wei | %s gwei | %s ether",
		groupDigits(wei.String()),
		scaleDown(wei, 9),
		scaleDown(wei, 18),
	))
}

// scaleDown renders wei at the given decimal shift, trimming zeros.
func scaleDown(wei *big.Int, decimals int) string {
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(wei, divisor, new(big.Int))
	if frac.Sign() == 0 {
		return groupDigits(whole.String())
	}
	fracStr := frac.String()
	if pad := decimals - len(fracStr); pad > 0 {
		fracStr = strings.Repeat("0", pad) + fracStr
	}
	return groupDigits(whole.String()) + "." + strings.TrimRight(fracStr, "0")
}

// groupDigits inserts thousands separators.
func groupDigits(s string) string {
	if len(s) <= 3 {
		return s
	}
	var out strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		out.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if out.Len() > 0 {
			out.WriteByte(',')
		}
		out.WriteString(s[i : i+3])
	}
	return out.String()
}

// cmdHex converts between hex, decimal, and string representations
// depending on what the input looks like.
func (e *Engine) cmdHex(args string) Action {
	if args == "" {
		return notifyErr("usage: :hex <value>")
	}

	switch {
	case strings.HasPrefix(args, "0x") || strings.HasPrefix(args, "0X"):
		raw, err := hexutil.Decode(args)
		if err != nil {
			return notifyErr("hex: " + err.Error())
		}
		parts := []string{fmt.Sprintf("%d bytes", len(raw))}
		if len(raw) > 0 && len(raw) <= 16 {
			parts = append(parts, "dec "+new(big.Int).SetBytes(raw).String())
		}
		if s := printable(raw); s != "" {
			parts = append(parts, fmt.Sprintf("utf8 %q", s))
		}
		return notifyInfo(hexutil.Encode(raw) + " — " + strings.Join(parts, ", "))

	case isDecimal(args):
		n, ok := new(big.Int).SetString(args, 10)
		if !ok {
			return notifyErr("hex: invalid decimal " + args)
		}
		if n.BitLen() > 256 {
			return notifyErr("hex: value wider than 256 bits")
		}
		return notifyInfo(fmt.Sprintf("dec %s = 0x%x | bytes32 %s",
			args, n, common.BigToHash(n).Hex()))

	default:
		return notifyInfo(fmt.Sprintf("%q = %s", args, hexutil.Encode([]byte(args))))
	}
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func printable(raw []byte) string {
	s := string(raw)
	for _, r := range s {
		if r == unicode.ReplacementChar || (unicode.IsControl(r) && r != '\n' && r != '\t') {
			return ""
		}
	}
	return s
}

// cmdHash computes keccak256 over the raw input bytes; 0x-prefixed input is
// decoded first.
func (e *Engine) cmdHash(args string) Action {
	input := strings.Trim(args, `"`)

	var raw []byte
	if strings.HasPrefix(input, "0x") {
		decoded, err := hexutil.Decode(input)
		if err != nil {
			return notifyErr("hash: " + err.Error())
		}
		raw = decoded
	} else {
		raw = []byte(input)
	}

	return notifyInfo(crypto.Keccak256Hash(raw).Hex())
}

// cmdSelector computes the 4-byte selector of a function signature.
func (e *Engine) cmdSelector(args string) Action {
	if args == "" {
		return notifyErr("usage: :selector <signature>")
	}

	sel, err := abiregistry.SelectorOf(args)
	if err != nil {
		return notifyErr("selector: " + err.Error())
	}
	return notifyInfo(sel.Hex())
}

// cmdFourByte looks a selector up in the registry.
func (e *Engine) cmdFourByte(args string) Action {
	raw, err := hexutil.Decode(strings.TrimSpace(args))
	if err != nil || len(raw) != 4 {
		return notifyErr("usage: :4byte <0x-selector>")
	}

	sel := abiregistry.SelectorFromBytes(raw)
	entries := e.model.Registry().FunctionsFor(sel)
	if len(entries) == 0 {
		return notifyInfo(sel.Hex() + ": not in cache")
	}

	sigs := make([]string, len(entries))
	for i, entry := range entries {
		sigs[i] = entry.Signature
	}
	return notifyInfo(sel.Hex() + ": " + strings.Join(sigs, " | "))
}

// cmdChecksum renders an address in EIP-55 mixed case.
func (e *Engine) cmdChecksum(args string) Action {
	if !common.IsHexAddress(args) {
		return notifyErr("checksum: not an address")
	}
	return notifyInfo(common.HexToAddress(args).Hex())
}

// cmdTimestamp converts a unix timestamp to UTC, or shows now.
func (e *Engine) cmdTimestamp(args string) Action {
	args = strings.TrimSpace(args)

	var ts int64
	switch args {
	case "", "now":
		ts = time.Now().Unix()
	default:
		parsed, err := strconv.ParseInt(args, 10, 64)
		if err != nil {
			return notifyErr("timestamp: cannot parse " + args)
		}
		ts = parsed
	}

	return notifyInfo(fmt.Sprintf("%d = %s", ts,
		time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05 UTC")))
}

// cmdSlot computes a mapping or dynamic-array storage slot.
func (e *Engine) cmdSlot(args string) Action {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return notifyErr("usage: :slot mapping|array <slot> <key|index>")
	}

	base, ok := new(big.Int).SetString(fields[1], 10)
	if !ok {
		return notifyErr("slot: invalid slot number " + fields[1])
	}
	baseWord := common.BigToHash(base)

	switch fields[0] {
	case "mapping":
		key, err := slotKeyWord(fields[2])
		if err != nil {
			return notifyErr("slot: " + err.Error())
		}
		slot := crypto.Keccak256Hash(key.Bytes(), baseWord.Bytes())
		return notifyInfo(slot.Hex())

	case "array":
		index, ok := new(big.Int).SetString(fields[2], 10)
		if !ok {
			return notifyErr("slot: invalid index " + fields[2])
		}
		start := new(big.Int).SetBytes(crypto.Keccak256(baseWord.Bytes()))
		slot := common.BigToHash(start.Add(start, index))
		return notifyInfo(slot.Hex())

	default:
		return notifyErr("usage: :slot mapping|array <slot> <key|index>")
	}
}

// slotKeyWord left-pads a mapping key (address, hex word, or decimal) to 32
// bytes.
func slotKeyWord(s string) (common.Hash, error) {
	return state.ParseSlotWord(s)
}

// cmdCreate computes the CREATE deployment address from deployer and nonce.
func (e *Engine) cmdCreate(args string) Action {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return notifyErr("usage: :create <deployer> <nonce>")
	}
	if !common.IsHexAddress(fields[0]) {
		return notifyErr("create: invalid deployer address")
	}
	nonce, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return notifyErr("create: invalid nonce")
	}

	addr := crypto.CreateAddress(common.HexToAddress(fields[0]), nonce)
	return notifyInfo(addr.Hex())
}

// cmdCreate2 computes the CREATE2 deployment address. The third argument is
// either the 32-byte initcode hash or raw initcode, which is hashed first.
func (e *Engine) cmdCreate2(args string) Action {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return notifyErr("usage: :create2 <deployer> <salt> <initcode|hash>")
	}
	if !common.IsHexAddress(fields[0]) {
		return notifyErr("create2: invalid deployer address")
	}

	salt, err := slotKeyWord(fields[1])
	if err != nil {
		return notifyErr("create2: salt: " + err.Error())
	}

	code, err := hexutil.Decode(fields[2])
	if err != nil {
		return notifyErr("create2: initcode: " + err.Error())
	}
	codeHash := code
	if len(code) != 32 {
		codeHash = crypto.Keccak256(code)
	}

	addr := crypto.CreateAddress2(common.HexToAddress(fields[0]), salt, codeHash)
	return notifyInfo(addr.Hex())
}

// cmdEncode ABI-encodes a call from a signature and textual arguments.
func (e *Engine) cmdEncode(args string) Action {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return notifyErr("usage: :encode <sig> <args…>")
	}

	calldata, err := abiregistry.EncodeCall(fields[0], fields[1:])
	if err != nil {
		return notifyErr("encode: " + err.Error())
	}
	return notifyInfo(hexutil.Encode(calldata))
}

// cmdDecode decodes calldata against the registry, falling back to raw hex.
func (e *Engine) cmdDecode(args string) Action {
	raw, err := hexutil.Decode(strings.TrimSpace(args))
	if err != nil {
		return notifyErr("decode: " + err.Error())
	}

	decoded := e.model.Registry().DecodeCalldata(raw)
	switch {
	case decoded.Ok:
		msg := decoded.String()
		if decoded.Ambiguous {
			msg += " (selector ambiguous)"
		}
		return notifyInfo(msg)
	case decoded.Signature != "":
		return notifyErr(fmt.Sprintf("matched %s but args did not unpack: %s", decoded.Signature, decoded.Err))
	default:
		return notifyInfo("selector " + decoded.Selector.Hex() + " not in cache — raw " + hexutil.Encode(raw))
	}
}

// cmdGas parses an <addr>.<fn>(<args>) call expression and reports it back.
// No estimation request is sent to the node.
func (e *Engine) cmdGas(args string) Action {
	addr, fn, callArgs, err := parseCallExpr(args)
	if err != nil {
		return notifyErr("gas: " + err.Error())
	}
	return notifyInfo(fmt.Sprintf("gas %s.%s(%s): parsed; estimation needs a full typed signature and is not run", addr, fn, callArgs))
}

// parseCallExpr splits "<addr>.<fn>(<args>)".
func parseCallExpr(input string) (addr, fn, args string, err error) {
	dot := strings.Index(input, ".")
	if dot < 0 {
		return "", "", "", fmt.Errorf("missing '.' between address and function")
	}
	addr = strings.TrimSpace(input[:dot])
	rest := input[dot+1:]

	open := strings.Index(rest, "(")
	if open < 0 {
		return "", "", "", fmt.Errorf("missing '(' in call")
	}
	if !strings.HasSuffix(rest, ")") {
		return "", "", "", fmt.Errorf("missing closing ')'")
	}

	fn = strings.TrimSpace(rest[:open])
	args = strings.TrimSpace(rest[open+1 : len(rest)-1])
	return addr, fn, args, nil
}
