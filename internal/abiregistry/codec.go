package abiregistry

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DecodedCall is the result of decoding calldata. Decoding never fails hard:
// when the selector is unknown or the argument blob does not unpack, Ok is
// false and Raw carries the untouched input for hex fallback rendering.
type DecodedCall struct {
	Ok        bool
	Selector  Selector
	Name      string
	Signature string
	Args      []string
	Ambiguous bool // other signatures share the selector
	Raw       []byte
	Err       string // unpack failure detail, when Ok is false but the selector matched
}

// String renders the call as name(arg, arg, ...) or the raw hex fallback.
func (d DecodedCall) String() string {
	if !d.Ok {
		return hexutil.Encode(d.Raw)
	}
	return d.Name + "(" + strings.Join(d.Args, ", ") + ")"
}

// DecodeCalldata splits calldata into selector and argument blob and decodes
// the blob against the registry.
func (r *Registry) DecodeCalldata(data []byte) DecodedCall {
	out := DecodedCall{Raw: data}
	if len(data) < 4 {
		return out
	}
	out.Selector = SelectorFromBytes(data)

	entry, ok := r.Function(out.Selector)
	if !ok {
		return out
	}
	out.Name = entry.Name
	out.Signature = entry.Signature
	out.Ambiguous = len(r.FunctionsFor(out.Selector)) > 1

	values, err := entry.Method.Inputs.UnpackValues(data[4:])
	if err != nil {
		out.Err = err.Error()
		return out
	}

	out.Args = make([]string, len(values))
	for i, v := range values {
		out.Args[i] = formatValue(entry.Method.Inputs[i].Type, v)
	}
	out.Ok = true
	return out
}

// formatValue renders one decoded ABI value for display.
func formatValue(t abi.Type, v any) string {
	switch t.T {
	case abi.AddressTy:
		if addr, ok := v.(common.Address); ok {
			return addr.Hex()
		}
	case abi.StringTy:
		if s, ok := v.(string); ok {
			return fmt.Sprintf("%q", s)
		}
	case abi.BoolTy:
		if b, ok := v.(bool); ok {
			return fmt.Sprintf("%t", b)
		}
	case abi.BytesTy:
		if b, ok := v.([]byte); ok {
			return hexutil.Encode(b)
		}
	case abi.FixedBytesTy:
		return hexutil.Encode(fixedBytes(v))
	case abi.SliceTy, abi.ArrayTy:
		return formatSequence(*t.Elem, v)
	case abi.TupleTy:
		return formatTuple(t, v)
	}
	return fmt.Sprintf("%v", v)
}

// fixedBytes flattens the reflect-produced [N]byte values abi unpacking
// yields for fixed-size byte arrays.
func fixedBytes(v any) []byte {
	switch b := v.(type) {
	case []byte:
		return b
	case [4]byte:
		return b[:]
	case [8]byte:
		return b[:]
	case [16]byte:
		return b[:]
	case [20]byte:
		return b[:]
	case [32]byte:
		return b[:]
	default:
		return []byte(fmt.Sprintf("%v", v))
	}
}

func formatSequence(elem abi.Type, v any) string {
	items := reflectSlice(v)
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = formatValue(elem, item)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatTuple(t abi.Type, v any) string {
	// Tuples unpack to a generated struct; render its fields in order.
	items := reflectFields(v)
	parts := make([]string, 0, len(items))
	for i, item := range items {
		if i < len(t.TupleElems) {
			parts = append(parts, formatValue(*t.TupleElems[i], item))
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// EncodeCall packs a call from a human-typed signature and textual
// arguments, producing calldata that decodes back to the same values.
func EncodeCall(signature string, args []string) ([]byte, error) {
	canonical, err := CanonicalSignature(signature)
	if err != nil {
		return nil, err
	}

	sel, err := SelectorOf(canonical)
	if err != nil {
		return nil, err
	}

	arguments, err := argumentsOf(canonical)
	if err != nil {
		return nil, err
	}
	if len(arguments) != len(args) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", canonical, len(arguments), len(args))
	}

	values := make([]any, len(args))
	for i, arg := range args {
		v, err := coerceValue(arguments[i].Type, arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		values[i] = v
	}

	packed, err := arguments.Pack(values...)
	if err != nil {
		return nil, err
	}

	return append(sel[:], packed...), nil
}

// argumentsOf builds abi.Arguments from the parameter list of a canonical
// signature.
func argumentsOf(canonical string) (abi.Arguments, error) {
	open := strings.IndexByte(canonical, '(')
	inner := canonical[open+1 : len(canonical)-1]
	if inner == "" {
		return abi.Arguments{}, nil
	}

	parts, err := splitTopLevel(inner)
	if err != nil {
		return nil, err
	}

	arguments := make(abi.Arguments, len(parts))
	for i, part := range parts {
		t, err := newType(part)
		if err != nil {
			return nil, err
		}
		arguments[i] = abi.Argument{Name: fmt.Sprintf("arg%d", i), Type: t}
	}
	return arguments, nil
}

// newType resolves a canonical type string, expanding tuples into the
// component form abi.NewType requires.
func newType(typ string) (abi.Type, error) {
	if !strings.HasPrefix(typ, "(") {
		return abi.NewType(typ, "", nil)
	}

	close_ := matchingParen(typ)
	if close_ < 0 {
		return abi.Type{}, fmt.Errorf("unbalanced tuple %q", typ)
	}

	parts, err := splitTopLevel(typ[1:close_])
	if err != nil {
		return abi.Type{}, err
	}

	components := make([]abi.ArgumentMarshaling, len(parts))
	for i, part := range parts {
		components[i], err = componentOf(part, i)
		if err != nil {
			return abi.Type{}, err
		}
	}

	return abi.NewType("tuple"+typ[close_+1:], "", components)
}

func componentOf(typ string, index int) (abi.ArgumentMarshaling, error) {
	name := fmt.Sprintf("field%d", index)
	if !strings.HasPrefix(typ, "(") {
		return abi.ArgumentMarshaling{Name: name, Type: typ}, nil
	}

	close_ := matchingParen(typ)
	if close_ < 0 {
		return abi.ArgumentMarshaling{}, fmt.Errorf("unbalanced tuple %q", typ)
	}
	parts, err := splitTopLevel(typ[1:close_])
	if err != nil {
		return abi.ArgumentMarshaling{}, err
	}

	components := make([]abi.ArgumentMarshaling, len(parts))
	for i, part := range parts {
		components[i], err = componentOf(part, i)
		if err != nil {
			return abi.ArgumentMarshaling{}, err
		}
	}

	return abi.ArgumentMarshaling{
		Name:       name,
		Type:       "tuple" + typ[close_+1:],
		Components: components,
	}, nil
}

// coerceValue converts a textual argument into the Go value abi packing
// expects for the type.
func coerceValue(t abi.Type, arg string) (any, error) {
	arg = strings.TrimSpace(arg)

	switch t.T {
	case abi.AddressTy:
		if !common.IsHexAddress(arg) {
			return nil, fmt.Errorf("%q is not an address", arg)
		}
		return common.HexToAddress(arg), nil

	case abi.UintTy, abi.IntTy:
		n, ok := parseBig(arg)
		if !ok {
			return nil, fmt.Errorf("%q is not a number", arg)
		}
		return coerceInt(t, n)

	case abi.BoolTy:
		switch strings.ToLower(arg) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return nil, fmt.Errorf("%q is not a bool", arg)

	case abi.StringTy:
		return strings.Trim(arg, `"`), nil

	case abi.BytesTy:
		return hexutil.Decode(arg)

	case abi.FixedBytesTy:
		raw, err := hexutil.Decode(arg)
		if err != nil {
			return nil, err
		}
		if len(raw) != t.Size {
			return nil, fmt.Errorf("bytes%d value has %d bytes", t.Size, len(raw))
		}
		return toFixedBytes(t.Size, raw), nil

	case abi.SliceTy, abi.ArrayTy:
		return coerceSequence(t, arg)
	}

	return nil, fmt.Errorf("unsupported argument type %s", t.String())
}

// coerceInt maps a big.Int onto the exact Go type the abi packer expects for
// the integer width.
func coerceInt(t abi.Type, n *big.Int) (any, error) {
	if t.T == abi.UintTy && n.Sign() < 0 {
		return nil, fmt.Errorf("negative value for %s", t.String())
	}
	if n.BitLen() > t.Size {
		return nil, fmt.Errorf("value overflows %s", t.String())
	}

	switch t.Size {
	case 8:
		if t.T == abi.IntTy {
			return int8(n.Int64()), nil
		}
		return uint8(n.Uint64()), nil
	case 16:
		if t.T == abi.IntTy {
			return int16(n.Int64()), nil
		}
		return uint16(n.Uint64()), nil
	case 32:
		if t.T == abi.IntTy {
			return int32(n.Int64()), nil
		}
		return uint32(n.Uint64()), nil
	case 64:
		if t.T == abi.IntTy {
			return n.Int64(), nil
		}
		return n.Uint64(), nil
	default:
		return n, nil
	}
}

// coerceSequence parses "[a, b, c]" (brackets optional) into a typed slice.
// Only elementary element types are supported from the command line.
func coerceSequence(t abi.Type, arg string) (any, error) {
	arg = strings.TrimSpace(arg)
	arg = strings.TrimPrefix(arg, "[")
	arg = strings.TrimSuffix(arg, "]")

	var parts []string
	if strings.TrimSpace(arg) != "" {
		split, err := splitTopLevel(arg)
		if err != nil {
			return nil, err
		}
		parts = split
	}

	if t.T == abi.ArrayTy && len(parts) != t.Size {
		return nil, fmt.Errorf("expected %d elements, got %d", t.Size, len(parts))
	}

	switch t.Elem.T {
	case abi.AddressTy:
		out := make([]common.Address, len(parts))
		for i, p := range parts {
			v, err := coerceValue(*t.Elem, p)
			if err != nil {
				return nil, err
			}
			out[i] = v.(common.Address)
		}
		return out, nil
	case abi.UintTy, abi.IntTy:
		if t.Elem.Size > 64 {
			out := make([]*big.Int, len(parts))
			for i, p := range parts {
				v, err := coerceValue(*t.Elem, p)
				if err != nil {
					return nil, err
				}
				out[i] = v.(*big.Int)
			}
			return out, nil
		}
		return nil, fmt.Errorf("narrow integer arrays are not supported from the command line")
	case abi.StringTy:
		out := make([]string, len(parts))
		for i, p := range parts {
			out[i] = strings.Trim(strings.TrimSpace(p), `"`)
		}
		return out, nil
	case abi.BoolTy:
		out := make([]bool, len(parts))
		for i, p := range parts {
			v, err := coerceValue(*t.Elem, p)
			if err != nil {
				return nil, err
			}
			out[i] = v.(bool)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported array element type %s", t.Elem.String())
	}
}

// parseBig accepts decimal or 0x-prefixed hex.
func parseBig(s string) (*big.Int, bool) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}

func toFixedBytes(size int, raw []byte) any {
	switch size {
	case 1:
		var b [1]byte
		copy(b[:], raw)
		return b
	case 2:
		var b [2]byte
		copy(b[:], raw)
		return b
	case 4:
		var b [4]byte
		copy(b[:], raw)
		return b
	case 8:
		var b [8]byte
		copy(b[:], raw)
		return b
	case 16:
		var b [16]byte
		copy(b[:], raw)
		return b
	case 20:
		var b [20]byte
		copy(b[:], raw)
		return b
	case 32:
		var b [32]byte
		copy(b[:], raw)
		return b
	default:
		return raw
	}
}
