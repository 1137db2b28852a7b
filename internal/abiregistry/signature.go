package abiregistry

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Selector is the first four bytes of the keccak256 of a canonical function
// signature.
type Selector [4]byte

// Hex returns the 0x-prefixed selector.
func (s Selector) Hex() string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 2, 10)
	out[0], out[1] = '0', 'x'
	for _, b := range s {
		out = append(out, hexdigits[b>>4], hexdigits[b&0xf])
	}
	return string(out)
}

// SelectorFromBytes copies the first four bytes of data.
func SelectorFromBytes(data []byte) Selector {
	var s Selector
	copy(s[:], data)
	return s
}

// SelectorOf computes the selector of a (possibly non-canonical) function
// signature.
func SelectorOf(signature string) (Selector, error) {
	canonical, err := CanonicalSignature(signature)
	if err != nil {
		return Selector{}, err
	}
	var s Selector
	copy(s[:], crypto.Keccak256([]byte(canonical))[:4])
	return s, nil
}

// CanonicalSignature normalizes a human-typed function or event signature:
// spaces and parameter names removed, a trailing `returns (...)` clause
// dropped, and aliased elementary types widened (`uint` → `uint256`,
// `int` → `int256`, including inside arrays and tuples).
func CanonicalSignature(signature string) (string, error) {
	sig := strings.TrimSpace(signature)

	if idx := strings.Index(sig, "returns"); idx > 0 {
		sig = strings.TrimSpace(sig[:idx])
	}

	open := strings.IndexByte(sig, '(')
	close_ := strings.LastIndexByte(sig, ')')
	if open <= 0 || close_ < open {
		return "", fmt.Errorf("malformed signature %q", signature)
	}

	name := strings.TrimSpace(sig[:open])
	params, err := canonicalParams(sig[open+1 : close_])
	if err != nil {
		return "", fmt.Errorf("signature %q: %w", signature, err)
	}

	return name + "(" + params + ")", nil
}

// canonicalParams normalizes a comma-separated parameter list, respecting
// nested tuple parentheses.
func canonicalParams(list string) (string, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return "", nil
	}

	parts, err := splitTopLevel(list)
	if err != nil {
		return "", err
	}

	for i, part := range parts {
		canon, err := canonicalParam(part)
		if err != nil {
			return "", err
		}
		parts[i] = canon
	}

	return strings.Join(parts, ","), nil
}

// canonicalParam normalizes one parameter: a tuple, or an elementary type
// optionally followed by a name and array suffixes.
func canonicalParam(param string) (string, error) {
	param = strings.TrimSpace(param)
	if param == "" {
		return "", fmt.Errorf("empty parameter")
	}

	if param[0] == '(' {
		close_ := matchingParen(param)
		if close_ < 0 {
			return "", fmt.Errorf("unbalanced tuple in %q", param)
		}
		inner, err := canonicalParams(param[1:close_])
		if err != nil {
			return "", err
		}
		suffix := strings.TrimSpace(param[close_+1:])
		return "(" + inner + ")" + arraySuffix(suffix), nil
	}

	// "type [name]" — the first field is the type, anything after is a
	// parameter name or a storage keyword and is discarded.
	fields := strings.Fields(param)
	typ := fields[0]

	base, suffix := typ, ""
	if idx := strings.IndexByte(typ, '['); idx >= 0 {
		base, suffix = typ[:idx], typ[idx:]
	}

	return widenAlias(base) + strings.ReplaceAll(suffix, " ", ""), nil
}

// widenAlias expands the Solidity shorthand integer types.
func widenAlias(typ string) string {
	switch typ {
	case "uint":
		return "uint256"
	case "int":
		return "int256"
	default:
		return typ
	}
}

// arraySuffix extracts the array brackets out of a trailing "[2][] name"
// fragment, discarding any parameter name.
func arraySuffix(s string) string {
	var out strings.Builder
	for _, r := range s {
		switch r {
		case '[', ']', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			out.WriteRune(r)
		case ' ', '\t':
			continue
		default:
			return out.String()
		}
	}
	return out.String()
}

// splitTopLevel splits on commas outside any parentheses or brackets.
func splitTopLevel(s string) ([]string, error) {
	var parts []string
	depth, start := 0, 0

	for i, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses in %q", s)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in %q", s)
	}

	return append(parts, s[start:]), nil
}

// matchingParen returns the index of the parenthesis closing the one at
// position 0, or -1.
func matchingParen(s string) int {
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
