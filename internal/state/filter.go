package state

import (
	"fmt"
	"math/big"
	"strings"

	"poke/internal/ingest"
)

// Comparator is the relational operator of a value predicate.
type Comparator int

const (
	CmpEq Comparator = iota
	CmpGt
	CmpGte
	CmpLt
	CmpLte
)

// Filter is a parsed set of predicates over transactions. The zero value
// passes everything.
type Filter struct {
	Raw    string
	From   string // lowercased address fragment
	To     string
	Method string
	Label  string
	Value  *ValuePredicate
	Text   []string // free-text substring terms, lowercased
}

// ValuePredicate compares the transaction value in wei.
type ValuePredicate struct {
	Cmp Comparator
	Wei *big.Int
}

// IsEmpty reports whether the filter passes everything.
func (f Filter) IsEmpty() bool {
	return f.From == "" && f.To == "" && f.Method == "" && f.Label == "" &&
		f.Value == nil && len(f.Text) == 0
}

// clearWords reset the filter when typed alone.
var clearWords = map[string]bool{"clear": true, "reset": true, "none": true}

// ParseFilter tokenizes a filter string into predicates. Unknown prefixes
// fall back to free-text terms; a lone clear word yields the empty filter.
func ParseFilter(input string) (Filter, error) {
	filter := Filter{Raw: strings.TrimSpace(input)}

	tokens := strings.Fields(input)
	if len(tokens) == 1 && clearWords[strings.ToLower(tokens[0])] {
		return Filter{}, nil
	}

	for _, token := range tokens {
		lower := strings.ToLower(token)
		switch {
		case strings.HasPrefix(lower, "from:"):
			filter.From = lower[len("from:"):]
		case strings.HasPrefix(lower, "to:"):
			filter.To = lower[len("to:"):]
		case strings.HasPrefix(lower, "method:"):
			filter.Method = lower[len("method:"):]
		case strings.HasPrefix(lower, "label:"):
			filter.Label = lower[len("label:"):]
		case strings.HasPrefix(lower, "value:"):
			pred, err := parseValuePredicate(lower[len("value:"):])
			if err != nil {
				return Filter{}, err
			}
			filter.Value = pred
		default:
			filter.Text = append(filter.Text, lower)
		}
	}

	return filter, nil
}

// parseValuePredicate parses "<op><number>[unit]", e.g. ">=1.5" (ether
// default), ">10 gwei" — but tokens are whitespace-split upstream, so the
// unit arrives attached: ">10gwei", "1e18wei".
func parseValuePredicate(s string) (*ValuePredicate, error) {
	pred := &ValuePredicate{Cmp: CmpEq}

	switch {
	case strings.HasPrefix(s, ">="):
		pred.Cmp, s = CmpGte, s[2:]
	case strings.HasPrefix(s, "<="):
		pred.Cmp, s = CmpLte, s[2:]
	case strings.HasPrefix(s, ">"):
		pred.Cmp, s = CmpGt, s[1:]
	case strings.HasPrefix(s, "<"):
		pred.Cmp, s = CmpLt, s[1:]
	case strings.HasPrefix(s, "="):
		pred.Cmp, s = CmpEq, s[1:]
	}

	// Split trailing unit letters off the number.
	split := len(s)
	for split > 0 && (s[split-1] >= 'a' && s[split-1] <= 'z') {
		split--
	}
	number, unit := s[:split], s[split:]
	if unit == "" {
		unit = "ether"
	}

	wei, err := ParseAmount(number, unit)
	if err != nil {
		return nil, err
	}
	pred.Wei = wei
	return pred, nil
}

// Matches evaluates the filter against one transaction given the label
// lookup.
func (f Filter) Matches(tx *ingest.TxSummary, labelFor func(string) string) bool {
	from := strings.ToLower(tx.From.Hex())
	to := ""
	if tx.To != nil {
		to = strings.ToLower(tx.To.Hex())
	}
	hash := strings.ToLower(tx.Hash.Hex())

	if f.From != "" && !strings.Contains(from, f.From) {
		return false
	}
	if f.To != "" && !strings.Contains(to, f.To) {
		return false
	}
	if f.Method != "" && !strings.Contains(strings.ToLower(tx.Method), f.Method) {
		return false
	}
	if f.Label != "" {
		label := strings.ToLower(labelFor(from) + " " + labelFor(to))
		if !strings.Contains(label, f.Label) {
			return false
		}
	}
	if f.Value != nil {
		value := tx.Value
		if value == nil {
			value = new(big.Int)
		}
		if !f.Value.matches(value) {
			return false
		}
	}

	for _, term := range f.Text {
		label := strings.ToLower(labelFor(from) + " " + labelFor(to))
		if !strings.Contains(hash, term) && !strings.Contains(from, term) &&
			!strings.Contains(to, term) && !strings.Contains(label, term) {
			return false
		}
	}

	return true
}

func (p *ValuePredicate) matches(value *big.Int) bool {
	cmp := value.Cmp(p.Wei)
	switch p.Cmp {
	case CmpGt:
		return cmp > 0
	case CmpGte:
		return cmp >= 0
	case CmpLt:
		return cmp < 0
	case CmpLte:
		return cmp <= 0
	default:
		return cmp == 0
	}
}

// SetFilter replaces the active filter and recomputes the visible subset.
func (m *Model) SetFilter(f Filter) {
	m.Filter = f
	m.applyFilter()
	m.ClampSelections()
}

// applyFilter recomputes VisibleTxs from the transaction ring.
func (m *Model) applyFilter() {
	labelFor := func(addr string) string { return m.Labels[addr] }

	m.VisibleTxs = m.VisibleTxs[:0]
	for _, tx := range m.Txs {
		if m.Filter.Matches(tx, labelFor) {
			m.VisibleTxs = append(m.VisibleTxs, tx)
		}
	}
}

// unitScale maps unit names (and historical synonyms) to their wei decimal
// exponent.
var unitScale = map[string]int{
	"wei":        0,
	"kwei":       3,
	"babbage":    3,
	"mwei":       6,
	"lovelace":   6,
	"gwei":       9,
	"shannon":    9,
	"szabo":      12,
	"microether": 12,
	"finney":     15,
	"milliether": 15,
	"ether":      18,
	"eth":        18,
}

// maxUint128 bounds amounts: arithmetic is done in big.Int but overflow past
// 128 bits is reported explicitly.
var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// ParseAmount converts a decimal number with a unit name into wei. It
// accepts fractional values ("1.5") and scientific notation ("1e18") and
// rejects results that need more than 128 bits or more fractional digits
// than the unit carries.
func ParseAmount(number, unit string) (*big.Int, error) {
	exponent, ok := unitScale[strings.ToLower(unit)]
	if !ok {
		return nil, fmt.Errorf("unknown unit %q", unit)
	}

	number = strings.TrimSpace(number)
	if number == "" {
		return nil, fmt.Errorf("empty amount")
	}

	// Scientific notation: fold the exponent into the decimal point.
	mantissa, expShift := number, 0
	if idx := strings.IndexAny(number, "eE"); idx >= 0 {
		mantissa = number[:idx]
		if _, err := fmt.Sscanf(number[idx+1:], "%d", &expShift); err != nil {
			return nil, fmt.Errorf("bad exponent in %q", number)
		}
	}

	intPart, fracPart, _ := strings.Cut(mantissa, ".")
	digits := intPart + fracPart
	pointShift := exponent + expShift - len(fracPart)
	if pointShift < 0 {
		return nil, fmt.Errorf("too many decimal places for %s", unit)
	}
	if digits == "" {
		return nil, fmt.Errorf("invalid amount %q", number)
	}

	wei, ok := new(big.Int).SetString(digits+strings.Repeat("0", pointShift), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", number)
	}
	if wei.Sign() < 0 {
		return nil, fmt.Errorf("negative amount")
	}
	if wei.Cmp(maxUint128) > 0 {
		return nil, fmt.Errorf("amount overflows 128 bits")
	}

	return wei, nil
}

// formatUnits renders a raw integer amount with the given number of decimal
// places, trimming trailing zeros.
func formatUnits(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(v, divisor, new(big.Int))

	if frac.Sign() == 0 {
		return whole.String()
	}

	fracStr := frac.String()
	if pad := int(decimals) - len(fracStr); pad > 0 {
		fracStr = strings.Repeat("0", pad) + fracStr
	}
	return whole.String() + "." + strings.TrimRight(fracStr, "0")
}
