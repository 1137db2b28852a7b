package state

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseSlotWord parses a user-typed storage slot: a decimal number or a
// 0x-prefixed word of up to 32 bytes, left-padded.
func ParseSlotWord(s string) (common.Hash, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Hash{}, fmt.Errorf("empty slot")
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits := s[2:]
		if len(digits)%2 == 1 {
			digits = "0" + digits
		}
		raw, err := hexutil.Decode("0x" + digits)
		if err != nil {
			return common.Hash{}, err
		}
		if len(raw) > 32 {
			return common.Hash{}, fmt.Errorf("slot wider than 32 bytes")
		}
		return common.BytesToHash(raw), nil
	}

	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return common.Hash{}, fmt.Errorf("invalid slot %q", s)
	}
	if n.BitLen() > 256 {
		return common.Hash{}, fmt.Errorf("slot out of range")
	}
	return common.BigToHash(n), nil
}
