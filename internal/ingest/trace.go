package ingest

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// CallType is the frame kind reported by the callTracer.
type CallType string

const (
	CallTypeCall         CallType = "CALL"
	CallTypeDelegateCall CallType = "DELEGATECALL"
	CallTypeStaticCall   CallType = "STATICCALL"
	CallTypeCreate       CallType = "CREATE"
	CallTypeCreate2      CallType = "CREATE2"
	CallTypeSelfdestruct CallType = "SELFDESTRUCT"
)

// Frame is one node of a call trace. Frames live in a TraceTree arena and
// reference each other by index, which keeps deep trees cheap to walk and
// lets collapse state live in an index-keyed side table.
type Frame struct {
	Type         CallType
	From         common.Address
	To           common.Address
	Value        *big.Int
	Input        []byte
	Output       []byte
	Gas          uint64
	GasUsed      uint64
	Error        string
	RevertReason string

	Parent   int // -1 for the root
	Children []int
	Depth    int
}

// Failed reports whether the frame carries an error or revert.
func (f Frame) Failed() bool {
	return f.Error != "" || f.RevertReason != ""
}

// TraceTree is an arena of frames in depth-first order; index 0 is the root.
type TraceTree struct {
	Frames []Frame
}

// Root returns the top-level frame.
func (t *TraceTree) Root() *Frame {
	return &t.Frames[0]
}

// MaxDepth returns the deepest frame depth.
func (t *TraceTree) MaxDepth() int {
	max := 0
	for _, f := range t.Frames {
		if f.Depth > max {
			max = f.Depth
		}
	}
	return max
}

// rawFrame mirrors the callTracer result loosely: nodes disagree on field
// names, so every known alias is declared and reconciled after decoding.
type rawFrame struct {
	Type         string          `json:"type"`
	From         common.Address  `json:"from"`
	To           common.Address  `json:"to"`
	Value        *hexutil.Big    `json:"value"`
	Input        hexutil.Bytes   `json:"input"`
	Calldata     hexutil.Bytes   `json:"calldata"`
	Output       hexutil.Bytes   `json:"output"`
	Gas          *hexutil.Uint64 `json:"gas"`
	GasUsed      *hexutil.Uint64 `json:"gasUsed"`
	GasUsedSnake *hexutil.Uint64 `json:"gas_used"`
	Error        string          `json:"error"`
	RevertReason string          `json:"revertReason"`
	Calls        []rawFrame      `json:"calls"`
}

// ParseTrace decodes a raw debug_traceTransaction callTracer result into an
// arena-backed tree.
func ParseTrace(raw json.RawMessage) (*TraceTree, error) {
	var root rawFrame
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("callTracer result: %w", err)
	}

	tree := &TraceTree{}
	flattenFrame(tree, root, -1, 0)
	return tree, nil
}

// flattenFrame appends the frame and, recursively, its children to the arena.
func flattenFrame(tree *TraceTree, raw rawFrame, parent, depth int) int {
	idx := len(tree.Frames)
	tree.Frames = append(tree.Frames, reconcileFrame(raw, parent, depth))

	for _, child := range raw.Calls {
		childIdx := flattenFrame(tree, child, idx, depth+1)
		tree.Frames[idx].Children = append(tree.Frames[idx].Children, childIdx)
	}

	return idx
}

// reconcileFrame resolves the field aliases into the canonical Frame.
func reconcileFrame(raw rawFrame, parent, depth int) Frame {
	frame := Frame{
		Type:         CallType(strings.ToUpper(raw.Type)),
		From:         raw.From,
		To:           raw.To,
		Input:        raw.Input,
		Output:       raw.Output,
		Error:        raw.Error,
		RevertReason: raw.RevertReason,
		Parent:       parent,
		Depth:        depth,
	}

	if frame.Type == "" {
		frame.Type = CallTypeCall
	}
	if len(frame.Input) == 0 && len(raw.Calldata) > 0 {
		frame.Input = raw.Calldata
	}
	if raw.Value != nil {
		frame.Value = raw.Value.ToInt()
	}
	if raw.Gas != nil {
		frame.Gas = uint64(*raw.Gas)
	}
	switch {
	case raw.GasUsed != nil:
		frame.GasUsed = uint64(*raw.GasUsed)
	case raw.GasUsedSnake != nil:
		frame.GasUsed = uint64(*raw.GasUsedSnake)
	}

	return frame
}
