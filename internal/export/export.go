// Package export writes the projection's lists and traces to timestamped
// files: blocks, transactions, and addresses as CSV, call traces as JSON.
// Files land under the export directory (~/.poke/exports by default), which
// is created on first use.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"poke/internal/ingest"
)

// AddressRow is one exported address entry. The caller flattens its address
// records into this form so the exporter stays independent of the model.
type AddressRow struct {
	Address  common.Address
	Label    string
	Nonce    uint64
	Contract bool
	Watched  bool
}

// Exporter writes files under one directory.
type Exporter struct {
	dir string
}

// New builds an exporter. An empty dir selects DefaultDir.
func New(dir string) Exporter {
	if dir == "" {
		dir = DefaultDir()
	}
	return Exporter{dir: dir}
}

// DefaultDir is ~/.poke/exports, falling back to a relative .poke/exports
// when the home directory cannot be resolved.
func DefaultDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".poke", "exports")
	}
	return filepath.Join(".poke", "exports")
}

// create opens a timestamped file, making the export directory as needed.
func (e Exporter) create(prefix, extension string) (*os.File, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("export dir: %w", err)
	}

	name := fmt.Sprintf("%s-%s.%s", prefix, time.Now().Format("2006-01-02-150405"), extension)
	f, err := os.Create(filepath.Join(e.dir, name))
	if err != nil {
		return nil, fmt.Errorf("export file: %w", err)
	}
	return f, nil
}

// writeCSV streams a header and rows into a timestamped CSV file and
// returns its path.
func (e Exporter) writeCSV(prefix string, header []string, rows [][]string) (string, error) {
	f, err := e.create(prefix, "csv")
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", err
	}
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	w.Flush()
	return f.Name(), w.Error()
}

// Blocks writes the block ring, newest first.
func (e Exporter) Blocks(blocks []ingest.BlockSummary) (string, error) {
	header := []string{"number", "hash", "parent_hash", "timestamp", "gas_used", "gas_limit", "base_fee", "tx_count"}

	rows := make([][]string, len(blocks))
	for i, b := range blocks {
		baseFee := ""
		if b.BaseFee != nil {
			baseFee = b.BaseFee.String()
		}
		rows[i] = []string{
			strconv.FormatUint(b.Number, 10),
			b.Hash.Hex(),
			b.ParentHash.Hex(),
			strconv.FormatUint(b.Timestamp, 10),
			strconv.FormatUint(b.GasUsed, 10),
			strconv.FormatUint(b.GasLimit, 10),
			baseFee,
			strconv.Itoa(len(b.Transactions)),
		}
	}

	return e.writeCSV("blocks", header, rows)
}

// Transactions writes the given transaction list (typically the visible,
// filtered subset), newest first.
func (e Exporter) Transactions(txs []*ingest.TxSummary) (string, error) {
	header := []string{"hash", "block", "index", "from", "to", "value_wei", "gas_limit", "method", "status"}

	rows := make([][]string, len(txs))
	for i, tx := range txs {
		to := "CREATE"
		if tx.To != nil {
			to = tx.To.Hex()
		}
		value := "0"
		if tx.Value != nil {
			value = tx.Value.String()
		}
		rows[i] = []string{
			tx.Hash.Hex(),
			strconv.FormatUint(tx.BlockNumber, 10),
			strconv.FormatUint(uint64(tx.Index), 10),
			tx.From.Hex(),
			to,
			value,
			strconv.FormatUint(tx.GasLimit, 10),
			tx.Method,
			tx.Status.String(),
		}
	}

	return e.writeCSV("transactions", header, rows)
}

// Addresses writes the observed address table.
func (e Exporter) Addresses(rows []AddressRow) (string, error) {
	header := []string{"address", "label", "nonce", "contract", "watched"}

	records := make([][]string, len(rows))
	for i, row := range rows {
		records[i] = []string{
			row.Address.Hex(),
			row.Label,
			strconv.FormatUint(row.Nonce, 10),
			strconv.FormatBool(row.Contract),
			strconv.FormatBool(row.Watched),
		}
	}

	return e.writeCSV("addresses", header, records)
}

// traceFrame is the serialized form of one call frame; frames reference
// each other by arena index, exactly as rendered.
type traceFrame struct {
	Index        int      `json:"index"`
	Type         string   `json:"type"`
	From         string   `json:"from"`
	To           string   `json:"to"`
	Value        string   `json:"value,omitempty"`
	Input        string   `json:"input"`
	Output       string   `json:"output,omitempty"`
	Gas          uint64   `json:"gas"`
	GasUsed      uint64   `json:"gasUsed"`
	Error        string   `json:"error,omitempty"`
	RevertReason string   `json:"revertReason,omitempty"`
	Parent       int      `json:"parent"`
	Depth        int      `json:"depth"`
	Children     []int    `json:"children,omitempty"`
}

type traceDocument struct {
	TransactionHash string       `json:"transactionHash"`
	Frames          []traceFrame `json:"frames"`
}

// Trace writes a fetched call tree as JSON.
func (e Exporter) Trace(hash common.Hash, tree *ingest.TraceTree) (string, error) {
	doc := traceDocument{TransactionHash: hash.Hex()}
	doc.Frames = make([]traceFrame, len(tree.Frames))
	for i, frame := range tree.Frames {
		out := traceFrame{
			Index:        i,
			Type:         string(frame.Type),
			From:         frame.From.Hex(),
			To:           frame.To.Hex(),
			Input:        hexutil.Encode(frame.Input),
			Gas:          frame.Gas,
			GasUsed:      frame.GasUsed,
			Error:        frame.Error,
			RevertReason: frame.RevertReason,
			Parent:       frame.Parent,
			Depth:        frame.Depth,
			Children:     frame.Children,
		}
		if frame.Value != nil {
			out.Value = frame.Value.String()
		}
		if len(frame.Output) > 0 {
			out.Output = hexutil.Encode(frame.Output)
		}
		doc.Frames[i] = out
	}

	f, err := e.create("trace", "json")
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	return f.Name(), nil
}
