package command

import (
	"poke/internal/export"
	"poke/internal/state"
)

// cmdExport writes the current view to a file: the open trace as JSON, or
// the focused list (blocks, transactions, addresses) as CSV. Trace frames
// keep 'e' for fold/unfold, so export is reached through this verb rather
// than a key.
func (e *Engine) cmdExport(_ string) Action {
	exporter := export.New(e.ExportDir)
	m := e.model

	if m.CurrentView() == state.ViewTrace {
		if m.Trace == nil {
			return notifyErr("export: no trace loaded")
		}
		return exportResult(exporter.Trace(m.Trace.Hash, m.Trace.Tree))
	}

	switch m.Section {
	case state.SectionBlocks:
		if len(m.Blocks) == 0 {
			return notifyErr("export: no blocks yet")
		}
		return exportResult(exporter.Blocks(m.Blocks))

	case state.SectionTransactions:
		if len(m.VisibleTxs) == 0 {
			return notifyErr("export: no transactions in view")
		}
		return exportResult(exporter.Transactions(m.VisibleTxs))

	case state.SectionAddresses, state.SectionContracts:
		records := m.AddressRecords()
		if m.Section == state.SectionContracts {
			contracts := records[:0]
			for _, rec := range records {
				if rec.Contract {
					contracts = append(contracts, rec)
				}
			}
			records = contracts
		}
		if len(records) == 0 {
			return notifyErr("export: no addresses observed")
		}

		rows := make([]export.AddressRow, len(records))
		for i, rec := range records {
			rows[i] = export.AddressRow{
				Address:  rec.Address,
				Label:    rec.Label,
				Nonce:    rec.Nonce,
				Contract: rec.Contract,
				Watched:  rec.Watched,
			}
		}
		return exportResult(exporter.Addresses(rows))

	default:
		return notifyErr("export: nothing to export in this view")
	}
}

func exportResult(path string, err error) Action {
	if err != nil {
		return notifyErr("export: " + err.Error())
	}
	return notifyInfo("exported " + path)
}
