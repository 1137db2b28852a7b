// Package ui runs the steady frame loop that owns the state projection and
// the command engine. Rendering itself is a collaborator behind the Renderer
// contract; this package only guarantees the tick discipline: drain engine
// events, process at most one input event, draw.
package ui

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"poke/internal/command"
	"poke/internal/ingest"
	"poke/internal/state"
)

// TickPeriod targets roughly 60 frames per second; the loop gracefully
// extends under load.
const TickPeriod = 16 * time.Millisecond

// Renderer draws the model. Widget geometry, colors, and sparklines are its
// business alone.
type Renderer interface {
	Draw(m *state.Model)
}

// InputSource polls the terminal for one key event, waiting at most the
// given timeout.
type InputSource interface {
	Poll(timeout time.Duration) (state.Key, bool)
}

// Clipboard receives copied identifiers. Implementations decide the
// mechanism (OSC 52, external helper).
type Clipboard interface {
	Write(text string) error
}

// Loop wires the model, command engine, and ingestion engine together.
// Submit posts a command to the ingestion engine without blocking.
type Loop struct {
	Model     *state.Model
	Commands  *command.Engine
	Submit    func(ingest.Command) bool
	Events    <-chan ingest.Event
	Renderer  Renderer
	Input     InputSource
	Clipboard Clipboard
}

// Run executes the frame loop until the user quits or ctx ends.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		l.Model.Drain(l.Events)

		if key, ok := l.Input.Poll(TickPeriod); ok {
			if !l.handleKey(key) {
				return nil
			}
		}

		l.Renderer.Draw(l.Model)
	}
}

// handleKey processes one key event; false means quit.
func (l *Loop) handleKey(key state.Key) bool {
	if l.Model.Mode != state.ModeNormal {
		return l.handleLineInput(key)
	}

	binding := state.MapKey(key)
	switch binding.Action {
	case state.ActQuit:
		return false

	case state.ActMoveDown:
		l.moveSelection(1)
	case state.ActMoveUp:
		l.moveSelection(-1)
	case state.ActPanelRight:
		l.Model.Section = l.Model.Section.Next()
	case state.ActPanelLeft:
		l.Model.Section = l.Model.Section.Prev()
	case state.ActCycleFocus:
		l.Model.Section = l.Model.Section.Next()
	case state.ActJumpSection:
		l.Model.Section = state.Section(binding.Section)

	case state.ActDescend:
		l.descend()
	case state.ActBack:
		l.Model.Pop()

	case state.ActEnterCommand:
		l.Model.Mode = state.ModeCommand
		l.Model.InputBuffer = ""
	case state.ActEnterSearch:
		l.Model.Mode = state.ModeSearch
		l.Model.InputBuffer = ""

	case state.ActTogglePause:
		l.Model.Paused = !l.Model.Paused
		if l.Model.Paused {
			l.Model.Notify("paused (events buffer, fetch continues)", state.SeverityInfo)
		} else {
			l.Model.Notify("resumed", state.SeverityInfo)
		}

	case state.ActRefresh:
		l.submit(ingest.Refresh{})

	case state.ActPokeBalance:
		if addr, ok := l.targetAddress(); ok {
			l.Model.PendingBalance = &addr
			l.submit(ingest.FetchBalances{Address: addr, Tokens: l.Model.Tokens})
		}

	case state.ActReadStorage:
		if _, ok := l.targetAddress(); ok {
			l.Model.Mode = state.ModePrompt
			l.Model.Prompt = state.PromptSlot
			l.Model.InputBuffer = ""
		}

	case state.ActOpenTrace:
		if tx := l.Model.SelectedTxSummary(); tx != nil {
			hash := tx.Hash
			l.Model.PendingTrace = &hash
			l.Model.Push(state.ViewTrace)
			l.submit(ingest.FetchTrace{Hash: hash})
		}

	case state.ActToggleFrame:
		if l.Model.CurrentView() == state.ViewTrace {
			l.Model.Trace.Toggle(l.Model.SelectedFrame)
		}

	case state.ActToggleWatch:
		if addr, ok := l.targetAddress(); ok {
			watched := l.Model.ToggleWatch(addr)
			if watched {
				l.Model.Notify("watching "+addr.Hex(), state.SeverityInfo)
			} else {
				l.Model.Notify("unwatched "+addr.Hex(), state.SeverityInfo)
			}
		}

	case state.ActPromptLabel:
		if _, ok := l.targetAddress(); ok {
			l.Model.Mode = state.ModePrompt
			l.Model.Prompt = state.PromptLabel
			l.Model.InputBuffer = ""
		}

	case state.ActCopy:
		l.copySelection()

	case state.ActHelp:
		l.Model.Push(state.ViewHelp)
	}

	l.Model.ClampSelections()
	return true
}

// handleLineInput edits the input line in Command/Search/Prompt mode.
func (l *Loop) handleLineInput(key state.Key) bool {
	switch key.Special {
	case state.KeyEscape:
		l.Model.Mode = state.ModeNormal
		l.Model.Prompt = state.PromptNone
		l.Model.InputBuffer = ""
		return true

	case state.KeyEnter:
		return l.submitLine()
	}

	if key.Rune == '\b' || key.Rune == 0x7f {
		if n := len(l.Model.InputBuffer); n > 0 {
			l.Model.InputBuffer = l.Model.InputBuffer[:n-1]
		}
		return true
	}
	if key.Rune != 0 {
		l.Model.InputBuffer += string(key.Rune)
	}
	return true
}

// submitLine executes the pending input line for the active mode.
func (l *Loop) submitLine() bool {
	line := l.Model.InputBuffer
	mode, prompt := l.Model.Mode, l.Model.Prompt

	// Domain errors must leave the input in place for correction, so the
	// mode is only reset on success or non-domain outcomes.
	switch mode {
	case state.ModeCommand:
		action := l.Commands.Execute(line)
		if n, ok := action.(command.Notify); ok && n.Level == state.SeverityWarn {
			l.Commands.Dispatch(action, l.Submit)
			return true
		}
		l.resetInput()
		return l.Commands.Dispatch(action, l.Submit)

	case state.ModeSearch:
		action := l.Commands.ExecuteFilter(line)
		l.resetInput()
		return l.Commands.Dispatch(action, l.Submit)

	case state.ModePrompt:
		l.resetInput()
		switch prompt {
		case state.PromptLabel:
			if addr, ok := l.targetAddress(); ok && line != "" {
				action := l.Commands.Execute("label set " + addr.Hex() + " " + line)
				return l.Commands.Dispatch(action, l.Submit)
			}
		case state.PromptSlot:
			if addr, ok := l.targetAddress(); ok {
				if slot, err := state.ParseSlotWord(line); err != nil {
					l.Model.Notify("storage: "+err.Error(), state.SeverityWarn)
				} else {
					l.Model.PendingStorage = &addr
					l.submit(ingest.FetchStorage{Address: addr, Slot: slot})
				}
			}
		}
	}
	return true
}

func (l *Loop) resetInput() {
	l.Model.Mode = state.ModeNormal
	l.Model.Prompt = state.PromptNone
	l.Model.InputBuffer = ""
}

// moveSelection moves the focused section's cursor.
func (l *Loop) moveSelection(delta int) {
	switch l.Model.CurrentView() {
	case state.ViewTrace:
		l.Model.SelectedFrame += delta
		return
	case state.ViewBlockDetail, state.ViewTxDetail:
		l.Model.SelectedTx += delta
		return
	}

	switch l.Model.Section {
	case state.SectionBlocks:
		l.Model.SelectedBlock += delta
	case state.SectionTransactions:
		l.Model.SelectedTx += delta
	case state.SectionAddresses, state.SectionContracts:
		l.Model.SelectedAddress += delta
	}
}

// descend pushes the detail view for the focused selection, resolving
// receipt status lazily on the way into a transaction.
func (l *Loop) descend() {
	switch l.Model.Section {
	case state.SectionBlocks:
		if l.Model.SelectedBlockSummary() != nil {
			l.Model.Push(state.ViewBlockDetail)
		}
	case state.SectionTransactions:
		if tx := l.Model.SelectedTxSummary(); tx != nil {
			l.Model.Push(state.ViewTxDetail)
			l.Model.DecodeInput(tx)
			if tx.Status == ingest.StatusUnknown {
				l.submit(ingest.FetchReceipt{Hash: tx.Hash})
			}
		}
	case state.SectionAddresses, state.SectionContracts:
		if rec := l.Model.SelectedAddressRecord(); rec != nil {
			l.Model.Push(state.ViewAddressDetail)
			l.submit(ingest.FetchCode{Address: rec.Address})
		}
	}
}

// targetAddress resolves which address a p/o/n/w key refers to: the selected
// address record, or the counterparty of the selected transaction.
func (l *Loop) targetAddress() (common.Address, bool) {
	if l.Model.Section == state.SectionAddresses || l.Model.Section == state.SectionContracts ||
		l.Model.CurrentView() == state.ViewAddressDetail {
		if rec := l.Model.SelectedAddressRecord(); rec != nil {
			return rec.Address, true
		}
		return common.Address{}, false
	}

	if tx := l.Model.SelectedTxSummary(); tx != nil {
		if tx.To != nil {
			return *tx.To, true
		}
		return tx.From, true
	}
	return common.Address{}, false
}

// copySelection puts the selected entity's primary identifier on the
// clipboard.
func (l *Loop) copySelection() {
	if l.Clipboard == nil {
		return
	}

	var text string
	switch {
	case l.Model.CurrentView() == state.ViewTrace && l.Model.Trace != nil:
		text = l.Model.Trace.Hash.Hex()
	case l.Model.Section == state.SectionBlocks:
		if b := l.Model.SelectedBlockSummary(); b != nil {
			text = b.Hash.Hex()
		}
	case l.Model.Section == state.SectionAddresses || l.Model.Section == state.SectionContracts:
		if rec := l.Model.SelectedAddressRecord(); rec != nil {
			text = rec.Address.Hex()
		}
	default:
		if tx := l.Model.SelectedTxSummary(); tx != nil {
			text = tx.Hash.Hex()
		}
	}

	if text == "" {
		return
	}
	if err := l.Clipboard.Write(text); err != nil {
		l.Model.Notify("copy failed: "+err.Error(), state.SeverityWarn)
		return
	}
	l.Model.Notify("copied "+text, state.SeverityInfo)
}

// submit posts a command to the engine, surfacing rejection as a toast.
func (l *Loop) submit(cmd ingest.Command) {
	if l.Submit == nil || !l.Submit(cmd) {
		l.Model.Notify("engine busy, request dropped", state.SeverityWarn)
	}
}
