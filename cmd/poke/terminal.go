package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"time"

	"poke/internal/state"
)

// terminal is the minimal rendering collaborator: a line-oriented status
// display, byte-wise key input, and OSC 52 clipboard. Widget geometry,
// colors, and sparklines belong to a richer front end behind the same
// contract.
type terminal struct {
	keys chan state.Key
	last string
}

func newTerminal() *terminal {
	t := &terminal{keys: make(chan state.Key, 16)}

	// cbreak keeps ^C working while delivering keys unbuffered.
	raw := exec.Command("stty", "cbreak", "-echo")
	raw.Stdin = os.Stdin
	_ = raw.Run()

	go t.readKeys()
	return t
}

func (t *terminal) readKeys() {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}

		var key state.Key
		switch buf[0] {
		case '\r', '\n':
			key = state.Key{Special: state.KeyEnter}
		case 0x1b:
			key = state.Key{Special: state.KeyEscape}
		case '\t':
			key = state.Key{Special: state.KeyTab}
		default:
			key = state.Key{Rune: rune(buf[0])}
		}

		select {
		case t.keys <- key:
		default:
		}
	}
}

// Poll implements ui.InputSource.
func (t *terminal) Poll(timeout time.Duration) (state.Key, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case key := <-t.keys:
		return key, true
	case <-timer.C:
		return state.Key{}, false
	}
}

// Draw implements ui.Renderer with a single status line, redrawn only when
// its content changes.
func (t *terminal) Draw(m *state.Model) {
	head := uint64(0)
	if len(m.Blocks) > 0 {
		head = m.Blocks[0].Number
	}

	line := fmt.Sprintf("#%d | %d blk | %d tx | peers %d | %s",
		head, len(m.Blocks), len(m.VisibleTxs), m.Endpoint.PeerCount, m.Status.Message)
	if m.Mode != state.ModeNormal {
		line += " > " + m.InputBuffer
	}

	if line == t.last {
		return
	}
	t.last = line
	fmt.Fprintf(os.Stdout, "\r\033[K%s", line)
}

// Write implements ui.Clipboard through the OSC 52 escape sequence.
func (t *terminal) Write(text string) error {
	_, err := fmt.Fprintf(os.Stdout, "\033]52;c;%s\a", base64.StdEncoding.EncodeToString([]byte(text)))
	return err
}

// Close restores the terminal mode.
func (t *terminal) Close() {
	sane := exec.Command("stty", "sane")
	sane.Stdin = os.Stdin
	_ = sane.Run()
	fmt.Fprintln(os.Stdout)
}
