package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapKey(t *testing.T) {
	tests := []struct {
		name    string
		key     Key
		action  KeyAction
		section int
	}{
		{"j moves down", Key{Rune: 'j'}, ActMoveDown, 0},
		{"k moves up", Key{Rune: 'k'}, ActMoveUp, 0},
		{"h panel left", Key{Rune: 'h'}, ActPanelLeft, 0},
		{"l panel right", Key{Rune: 'l'}, ActPanelRight, 0},
		{"tab cycles focus", Key{Special: KeyTab}, ActCycleFocus, 0},
		{"digit jumps section", Key{Rune: '3'}, ActJumpSection, 3},
		{"enter descends", Key{Special: KeyEnter}, ActDescend, 0},
		{"escape pops", Key{Special: KeyEscape}, ActBack, 0},
		{"slash searches", Key{Rune: '/'}, ActEnterSearch, 0},
		{"colon commands", Key{Rune: ':'}, ActEnterCommand, 0},
		{"space pauses", Key{Rune: ' '}, ActTogglePause, 0},
		{"r refreshes", Key{Rune: 'r'}, ActRefresh, 0},
		{"p pokes balance", Key{Rune: 'p'}, ActPokeBalance, 0},
		{"o reads storage", Key{Rune: 'o'}, ActReadStorage, 0},
		{"t opens trace", Key{Rune: 't'}, ActOpenTrace, 0},
		{"e toggles frame", Key{Rune: 'e'}, ActToggleFrame, 0},
		{"w toggles watch", Key{Rune: 'w'}, ActToggleWatch, 0},
		{"n prompts label", Key{Rune: 'n'}, ActPromptLabel, 0},
		{"y copies", Key{Rune: 'y'}, ActCopy, 0},
		{"question shows help", Key{Rune: '?'}, ActHelp, 0},
		{"q quits", Key{Rune: 'q'}, ActQuit, 0},
		{"unbound key is none", Key{Rune: 'z'}, ActNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binding := MapKey(tt.key)
			assert.Equal(t, tt.action, binding.Action)
			if tt.section > 0 {
				assert.Equal(t, tt.section, binding.Section)
			}
		})
	}
}

func TestSectionCycle(t *testing.T) {
	s := SectionBlocks
	seen := map[Section]bool{}
	for i := 0; i < 5; i++ {
		seen[s] = true
		s = s.Next()
	}
	assert.Equal(t, SectionBlocks, s, "next wraps around")
	assert.Len(t, seen, 5)

	assert.Equal(t, SectionOps, SectionBlocks.Prev(), "prev wraps around")
}
