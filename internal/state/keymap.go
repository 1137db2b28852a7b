package state

// Key is a normalized terminal key event: a printable rune, or one of the
// named specials below. The rendering layer translates whatever its
// terminal library produces into this form.
type Key struct {
	Rune    rune
	Special SpecialKey
}

// SpecialKey names the non-printable keys the core binds.
type SpecialKey int

const (
	KeyNone SpecialKey = iota
	KeyEnter
	KeyEscape
	KeyTab
)

// KeyAction is the sealed set of things a key press means in Normal mode.
type KeyAction int

const (
	ActNone KeyAction = iota
	ActMoveDown
	ActMoveUp
	ActPanelLeft
	ActPanelRight
	ActCycleFocus
	ActJumpSection // Section carries which
	ActDescend
	ActBack
	ActEnterSearch
	ActEnterCommand
	ActTogglePause
	ActRefresh
	ActPokeBalance
	ActReadStorage
	ActOpenTrace
	ActToggleFrame
	ActToggleWatch
	ActPromptLabel
	ActCopy
	ActHelp
	ActQuit
)

// KeyBinding pairs an action with its optional section argument.
type KeyBinding struct {
	Action  KeyAction
	Section int // 1–5, for ActJumpSection
}

// MapKey resolves a key event in Normal mode to its bound action. The
// bindings mirror the documented keyboard interface exactly.
func MapKey(k Key) KeyBinding {
	switch k.Special {
	case KeyEnter:
		return KeyBinding{Action: ActDescend}
	case KeyEscape:
		return KeyBinding{Action: ActBack}
	case KeyTab:
		return KeyBinding{Action: ActCycleFocus}
	}

	switch k.Rune {
	case 'j':
		return KeyBinding{Action: ActMoveDown}
	case 'k':
		return KeyBinding{Action: ActMoveUp}
	case 'h':
		return KeyBinding{Action: ActPanelLeft}
	case 'l':
		return KeyBinding{Action: ActPanelRight}
	case '1', '2', '3', '4', '5':
		return KeyBinding{Action: ActJumpSection, Section: int(k.Rune - '0')}
	case '/':
		return KeyBinding{Action: ActEnterSearch}
	case ':':
		return KeyBinding{Action: ActEnterCommand}
	case ' ':
		return KeyBinding{Action: ActTogglePause}
	case 'r':
		return KeyBinding{Action: ActRefresh}
	case 'p':
		return KeyBinding{Action: ActPokeBalance}
	case 'o':
		return KeyBinding{Action: ActReadStorage}
	case 't':
		return KeyBinding{Action: ActOpenTrace}
	case 'e':
		return KeyBinding{Action: ActToggleFrame}
	case 'w':
		return KeyBinding{Action: ActToggleWatch}
	case 'n':
		return KeyBinding{Action: ActPromptLabel}
	case 'y':
		return KeyBinding{Action: ActCopy}
	case '?':
		return KeyBinding{Action: ActHelp}
	case 'q':
		return KeyBinding{Action: ActQuit}
	default:
		return KeyBinding{Action: ActNone}
	}
}
