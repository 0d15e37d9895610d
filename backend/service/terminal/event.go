package terminal

import (
	"runtime"
	"strings"

	"ptyterm/backend/internal/types"
)

// EventKind identifies a display input event.
type EventKind int

const (
	EventFocus EventKind = iota + 1
	EventBlur
	EventKeyDown
	EventKeyUp
	EventPaste
	EventScroll
)

// Key is a DOM KeyboardEvent.key value ("a", "Enter", "ArrowUp", ...).
type Key string

const (
	KeyArrowUp   Key = "ArrowUp"
	KeyArrowDown Key = "ArrowDown"
)

// Modifier is a bitmask of held modifier keys.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// Event is an input event delivered by the display surface. Text carries
// the literal characters of a key press or the pasted clipboard contents.
type Event struct {
	Kind EventKind
	Key  Key
	Mods Modifier
	Text string
}

// PasteModifier is the modifier that, together with "v", asks for a paste.
func PasteModifier() Modifier {
	if runtime.GOOS == "darwin" {
		return ModMeta
	}
	return ModCtrl
}

func (e Event) isPasteShortcut() bool {
	return e.Mods == PasteModifier() && strings.EqualFold(string(e.Key), "v")
}

// EventFromInput converts the frontend DTO. Unknown kinds map to zero, which
// Handle reports as unhandled.
func EventFromInput(in types.InputEvent) Event {
	ev := Event{Key: Key(in.Key), Text: in.Text}
	switch in.Kind {
	case "focus":
		ev.Kind = EventFocus
	case "blur":
		ev.Kind = EventBlur
	case "keydown", "key":
		ev.Kind = EventKeyDown
	case "keyup":
		ev.Kind = EventKeyUp
	case "paste":
		ev.Kind = EventPaste
	case "scroll":
		ev.Kind = EventScroll
	}
	if in.Shift {
		ev.Mods |= ModShift
	}
	if in.Ctrl {
		ev.Mods |= ModCtrl
	}
	if in.Alt {
		ev.Mods |= ModAlt
	}
	if in.Meta {
		ev.Mods |= ModMeta
	}
	return ev
}
