package terminal

import (
	"errors"
	"fmt"
)

// Shortcut is a key with its required modifiers, e.g. Ctrl+Insert.
type Shortcut struct {
	Key  Key
	Mods Modifier
}

func (sc Shortcut) String() string {
	prefix := ""
	if sc.Mods&ModCtrl != 0 {
		prefix += "Ctrl+"
	}
	if sc.Mods&ModShift != 0 {
		prefix += "Shift+"
	}
	if sc.Mods&ModAlt != 0 {
		prefix += "Alt+"
	}
	if sc.Mods&ModMeta != 0 {
		prefix += "Meta+"
	}
	return prefix + string(sc.Key)
}

// MenuItem is one entry of the terminal context menu.
type MenuItem struct {
	Label    string
	Shortcut Shortcut
	Action   func() error
}

var (
	CopyShortcut  = Shortcut{Key: "Insert", Mods: ModCtrl}
	PasteShortcut = Shortcut{Key: "Insert", Mods: ModShift}
)

// ContextMenu returns the Copy and Paste entries bound to this session.
func (s *Session) ContextMenu() []MenuItem {
	return []MenuItem{
		{Label: "Copy", Shortcut: CopyShortcut, Action: s.Copy},
		{Label: "Paste", Shortcut: PasteShortcut, Action: s.Paste},
	}
}

// Copy puts the surface selection on the clipboard. An empty selection is
// a no-op.
func (s *Session) Copy() error {
	text := s.surface.SelectionText()
	if text == "" {
		return nil
	}
	if s.clipboard == nil {
		return errors.New("no clipboard available")
	}
	if err := s.clipboard.Copy(text); err != nil {
		return fmt.Errorf("copy selection: %w", err)
	}
	return nil
}

// Paste sends the clipboard contents to the child. Without
// a clipboard the surface is asked to supply one.
func (s *Session) Paste() error {
	if s.clipboard == nil {
		s.surface.RequestPaste()
		return nil
	}
	text, err := s.clipboard.Paste()
	if err != nil {
		return fmt.Errorf("read clipboard: %w", err)
	}
	if text == "" {
		return nil
	}
	return s.Send([]byte(text))
}
