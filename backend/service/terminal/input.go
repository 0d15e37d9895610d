package terminal

import (
	"go.uber.org/zap"
)

// Control bytes sent for the history keys.
const (
	historyPrev byte = 0x10
	historyNext byte = 0x0E
)

// Handle reacts to an input event from the display surface and reports
// whether it was consumed. Write failures are logged and recorded on the
// session, never returned.
func (s *Session) Handle(ev Event) bool {
	switch ev.Kind {
	case EventFocus:
		return true

	case EventKeyDown:
		switch {
		case ev.Key == KeyArrowUp:
			s.forward([]byte{historyPrev})
		case ev.Key == KeyArrowDown:
			s.forward([]byte{historyNext})
		case ev.isPasteShortcut():
			s.surface.RequestPaste()
		case ev.Text != "":
			s.forward([]byte(ev.Text))
		}
		return true

	case EventKeyUp:
		return ev.Key == KeyArrowUp

	case EventPaste:
		if ev.Text != "" {
			s.forward([]byte(ev.Text))
		}
		return true
	}
	return false
}

func (s *Session) forward(p []byte) {
	if err := s.Send(p); err != nil {
		s.logger.Warn("dropped terminal input", zap.Int("bytes", len(p)), zap.Error(err))
	}
}
