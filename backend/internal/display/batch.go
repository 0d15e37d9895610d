package display

import "sync"

// Frame is one unit of output. Exactly one of Text and Raw is set. Raw is
// base64 encoded when marshalled to JSON.
type Frame struct {
	Text string `json:"text,omitempty"`
	Raw  []byte `json:"raw,omitempty"`
}

// batch queues output between wakes so one drain iteration becomes one
// message to the frontend.
type batch struct {
	mu     sync.Mutex
	frames []Frame
}

func (b *batch) appendText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := len(b.frames); n > 0 && b.frames[n-1].Raw == nil {
		b.frames[n-1].Text += text
		return
	}
	b.frames = append(b.frames, Frame{Text: text})
}

func (b *batch) appendRaw(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, Frame{Raw: append([]byte(nil), p...)})
}

func (b *batch) take() []Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	frames := b.frames
	b.frames = nil
	return frames
}

// selection is the text currently selected on the frontend, reported back
// to the Go side so the context menu can copy it.
type selection struct {
	mu   sync.RWMutex
	text string
}

func (s *selection) SetSelection(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
}

func (s *selection) SelectionText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}
