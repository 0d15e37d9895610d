package display

import (
	"context"
	"fmt"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Wails 事件名, 每个会话一组: "terminal:output:<id>" 等
const (
	EventOutput       = "terminal:output"
	EventResize       = "terminal:resize"
	EventANSI         = "terminal:ansi"
	EventPasteRequest = "terminal:paste-request"
	EventExit         = "terminal:exit"
	EventBroken       = "terminal:broken"
)

// EmitFunc matches runtime.EventsEmit.
type EmitFunc func(ctx context.Context, eventName string, optionalData ...interface{})

type pendingEvent struct {
	name string
	data []interface{}
}

// Wails is a surface rendered by the webview. Output is queued by Append
// and sent as one EventOutput per Wake.
//
// The frontend learns the session id only after the session has started,
// so nothing is emitted before Attach: events are held in order and
// replayed once the frontend has subscribed.
type Wails struct {
	ctx  context.Context
	id   string
	emit EmitFunc

	mu       sync.Mutex
	attached bool
	exited   bool
	pending  []pendingEvent

	batch
	selection
}

// NewWails returns the surface for session id.
func NewWails(ctx context.Context, id string) *Wails {
	return &Wails{ctx: ctx, id: id, emit: runtime.EventsEmit}
}

// EventName returns the per-session name of a terminal event.
func EventName(event, id string) string {
	return fmt.Sprintf("%s:%s", event, id)
}

func (w *Wails) send(event string, data ...interface{}) {
	name := EventName(event, w.id)
	w.mu.Lock()
	defer w.mu.Unlock()
	if event == EventExit {
		w.exited = true
	}
	if !w.attached {
		w.pending = append(w.pending, pendingEvent{name: name, data: data})
		return
	}
	w.emit(w.ctx, name, data...)
}

// Attach replays everything held since the session started and emits
// directly from then on. It reports whether the shell has already exited.
func (w *Wails) Attach() (exited bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.attached {
		for _, ev := range w.pending {
			w.emit(w.ctx, ev.name, ev.data...)
		}
		w.pending = nil
		w.attached = true
	}
	return w.exited
}

// Attached reports whether Attach has been called.
func (w *Wails) Attached() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attached
}

func (w *Wails) Append(text string) { w.appendText(text) }

func (w *Wails) AppendRaw(p []byte) { w.appendRaw(p) }

// Wake flushes queued output to the frontend.
func (w *Wails) Wake() {
	if frames := w.take(); len(frames) > 0 {
		w.send(EventOutput, frames)
	}
}

func (w *Wails) Resize(x, y, width, height int) {
	w.send(EventResize, map[string]int{"x": x, "y": y, "width": width, "height": height})
}

func (w *Wails) RequestPaste() { w.send(EventPasteRequest) }

func (w *Wails) SetANSI(enabled bool) { w.send(EventANSI, enabled) }

// Exit tells the frontend the shell is gone.
func (w *Wails) Exit() { w.send(EventExit) }

// Broken tells the frontend input no longer reaches the shell.
func (w *Wails) Broken(err error) { w.send(EventBroken, err.Error()) }
