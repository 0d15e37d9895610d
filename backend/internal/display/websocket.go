package display

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"ptyterm/backend/internal/types"
	"ptyterm/backend/service/terminal"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

// Control is a JSON message in either direction. Every text frame is a
// Control; decoded output is wrapped as {"type":"output"} so shell output
// can never be mistaken for a control message. Raw bytes travel as binary
// frames.
type Control struct {
	Type string `json:"type"`

	// client -> server
	Key    string `json:"key,omitempty"`
	Ctrl   bool   `json:"ctrl,omitempty"`
	Shift  bool   `json:"shift,omitempty"`
	Alt    bool   `json:"alt,omitempty"`
	Meta   bool   `json:"meta,omitempty"`
	Text   string `json:"text,omitempty"` // also server -> client output
	Cols   uint16 `json:"cols,omitempty"`
	Rows   uint16 `json:"rows,omitempty"`
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`

	// server -> client
	Session *types.TerminalSessionInfo `json:"session,omitempty"`
	Enabled *bool                      `json:"enabled,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

// Socket is a surface on the far side of a WebSocket connection.
type Socket struct {
	conn   *websocket.Conn
	wmu    sync.Mutex
	logger *zap.Logger

	batch
	selection
}

func NewSocket(conn *websocket.Conn, logger *zap.Logger) *Socket {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Socket{conn: conn, logger: logger}
}

func (s *Socket) write(messageType int, data []byte) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(messageType, data); err != nil {
		s.logger.Debug("websocket write failed", zap.Error(err))
	}
}

func (s *Socket) control(c Control) {
	data, err := json.Marshal(c)
	if err != nil {
		s.logger.Error("marshal control message", zap.Error(err))
		return
	}
	s.write(websocket.TextMessage, data)
}

func (s *Socket) Append(text string) { s.appendText(text) }

func (s *Socket) AppendRaw(p []byte) { s.appendRaw(p) }

// Wake sends queued output in order: text as output controls, raw bytes
// as binary frames.
func (s *Socket) Wake() {
	for _, f := range s.take() {
		if f.Raw != nil {
			s.write(websocket.BinaryMessage, f.Raw)
			continue
		}
		s.control(Control{Type: "output", Text: f.Text})
	}
}

func (s *Socket) Resize(x, y, w, h int) {
	s.control(Control{Type: "resize", X: x, Y: y, Width: w, Height: h})
}

func (s *Socket) RequestPaste() { s.control(Control{Type: "paste-request"}) }

func (s *Socket) SetANSI(enabled bool) { s.control(Control{Type: "ansi", Enabled: &enabled}) }

func (s *Socket) Exit() { s.control(Control{Type: "exit"}) }

func (s *Socket) Broken(err error) { s.control(Control{Type: "broken", Error: err.Error()}) }

// Close sends a normal close frame and drops the connection.
func (s *Socket) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shell exited")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	return s.conn.Close()
}

// Handler upgrades each request to a WebSocket and runs one local session
// for the lifetime of the connection.
type Handler struct {
	svc      *terminal.Service
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHandler(svc *terminal.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc: svc,
		// 零值 CheckOrigin 拒绝 Origin 与 Host 不一致的请求, 其它网页不能打开本机 shell
		upgrader: websocket.Upgrader{},
		logger:   logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sock := NewSocket(conn, h.logger)
	info, err := h.svc.StartLocalSession(func(id string) terminal.Attachment {
		return terminal.Attachment{
			Surface: sock,
			Waker:   sock,
			OnExit: func(string) {
				sock.Exit()
				sock.Close()
			},
			OnBroken: func(_ string, err error) { sock.Broken(err) },
		}
	})
	if err != nil {
		h.logger.Error("failed to start terminal session", zap.Error(err))
		sock.control(Control{Type: "error", Error: err.Error()})
		return
	}
	logger := h.logger.With(zap.String("session", info.ID))
	logger.Info("websocket connected", zap.String("remote", r.RemoteAddr))
	sock.control(Control{Type: "session", Session: info})

	defer func() {
		if err := h.svc.Close(info.ID); err != nil && !errors.Is(err, terminal.ErrSessionNotFound) {
			logger.Debug("close session", zap.Error(err))
		}
		logger.Info("websocket disconnected")
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
		if msgType == websocket.BinaryMessage {
			if err := h.svc.Send(info.ID, data); err != nil {
				logger.Warn("send failed", zap.Error(err))
			}
			continue
		}

		var c Control
		if err := json.Unmarshal(data, &c); err != nil {
			logger.Warn("invalid control message", zap.Error(err))
			continue
		}
		if err := h.dispatch(info.ID, sock, c); err != nil {
			if errors.Is(err, terminal.ErrSessionNotFound) {
				return
			}
			logger.Warn("control message failed", zap.String("type", c.Type), zap.Error(err))
		}
	}
}

func (h *Handler) dispatch(id string, sock *Socket, c Control) error {
	switch c.Type {
	case "key", "keydown", "keyup", "paste", "focus", "blur":
		_, err := h.svc.Handle(id, terminal.EventFromInput(types.InputEvent{
			Kind:  c.Type,
			Key:   c.Key,
			Ctrl:  c.Ctrl,
			Shift: c.Shift,
			Alt:   c.Alt,
			Meta:  c.Meta,
			Text:  c.Text,
		}))
		return err
	case "input":
		return h.svc.Send(id, []byte(c.Text))
	case "resize":
		if c.Width > 0 && c.Height > 0 {
			return h.svc.Resize(id, c.X, c.Y, c.Width, c.Height)
		}
		return h.svc.SetSize(id, c.Cols, c.Rows)
	case "selection":
		sock.SetSelection(c.Text)
		return nil
	}
	return errors.New("unknown message type " + c.Type)
}

// NewServeMux routes the terminal socket and, when assets is not nil, the
// frontend files.
func NewServeMux(h http.Handler, assets http.FileSystem) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws/terminal", h)
	if assets != nil {
		mux.Handle("/", http.FileServer(assets))
	}
	return mux
}
