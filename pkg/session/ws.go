package session

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/duskward/lodestone/pkg/color"
)

// wsSegment is the wire shape of one color.Segment: a t/cs/ce structured
// line vocabulary a client can render without re-parsing markup.
type wsSegment struct {
	T  string `json:"t,omitempty"`
	CS string `json:"cs,omitempty"`
	CE bool   `json:"ce,omitempty"`
}

// wsLine is one outbound line as shipped to a WebSocket client: unlike the
// TCP transport's flattened text, this preserves color segments and the
// prompt/sensitive flags verbatim as structured JSON.
type wsLine struct {
	Segments  []wsSegment `json:"segments"`
	IsPrompt  bool        `json:"is_prompt,omitempty"`
	Sensitive bool        `json:"sensitive,omitempty"`
}

func toWireLine(l OutputLine) wsLine {
	segs := make([]wsSegment, 0, len(l.Segments))
	for _, s := range l.Segments {
		switch s.Kind {
		case color.Text:
			segs = append(segs, wsSegment{T: s.Text})
		case color.Start:
			segs = append(segs, wsSegment{CS: s.Hex})
		case color.End:
			segs = append(segs, wsSegment{CE: true})
		}
	}
	return wsLine{Segments: segs, IsPrompt: l.IsPrompt, Sensitive: l.Sensitive}
}

// WebSocketTransport upgrades HTTP connections into sessions, an
// alternate JSON transport binding alongside line-oriented TCP.
type WebSocketTransport struct {
	gateway  *Gateway
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[int]*wsConn
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	c.conn.WriteJSON(v)
}

// NewWebSocketTransport constructs a transport that accepts connections
// from any origin; a reverse proxy is expected to gate access in front of
// it.
func NewWebSocketTransport(gateway *Gateway) *WebSocketTransport {
	return &WebSocketTransport{
		gateway: gateway,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[int]*wsConn),
	}
}

// HandleUpgrade is the http.HandlerFunc that accepts one WebSocket
// connection and spins up its read loop.
func (t *WebSocketTransport) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("session: websocket upgrade: %v", err)
		return
	}

	id := t.gateway.NextID()
	s := New(id, TransportWebSocket, r.RemoteAddr)
	t.gateway.Add(s)

	wc := &wsConn{conn: conn}
	t.mu.Lock()
	t.conns[id] = wc
	t.mu.Unlock()

	go t.readLoop(s, wc)
}

func (t *WebSocketTransport) readLoop(s *Session, wc *wsConn) {
	defer func() {
		t.gateway.Disconnect(s)
		t.mu.Lock()
		delete(t.conns, s.ID)
		t.mu.Unlock()
		wc.conn.Close()
	}()

	for {
		_, msg, err := wc.conn.ReadMessage()
		if err != nil {
			return
		}
		if !s.Enqueue(string(msg)) {
			log.Printf("session[%d]: inbound queue full, dropping line", s.ID)
		}
	}
}

// Flush writes every outbound line queued for s since the last flush,
// preserving color segment structure.
func (t *WebSocketTransport) Flush(s *Session) {
	lines := s.DrainOutbound()
	t.mu.Lock()
	wc, ok := t.conns[s.ID]
	t.mu.Unlock()
	if !ok {
		return
	}
	for _, line := range lines {
		wc.writeJSON(toWireLine(line))
	}
	if s.ShouldClose() {
		wc.conn.Close()
	}
}
