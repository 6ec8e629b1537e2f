package session

import (
	"bufio"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/duskward/lodestone/pkg/color"
)

// TCPTransport is the plain line-oriented telnet-style binding: one
// goroutine per connection reads lines into the session's inbound queue,
// and Flush renders queued OutputLines back to flat text (color segments
// are concatenated; downgrading to an escape-code palette is out of
// scope).
type TCPTransport struct {
	gateway  *Gateway
	listener net.Listener

	mu    sync.Mutex
	conns map[int]net.Conn
}

// ListenTCP opens a TCP listener bound to addr.
func ListenTCP(gateway *Gateway, addr string) (*TCPTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPTransport{
		gateway:  gateway,
		listener: ln,
		conns:    make(map[int]net.Conn),
	}, nil
}

// Serve accepts connections until the listener is closed.
func (t *TCPTransport) Serve() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			return
		}
		go t.handle(conn)
	}
}

// Close stops accepting new connections.
func (t *TCPTransport) Close() error {
	return t.listener.Close()
}

func (t *TCPTransport) handle(conn net.Conn) {
	id := t.gateway.NextID()
	s := New(id, TransportTCP, conn.RemoteAddr().String())
	t.gateway.Add(s)

	t.mu.Lock()
	t.conns[id] = conn
	t.mu.Unlock()

	log.Printf("session[%d]: connected from %s", id, s.Addr)

	defer func() {
		t.gateway.Disconnect(s)
		t.mu.Lock()
		delete(t.conns, id)
		t.mu.Unlock()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 8192), 8192)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if !s.Enqueue(line) {
			log.Printf("session[%d]: inbound queue full, dropping line", id)
		}
	}
}

// Flush renders and writes every outbound line queued for s since the
// last flush. Called once per tick, after post-scripts and the scheduler
// run.
func (t *TCPTransport) Flush(s *Session) {
	lines := s.DrainOutbound()
	t.mu.Lock()
	conn, ok := t.conns[s.ID]
	t.mu.Unlock()
	if !ok {
		return
	}
	if len(lines) > 0 {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		for _, line := range lines {
			conn.Write([]byte(render(line) + "\r\n"))
		}
	}
	if s.ShouldClose() {
		conn.Close()
	}
}

func render(line OutputLine) string {
	var b strings.Builder
	for _, seg := range line.Segments {
		if seg.Kind == color.Text {
			b.WriteString(seg.Text)
		}
	}
	return b.String()
}
